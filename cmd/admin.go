package main

import (
	"fmt"
	"strconv"

	"github.com/fatih/color"
	"github.com/openkmj/timjs/services"
	"github.com/spf13/cobra"
)

func parseID(raw, name string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s %q", name, raw)
	}
	return id, nil
}

func newCreateTeamCmd() *cobra.Command {
	var limitKB int64
	cmd := &cobra.Command{
		Use:   "create-team <name>",
		Short: "Create a team",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			input := services.CreateTeamInput{Name: args[0]}
			if cmd.Flags().Changed("storage-limit") {
				input.StorageLimitKB = &limitKB
			}
			team, err := a.teamService().CreateTeam(cmd.Context(), input)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s team %q (id %d, limit %d KB)\n",
				color.GreenString("created"), team.Name, team.ID, team.StorageLimit)
			return nil
		},
	}
	cmd.Flags().Int64Var(&limitKB, "storage-limit", 0, "storage limit in KB (defaults to DEFAULT_STORAGE_LIMIT_KB)")
	return cmd
}

func newCreateUserCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create-user <team-id> <name>",
		Short: "Create a team member and print their API key",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			teamID, err := parseID(args[0], "team id")
			if err != nil {
				return err
			}

			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			user, err := a.teamService().CreateUser(cmd.Context(), services.CreateUserInput{TeamID: teamID, Name: args[1]})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s user %q (id %d) in team %d\n", color.GreenString("created"), user.Name, user.ID, user.TeamID)
			fmt.Fprintf(out, "API key: %s\n", color.New(color.Bold, color.FgYellow).Sprint(user.APIKey))
			fmt.Fprintln(out, color.RedString("Store this key now; it is not shown again."))
			return nil
		},
	}
}

func newReconcileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile-storage <team-id>",
		Short: "Recompute a team's storage usage from its media",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			teamID, err := parseID(args[0], "team id")
			if err != nil {
				return err
			}

			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			team, err := a.teamService().ReconcileStorage(cmd.Context(), teamID)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s team %d: %d / %d KB used\n",
				color.GreenString("reconciled"), team.ID, team.StorageUsed, team.StorageLimit)
			return nil
		},
	}
}
