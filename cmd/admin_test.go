package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseID(t *testing.T) {
	id, err := parseID("12", "team id")
	require.NoError(t, err)
	assert.Equal(t, int64(12), id)

	for _, raw := range []string{"0", "-1", "x", ""} {
		_, err := parseID(raw, "team id")
		assert.Error(t, err, raw)
	}
}

func TestRootCommandTree(t *testing.T) {
	root := newRootCmd()

	names := make([]string, 0)
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.ElementsMatch(t, []string{"serve", "create-team", "create-user", "reconcile-storage"}, names)
}

func TestCreateUserRejectsBadTeamID(t *testing.T) {
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs([]string{"create-user", "abc", "kim"})

	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid team id")
}

func TestCreateTeamRequiresName(t *testing.T) {
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs([]string{"create-team"})

	assert.Error(t, root.Execute())
}
