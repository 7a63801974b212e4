package services

import (
	"context"
	"log/slog"

	"github.com/openkmj/timjs/notify"
	"github.com/openkmj/timjs/repositories"
)

const (
	NotificationEventCreated = "event.created"
	NotificationMediaCreated = "media.created"
)

// Broadcaster pushes a message to the live connections of a team.
type Broadcaster interface {
	BroadcastToTeam(teamID int64, msgType string, payload interface{})
}

type TeamNotification struct {
	TeamID  int64
	ActorID int64
	Type    string
	Title   string
	Body    string
	Data    map[string]interface{}
}

// TeamNotifier tells a team's other members about something one of them did.
// Delivery is best-effort: failures are logged and never returned.
type TeamNotifier struct {
	userRepo    repositories.UserRepository
	dispatcher  notify.Dispatcher
	broadcaster Broadcaster
	logger      *slog.Logger
}

func NewTeamNotifier(userRepo repositories.UserRepository, dispatcher notify.Dispatcher, broadcaster Broadcaster, logger *slog.Logger) *TeamNotifier {
	return &TeamNotifier{
		userRepo:    userRepo,
		dispatcher:  dispatcher,
		broadcaster: broadcaster,
		logger:      logger,
	}
}

func (n *TeamNotifier) NotifyTeam(ctx context.Context, note TeamNotification) {
	if n == nil {
		return
	}

	data := make(map[string]interface{}, len(note.Data)+1)
	for k, v := range note.Data {
		data[k] = v
	}
	data["type"] = note.Type

	if n.broadcaster != nil {
		n.broadcaster.BroadcastToTeam(note.TeamID, note.Type, map[string]interface{}{
			"title": note.Title,
			"body":  note.Body,
			"data":  data,
		})
	}

	if n.dispatcher == nil {
		return
	}
	tokens, err := n.userRepo.ListPushTokens(ctx, note.TeamID, note.ActorID)
	if err != nil {
		n.logger.WarnContext(ctx, "failed to load push tokens", slog.Int64("team_id", note.TeamID), slog.Any("error", err))
		return
	}
	if len(tokens) == 0 {
		return
	}
	msg := notify.Message{Title: note.Title, Body: note.Body, Data: data}
	if err := n.dispatcher.Notify(ctx, tokens, msg); err != nil {
		n.logger.WarnContext(ctx, "push notification failed",
			slog.Int64("team_id", note.TeamID),
			slog.String("type", note.Type),
			slog.Int("recipients", len(tokens)),
			slog.Any("error", err),
		)
	}
}
