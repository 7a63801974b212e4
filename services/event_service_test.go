package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/openkmj/timjs/db/dbtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestCreateEventNotifiesTeam(t *testing.T) {
	env := newTestEnv(t)
	teamID := dbtest.CreateTeam(t, env.db, "alpha", 100, 0)
	actor := env.user(t, teamID, "kim")
	peer := env.user(t, teamID, "lee")
	dbtest.SetPushToken(t, env.db, peer.ID, "ExpoPushToken[peer]")
	svc := NewEventService(env.events, env.notifier)

	date := time.Date(2024, 7, 14, 9, 0, 0, 0, time.FixedZone("KST", 9*3600))
	event, err := svc.CreateEvent(context.Background(), actor, CreateEventInput{
		Title:    "  Jeju trip ",
		Date:     &date,
		Location: strPtr("Jeju"),
		Tags:     []string{"travel", " summer "},
	})
	require.NoError(t, err)

	assert.NotZero(t, event.ID)
	assert.NotEmpty(t, event.PublicKey)
	assert.Equal(t, "Jeju trip", event.Title)
	assert.Equal(t, teamID, event.TeamID)
	assert.Equal(t, time.UTC, event.Date.Location())
	assert.Equal(t, []string{"travel", "summer"}, event.Tags)
	assert.Equal(t, []string{}, event.Thumbnails)

	require.Len(t, env.dispatcher.calls, 1)
	assert.Equal(t, []string{"ExpoPushToken[peer]"}, env.dispatcher.calls[0].Tokens)
	assert.Equal(t, "kim created Jeju trip", env.dispatcher.calls[0].Msg.Body)
	require.Len(t, env.broadcaster.sent, 1)
	assert.Equal(t, NotificationEventCreated, env.broadcaster.sent[0].Type)
}

func TestCreateEventPushFailureIsSwallowed(t *testing.T) {
	env := newTestEnv(t)
	teamID := dbtest.CreateTeam(t, env.db, "alpha", 100, 0)
	actor := env.user(t, teamID, "kim")
	peer := env.user(t, teamID, "lee")
	dbtest.SetPushToken(t, env.db, peer.ID, "ExpoPushToken[peer]")
	env.dispatcher.err = errBoom
	svc := NewEventService(env.events, env.notifier)

	date := fixedTime()
	_, err := svc.CreateEvent(context.Background(), actor, CreateEventInput{Title: "x", Date: &date})
	assert.NoError(t, err)
}

func TestCreateEventValidation(t *testing.T) {
	env := newTestEnv(t)
	teamID := dbtest.CreateTeam(t, env.db, "alpha", 100, 0)
	actor := env.user(t, teamID, "kim")
	svc := NewEventService(env.events, nil)

	_, err := svc.CreateEvent(context.Background(), actor, CreateEventInput{})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "title")
	assert.Contains(t, verr.Fields, "date")

	date := fixedTime()
	_, err = svc.CreateEvent(context.Background(), actor, CreateEventInput{Title: "   ", Date: &date})
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "title")
}

func TestEventTagsRejectComma(t *testing.T) {
	env := newTestEnv(t)
	teamID := dbtest.CreateTeam(t, env.db, "alpha", 100, 0)
	actor := env.user(t, teamID, "kim")
	svc := NewEventService(env.events, nil)
	ctx := context.Background()
	date := fixedTime()

	_, err := svc.CreateEvent(ctx, actor, CreateEventInput{Title: "Trip", Date: &date, Tags: []string{"travel", "Seoul, Korea"}})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, `must not contain ","`, verr.Fields["tags[1]"])

	created, err := svc.CreateEvent(ctx, actor, CreateEventInput{Title: "Trip", Date: &date, Tags: []string{"Seoul Korea"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"Seoul Korea"}, created.Tags)

	bad := []string{"a,b"}
	_, err = svc.UpdateEvent(ctx, teamID, created.ID, UpdateEventInput{Tags: &bad})
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "tags[0]")

	reloaded, err := svc.GetEvent(ctx, teamID, created.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"Seoul Korea"}, reloaded.Tags)
}

func TestListEventsWithThumbnails(t *testing.T) {
	env := newTestEnv(t)
	teamID := dbtest.CreateTeam(t, env.db, "alpha", 100, 0)
	otherTeam := dbtest.CreateTeam(t, env.db, "beta", 100, 0)
	user := env.user(t, teamID, "kim")
	svc := NewEventService(env.events, nil)
	ctx := context.Background()

	older := dbtest.CreateEvent(t, env.db, teamID, "old", "Old", time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC))
	newer := dbtest.CreateEvent(t, env.db, teamID, "new", "New", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	dbtest.CreateEvent(t, env.db, otherTeam, "foreign", "Foreign", time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))

	base := fixedTime()
	for i := 0; i < 5; i++ {
		dbtest.CreateMedia(t, env.db, newer, user.ID, fmt.Sprintf("media/new/%d.jpg", i), 10, base.Add(time.Duration(i)*time.Minute))
	}

	events, err := svc.ListEvents(ctx, teamID)
	require.NoError(t, err)
	require.Len(t, events, 2)

	assert.Equal(t, newer, events[0].ID)
	assert.Equal(t, []string{
		"https://cdn.test/thumb/media/new/4.jpg",
		"https://cdn.test/thumb/media/new/3.jpg",
		"https://cdn.test/thumb/media/new/2.jpg",
	}, events[0].Thumbnails)

	assert.Equal(t, older, events[1].ID)
	assert.Equal(t, []string{}, events[1].Thumbnails)
}

func TestListEventsEmpty(t *testing.T) {
	env := newTestEnv(t)
	teamID := dbtest.CreateTeam(t, env.db, "alpha", 100, 0)

	events, err := NewEventService(env.events, nil).ListEvents(context.Background(), teamID)
	require.NoError(t, err)
	assert.NotNil(t, events)
	assert.Empty(t, events)
}

func TestGetEventIsTeamScoped(t *testing.T) {
	env := newTestEnv(t)
	teamID := dbtest.CreateTeam(t, env.db, "alpha", 100, 0)
	otherTeam := dbtest.CreateTeam(t, env.db, "beta", 100, 0)
	eventID := env.event(t, teamID, "evt1")
	svc := NewEventService(env.events, nil)

	event, err := svc.GetEvent(context.Background(), teamID, eventID)
	require.NoError(t, err)
	assert.Equal(t, "Event evt1", event.Title)

	_, err = svc.GetEvent(context.Background(), otherTeam, eventID)
	assert.ErrorIs(t, err, ErrEventNotFound)
}

func TestUpdateEventPartial(t *testing.T) {
	env := newTestEnv(t)
	teamID := dbtest.CreateTeam(t, env.db, "alpha", 100, 0)
	actor := env.user(t, teamID, "kim")
	svc := NewEventService(env.events, nil)
	ctx := context.Background()

	date := fixedTime()
	created, err := svc.CreateEvent(ctx, actor, CreateEventInput{
		Title:       "Picnic",
		Description: strPtr("at the park"),
		Date:        &date,
		Tags:        []string{"outdoor"},
	})
	require.NoError(t, err)

	updated, err := svc.UpdateEvent(ctx, teamID, created.ID, UpdateEventInput{Title: strPtr("Picnic 2")})
	require.NoError(t, err)
	assert.Equal(t, "Picnic 2", updated.Title)
	require.NotNil(t, updated.Description)
	assert.Equal(t, "at the park", *updated.Description)
	assert.Equal(t, []string{"outdoor"}, updated.Tags)

	empty := []string{}
	updated, err = svc.UpdateEvent(ctx, teamID, created.ID, UpdateEventInput{Tags: &empty})
	require.NoError(t, err)
	assert.Equal(t, []string{}, updated.Tags)

	reloaded, err := svc.GetEvent(ctx, teamID, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Picnic 2", reloaded.Title)
	assert.Equal(t, []string{}, reloaded.Tags)
	assert.Equal(t, created.PublicKey, reloaded.PublicKey)

	_, err = svc.UpdateEvent(ctx, teamID, created.ID, UpdateEventInput{Title: strPtr(" ")})
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestUpdateEventOtherTeam(t *testing.T) {
	env := newTestEnv(t)
	teamID := dbtest.CreateTeam(t, env.db, "alpha", 100, 0)
	otherTeam := dbtest.CreateTeam(t, env.db, "beta", 100, 0)
	eventID := env.event(t, teamID, "evt1")

	_, err := NewEventService(env.events, nil).UpdateEvent(context.Background(), otherTeam, eventID, UpdateEventInput{Title: strPtr("x")})
	assert.ErrorIs(t, err, ErrEventNotFound)
}

func TestDeleteEventGuardedByMedia(t *testing.T) {
	env := newTestEnv(t)
	teamID := dbtest.CreateTeam(t, env.db, "alpha", 100, 0)
	user := env.user(t, teamID, "kim")
	withMedia := env.event(t, teamID, "evt1")
	empty := env.event(t, teamID, "evt2")
	dbtest.CreateMedia(t, env.db, withMedia, user.ID, "media/evt1/a.jpg", 10, fixedTime())
	svc := NewEventService(env.events, nil)
	ctx := context.Background()

	assert.ErrorIs(t, svc.DeleteEvent(ctx, teamID, withMedia), ErrEventHasMedia)
	_, err := svc.GetEvent(ctx, teamID, withMedia)
	require.NoError(t, err)

	require.NoError(t, svc.DeleteEvent(ctx, teamID, empty))
	_, err = svc.GetEvent(ctx, teamID, empty)
	assert.ErrorIs(t, err, ErrEventNotFound)

	assert.ErrorIs(t, svc.DeleteEvent(ctx, teamID, empty), ErrEventNotFound)
}

func TestDeleteEventOtherTeam(t *testing.T) {
	env := newTestEnv(t)
	teamID := dbtest.CreateTeam(t, env.db, "alpha", 100, 0)
	otherTeam := dbtest.CreateTeam(t, env.db, "beta", 100, 0)
	eventID := env.event(t, teamID, "evt1")
	svc := NewEventService(env.events, nil)

	assert.ErrorIs(t, svc.DeleteEvent(context.Background(), otherTeam, eventID), ErrEventNotFound)
	_, err := svc.GetEvent(context.Background(), teamID, eventID)
	assert.NoError(t, err)
}
