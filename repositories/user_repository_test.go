package repositories

import (
	"context"
	"testing"

	"github.com/openkmj/timjs/db/dbtest"
	"github.com/openkmj/timjs/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserRepositoryGetByAPIKeyLoadsTeam(t *testing.T) {
	sqlDB := dbtest.Open(t)
	repo := NewPostgresUserRepository(sqlDB)
	ctx := context.Background()
	teamID := dbtest.CreateTeam(t, sqlDB, "crew", 100, 7)
	userID := dbtest.CreateUser(t, sqlDB, teamID, "mina", "sk-mina")

	user, err := repo.GetByAPIKey(ctx, "sk-mina")
	require.NoError(t, err)
	assert.Equal(t, userID, user.ID)
	require.NotNil(t, user.Team)
	assert.Equal(t, "crew", user.Team.Name)
	assert.Equal(t, int64(7), user.Team.StorageUsed)
	assert.Nil(t, user.ExpoPushToken)

	_, err = repo.GetByAPIKey(ctx, "sk-nobody")
	assert.ErrorIs(t, err, ErrUserNotFound)
	_, err = repo.GetByAPIKey(ctx, "")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestUserRepositoryCreateAndUpdates(t *testing.T) {
	sqlDB := dbtest.Open(t)
	repo := NewPostgresUserRepository(sqlDB)
	ctx := context.Background()
	teamID := dbtest.CreateTeam(t, sqlDB, "crew", 100, 0)

	user := &models.User{Name: "jun", APIKey: "sk-jun", TeamID: teamID}
	require.NoError(t, repo.Create(ctx, user))
	require.NotZero(t, user.ID)

	token := "ExponentPushToken[abc]"
	require.NoError(t, repo.UpdatePushToken(ctx, user.ID, &token))
	require.NoError(t, repo.UpdateProfileImage(ctx, user.ID, "https://cdn.test/profile/1.png"))
	require.NoError(t, repo.UpdateAPIKey(ctx, user.ID, "sk-rotated"))

	got, err := repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	require.NotNil(t, got.ExpoPushToken)
	assert.Equal(t, token, *got.ExpoPushToken)
	require.NotNil(t, got.ProfileImg)
	assert.Equal(t, "https://cdn.test/profile/1.png", *got.ProfileImg)
	assert.Equal(t, "sk-rotated", got.APIKey)

	assert.ErrorIs(t, repo.UpdatePushToken(ctx, 999, nil), ErrUserNotFound)
}

func TestUserRepositoryListPushTokensExcludesActor(t *testing.T) {
	sqlDB := dbtest.Open(t)
	repo := NewPostgresUserRepository(sqlDB)
	ctx := context.Background()
	teamID := dbtest.CreateTeam(t, sqlDB, "crew", 100, 0)
	otherTeam := dbtest.CreateTeam(t, sqlDB, "other", 100, 0)

	actor := dbtest.CreateUser(t, sqlDB, teamID, "actor", "sk-1")
	peer := dbtest.CreateUser(t, sqlDB, teamID, "peer", "sk-2")
	dbtest.CreateUser(t, sqlDB, teamID, "silent", "sk-3")
	outsider := dbtest.CreateUser(t, sqlDB, otherTeam, "outsider", "sk-4")
	dbtest.SetPushToken(t, sqlDB, actor, "ExponentPushToken[actor]")
	dbtest.SetPushToken(t, sqlDB, peer, "ExponentPushToken[peer]")
	dbtest.SetPushToken(t, sqlDB, outsider, "ExponentPushToken[outsider]")

	tokens, err := repo.ListPushTokens(ctx, teamID, actor)
	require.NoError(t, err)
	assert.Equal(t, []string{"ExponentPushToken[peer]"}, tokens)

	members, err := repo.ListByTeamID(ctx, teamID)
	require.NoError(t, err)
	assert.Len(t, members, 3)
}
