package services

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/openkmj/timjs/db/dbtest"
	"github.com/openkmj/timjs/models"
	"github.com/openkmj/timjs/notify"
	"github.com/openkmj/timjs/repositories"
	"github.com/openkmj/timjs/storage"
	"github.com/stretchr/testify/require"
)

type fakeStorage struct {
	mu        sync.Mutex
	objects   map[string]storage.ObjectInfo
	deleted   []string
	issueErr  error
	headErr   error
	deleteErr error
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{objects: make(map[string]storage.ObjectInfo)}
}

func (f *fakeStorage) IssueUploadURL(_ context.Context, fileName, contentType, prefix string, kind storage.UploadKind) (*storage.PresignedUpload, error) {
	if f.issueErr != nil {
		return nil, f.issueErr
	}
	key, err := storage.ObjectKey(kind, prefix, fileName)
	if err != nil {
		return nil, err
	}
	return &storage.PresignedUpload{
		URL:    "https://bucket.test",
		Fields: map[string]string{"key": key, "Content-Type": contentType},
		Key:    key,
	}, nil
}

func (f *fakeStorage) HeadObject(_ context.Context, key string) (*storage.ObjectInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.headErr != nil {
		return nil, f.headErr
	}
	info, ok := f.objects[key]
	if !ok {
		return nil, storage.ErrObjectNotFound
	}
	return &info, nil
}

func (f *fakeStorage) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, key)
	return f.deleteErr
}

func (f *fakeStorage) PublicURL(key string) string {
	return "https://cdn.test/" + key
}

// put stores an original and its thumbnail under the event's prefix and
// returns their keys.
func (f *fakeStorage) put(t *testing.T, publicKey string, size int64, contentType string) (string, string) {
	t.Helper()
	key, err := storage.ObjectKey(storage.KindMedia, publicKey, "photo.jpg")
	require.NoError(t, err)
	thumb, err := storage.ObjectKey(storage.KindMediaThumb, publicKey, "thumb.jpg")
	require.NoError(t, err)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[key] = storage.ObjectInfo{Size: size, ContentType: contentType}
	f.objects[thumb] = storage.ObjectInfo{Size: 100, ContentType: "image/jpeg"}
	return key, thumb
}

type dispatchCall struct {
	Tokens []string
	Msg    notify.Message
}

type fakeDispatcher struct {
	mu    sync.Mutex
	calls []dispatchCall
	err   error
}

func (f *fakeDispatcher) Notify(_ context.Context, tokens []string, msg notify.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, dispatchCall{Tokens: tokens, Msg: msg})
	return f.err
}

type broadcast struct {
	TeamID int64
	Type   string
}

type fakeBroadcaster struct {
	mu   sync.Mutex
	sent []broadcast
}

func (f *fakeBroadcaster) BroadcastToTeam(teamID int64, msgType string, _ interface{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, broadcast{TeamID: teamID, Type: msgType})
}

type countingCache struct {
	mu          sync.Mutex
	users       map[string]*models.User
	hits        int
	invalidated []string
}

func newCountingCache() *countingCache {
	return &countingCache{users: make(map[string]*models.User)}
}

func (c *countingCache) Get(_ context.Context, apiKey string) (*models.User, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	u, ok := c.users[apiKey]
	if ok {
		c.hits++
	}
	return u, ok
}

func (c *countingCache) Set(_ context.Context, user *models.User) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.users[user.APIKey] = user
}

func (c *countingCache) Invalidate(_ context.Context, apiKey string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.users, apiKey)
	c.invalidated = append(c.invalidated, apiKey)
}

var errBoom = errors.New("boom")

type testEnv struct {
	db          *sql.DB
	teams       repositories.TeamRepository
	users       repositories.UserRepository
	events      repositories.EventRepository
	media       repositories.MediaRepository
	ledger      *QuotaLedger
	storage     *fakeStorage
	dispatcher  *fakeDispatcher
	broadcaster *fakeBroadcaster
	notifier    *TeamNotifier
	logger      *slog.Logger
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	sqlDB := dbtest.Open(t)
	env := &testEnv{
		db:          sqlDB,
		teams:       repositories.NewPostgresTeamRepository(sqlDB),
		users:       repositories.NewPostgresUserRepository(sqlDB),
		events:      repositories.NewPostgresEventRepository(sqlDB),
		media:       repositories.NewPostgresMediaRepository(sqlDB),
		storage:     newFakeStorage(),
		dispatcher:  &fakeDispatcher{},
		broadcaster: &fakeBroadcaster{},
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	env.ledger = NewQuotaLedger(sqlDB, env.teams, env.media)
	env.notifier = NewTeamNotifier(env.users, env.dispatcher, env.broadcaster, env.logger)
	return env
}

func (e *testEnv) mediaService() MediaService {
	return NewMediaService(e.db, e.teams, e.events, e.media, e.ledger, e.storage, e.notifier, e.logger)
}

// user creates a team member and returns it loaded the way authentication
// would.
func (e *testEnv) user(t *testing.T, teamID int64, name string) *models.User {
	t.Helper()
	id := dbtest.CreateUser(t, e.db, teamID, name, "sk-"+name)
	u, err := e.users.GetByID(context.Background(), id)
	require.NoError(t, err)
	return u
}

func (e *testEnv) event(t *testing.T, teamID int64, publicKey string) int64 {
	t.Helper()
	return dbtest.CreateEvent(t, e.db, teamID, publicKey, "Event "+publicKey, time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC))
}

func fixedTime() time.Time {
	return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
}

// fillingTeamRepo simulates a concurrent writer that uses up the team's
// remaining quota right before the increase runs.
type fillingTeamRepo struct {
	repositories.TeamRepository
}

func (r *fillingTeamRepo) IncreaseUsage(ctx context.Context, exec repositories.SQLExecutor, id, kb int64) error {
	team, err := r.TeamRepository.GetByID(ctx, exec, id)
	if err != nil {
		return err
	}
	if err := r.TeamRepository.SetUsage(ctx, exec, id, team.StorageLimit); err != nil {
		return err
	}
	return r.TeamRepository.IncreaseUsage(ctx, exec, id, kb)
}
