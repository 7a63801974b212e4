// Package dbtest provides a throwaway SQLite database carrying the
// application schema, plus fixture helpers for repository and service tests.
package dbtest

import (
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"
)

// schema is db/schema.sql in the SQLite dialect. TestSchemaMatchesPostgres
// fails when their tables, columns, unique keys or indexes diverge.
const schema = `
CREATE TABLE teams (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	name          TEXT NOT NULL,
	storage_limit INTEGER NOT NULL DEFAULT 1048576,
	storage_used  INTEGER NOT NULL DEFAULT 0 CHECK (storage_used >= 0),
	created_at    TIMESTAMP NOT NULL
);

CREATE TABLE users (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	name            TEXT NOT NULL,
	api_key         TEXT NOT NULL UNIQUE,
	expo_push_token TEXT,
	profile_img     TEXT,
	team_id         INTEGER NOT NULL REFERENCES teams(id),
	created_at      TIMESTAMP NOT NULL
);

CREATE TABLE events (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	public_key  TEXT NOT NULL UNIQUE,
	title       TEXT NOT NULL,
	description TEXT,
	date        TIMESTAMP NOT NULL,
	location    TEXT,
	tags        TEXT,
	team_id     INTEGER NOT NULL REFERENCES teams(id),
	created_at  TIMESTAMP NOT NULL
);

CREATE TABLE media (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	event_id      INTEGER NOT NULL REFERENCES events(id),
	user_id       INTEGER NOT NULL REFERENCES users(id),
	url           TEXT NOT NULL,
	thumb_url     TEXT NOT NULL,
	object_key    TEXT NOT NULL UNIQUE,
	thumb_key     TEXT NOT NULL UNIQUE,
	file_type     TEXT NOT NULL,
	file_size     INTEGER,
	file_metadata TEXT,
	created_at    TIMESTAMP NOT NULL
);

CREATE INDEX media_feed_idx ON media (created_at DESC, id DESC);
CREATE INDEX media_event_idx ON media (event_id);
CREATE INDEX events_team_date_idx ON events (team_id, date DESC);
`

// Open creates a fresh database in a temporary directory. It is closed when
// the test finishes.
func Open(t testing.TB) *sql.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "timjs.db") + "?_foreign_keys=on&_busy_timeout=5000"
	db, err := sql.Open("sqlite3", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(schema)
	require.NoError(t, err)
	return db
}

func insert(t testing.TB, db *sql.DB, query string, args ...interface{}) int64 {
	t.Helper()
	var id int64
	require.NoError(t, db.QueryRow(query, args...).Scan(&id))
	return id
}

func CreateTeam(t testing.TB, db *sql.DB, name string, limitKB, usedKB int64) int64 {
	t.Helper()
	return insert(t, db,
		`INSERT INTO teams (name, storage_limit, storage_used, created_at) VALUES ($1, $2, $3, $4) RETURNING id`,
		name, limitKB, usedKB, time.Now().UTC())
}

func CreateUser(t testing.TB, db *sql.DB, teamID int64, name, apiKey string) int64 {
	t.Helper()
	return insert(t, db,
		`INSERT INTO users (name, api_key, team_id, created_at) VALUES ($1, $2, $3, $4) RETURNING id`,
		name, apiKey, teamID, time.Now().UTC())
}

func SetPushToken(t testing.TB, db *sql.DB, userID int64, token string) {
	t.Helper()
	_, err := db.Exec(`UPDATE users SET expo_push_token = $1 WHERE id = $2`, token, userID)
	require.NoError(t, err)
}

func CreateEvent(t testing.TB, db *sql.DB, teamID int64, publicKey, title string, date time.Time) int64 {
	t.Helper()
	return insert(t, db,
		`INSERT INTO events (public_key, title, date, team_id, created_at) VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		publicKey, title, date.UTC(), teamID, time.Now().UTC())
}

// CreateMedia inserts a media row with deterministic URLs derived from its
// object key.
func CreateMedia(t testing.TB, db *sql.DB, eventID, userID int64, key string, size int64, createdAt time.Time) int64 {
	t.Helper()
	return insert(t, db,
		`INSERT INTO media (event_id, user_id, url, thumb_url, object_key, thumb_key, file_type, file_size, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) RETURNING id`,
		eventID, userID,
		"https://cdn.test/"+key, "https://cdn.test/thumb/"+key,
		key, "thumb/"+key,
		"image/jpeg", size, createdAt.UTC())
}

func StorageUsed(t testing.TB, db *sql.DB, teamID int64) int64 {
	t.Helper()
	var used int64
	require.NoError(t, db.QueryRow(`SELECT storage_used FROM teams WHERE id = $1`, teamID).Scan(&used))
	return used
}

func CountMedia(t testing.TB, db *sql.DB) int {
	t.Helper()
	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM media`).Scan(&n))
	return n
}
