package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/openkmj/timjs/models"
)

var (
	ErrEventNotFound    = errors.New("event not found")
	ErrEventKeyConflict = errors.New("event public key conflict")
	ErrEventTeamInvalid = errors.New("event team invalid")
	ErrEventHasMedia    = errors.New("event still has media")
)

type EventRepository interface {
	Create(ctx context.Context, event *models.Event) error
	// GetByID only returns events owned by teamID.
	GetByID(ctx context.Context, teamID, id int64) (*models.Event, error)
	ListByTeam(ctx context.Context, teamID int64) ([]models.Event, error)
	// ListThumbnails returns up to perEvent thumbnail URLs for every event of
	// the team that has media, newest first.
	ListThumbnails(ctx context.Context, teamID int64, perEvent int) (map[int64][]string, error)
	Update(ctx context.Context, event *models.Event) error
	HasMedia(ctx context.Context, id int64) (bool, error)
	// Delete removes the event only while it owns no media. A blocked delete
	// returns ErrEventHasMedia.
	Delete(ctx context.Context, teamID, id int64) error
}

type postgresEventRepository struct {
	db *sql.DB
}

func NewPostgresEventRepository(db *sql.DB) EventRepository {
	return &postgresEventRepository{db: db}
}

const eventColumns = `id, public_key, title, description, date, location, tags, team_id, created_at`

func (r *postgresEventRepository) Create(ctx context.Context, event *models.Event) error {
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	query := `
		INSERT INTO events (public_key, title, description, date, location, tags, team_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`

	err := r.db.QueryRowContext(ctx, query,
		event.PublicKey,
		event.Title,
		event.Description,
		event.Date,
		event.Location,
		models.JoinTags(event.Tags),
		event.TeamID,
		event.CreatedAt,
	).Scan(&event.ID)
	if err != nil {
		if _, ok := pqConstraint(err, pqUniqueViolation); ok {
			return ErrEventKeyConflict
		}
		if _, ok := pqConstraint(err, pqForeignKeyViolation); ok {
			return ErrEventTeamInvalid
		}
		return fmt.Errorf("failed to create event: %w", err)
	}
	if event.Tags == nil {
		event.Tags = []string{}
	}
	return nil
}

func (r *postgresEventRepository) GetByID(ctx context.Context, teamID, id int64) (*models.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE id = $1 AND team_id = $2`

	event, err := scanEvent(r.db.QueryRowContext(ctx, query, id, teamID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrEventNotFound
		}
		return nil, fmt.Errorf("failed to get event %d: %w", id, err)
	}
	return event, nil
}

func (r *postgresEventRepository) ListByTeam(ctx context.Context, teamID int64) ([]models.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE team_id = $1 ORDER BY date DESC, id DESC`

	rows, err := r.db.QueryContext(ctx, query, teamID)
	if err != nil {
		return nil, fmt.Errorf("failed to list events for team %d: %w", teamID, err)
	}
	defer rows.Close()

	events := make([]models.Event, 0)
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, *event)
	}
	return events, rows.Err()
}

func (r *postgresEventRepository) ListThumbnails(ctx context.Context, teamID int64, perEvent int) (map[int64][]string, error) {
	query := `
		SELECT ranked.event_id, ranked.thumb_url
		FROM (
			SELECT m.event_id, m.thumb_url, m.created_at, m.id,
				ROW_NUMBER() OVER (PARTITION BY m.event_id ORDER BY m.created_at DESC, m.id DESC) AS rn
			FROM media m
			JOIN events e ON e.id = m.event_id
			WHERE e.team_id = $1
		) ranked
		WHERE ranked.rn <= $2
		ORDER BY ranked.event_id, ranked.created_at DESC, ranked.id DESC`

	rows, err := r.db.QueryContext(ctx, query, teamID, perEvent)
	if err != nil {
		return nil, fmt.Errorf("failed to list thumbnails for team %d: %w", teamID, err)
	}
	defer rows.Close()

	thumbs := make(map[int64][]string)
	for rows.Next() {
		var eventID int64
		var url string
		if err := rows.Scan(&eventID, &url); err != nil {
			return nil, fmt.Errorf("failed to scan thumbnail: %w", err)
		}
		thumbs[eventID] = append(thumbs[eventID], url)
	}
	return thumbs, rows.Err()
}

func (r *postgresEventRepository) Update(ctx context.Context, event *models.Event) error {
	query := `
		UPDATE events
		SET title = $1, description = $2, date = $3, location = $4, tags = $5
		WHERE id = $6 AND team_id = $7`

	result, err := r.db.ExecContext(ctx, query,
		event.Title,
		event.Description,
		event.Date,
		event.Location,
		models.JoinTags(event.Tags),
		event.ID,
		event.TeamID,
	)
	if err != nil {
		return fmt.Errorf("failed to update event %d: %w", event.ID, err)
	}
	return checkAffectedRows(result, ErrEventNotFound)
}

func (r *postgresEventRepository) HasMedia(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM media WHERE event_id = $1)`, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check media for event %d: %w", id, err)
	}
	return exists, nil
}

func (r *postgresEventRepository) Delete(ctx context.Context, teamID, id int64) error {
	query := `
		DELETE FROM events
		WHERE id = $1 AND team_id = $2
			AND NOT EXISTS (SELECT 1 FROM media WHERE event_id = $1)`

	result, err := r.db.ExecContext(ctx, query, id, teamID)
	if err != nil {
		if _, ok := pqConstraint(err, pqForeignKeyViolation); ok {
			return ErrEventHasMedia
		}
		return fmt.Errorf("failed to delete event %d: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check affected rows: %w", err)
	}
	if rowsAffected > 0 {
		return nil
	}

	// Nothing deleted: either the event is gone or media appeared.
	if _, err := r.GetByID(ctx, teamID, id); err != nil {
		return err
	}
	return ErrEventHasMedia
}

func scanEvent(row rowScanner) (*models.Event, error) {
	event := &models.Event{}
	var description, location, tags sql.NullString
	err := row.Scan(
		&event.ID,
		&event.PublicKey,
		&event.Title,
		&description,
		&event.Date,
		&location,
		&tags,
		&event.TeamID,
		&event.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	event.Description = nullStringPtr(description)
	event.Location = nullStringPtr(location)
	event.Tags = models.SplitTags(nullStringPtr(tags))
	event.Thumbnails = []string{}
	return event, nil
}
