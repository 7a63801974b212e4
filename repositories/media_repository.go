package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/openkmj/timjs/models"
)

var (
	ErrMediaNotFound     = errors.New("media not found")
	ErrMediaEventInvalid = errors.New("media event or uploader invalid")
	ErrMediaKeyConflict  = errors.New("media object is already recorded")
)

// FeedPosition is a resolved cursor: the sort key of the last item seen.
type FeedPosition struct {
	CreatedAt time.Time
	ID        int64
}

type MediaRepository interface {
	// CreateBatch inserts every item on exec and fills in their ids.
	CreateBatch(ctx context.Context, exec SQLExecutor, items []*models.Media) error
	// GetByID only returns media whose event belongs to teamID.
	GetByID(ctx context.Context, teamID, id int64) (*models.Media, error)
	// FeedPosition resolves a media id to its sort key within teamID.
	FeedPosition(ctx context.Context, teamID, id int64) (*FeedPosition, error)
	// ListFeed returns up to limit items of the team ordered by
	// (created_at DESC, id DESC), strictly after the given position if any.
	ListFeed(ctx context.Context, teamID int64, after *FeedPosition, limit int) ([]models.Media, error)
	Delete(ctx context.Context, exec SQLExecutor, id int64) error
	// RecordedKeys returns the subset of keys already stored as an object or
	// thumbnail key of some media row.
	RecordedKeys(ctx context.Context, exec SQLExecutor, keys []string) (map[string]bool, error)
	// SumFileSize returns the total recorded bytes of the team's media.
	SumFileSize(ctx context.Context, exec SQLExecutor, teamID int64) (int64, error)
}

type postgresMediaRepository struct {
	db *sql.DB
}

func NewPostgresMediaRepository(db *sql.DB) MediaRepository {
	return &postgresMediaRepository{db: db}
}

const mediaWithUploaderSelect = `
	SELECT
		m.id, m.event_id, m.user_id, m.url, m.thumb_url, m.object_key, m.thumb_key,
		m.file_type, m.file_size, m.file_metadata, m.created_at,
		u.id, u.name, u.profile_img
	FROM media m
	JOIN events e ON e.id = m.event_id
	JOIN users u ON u.id = m.user_id`

func (r *postgresMediaRepository) CreateBatch(ctx context.Context, exec SQLExecutor, items []*models.Media) error {
	query := `
		INSERT INTO media (event_id, user_id, url, thumb_url, object_key, thumb_key, file_type, file_size, file_metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id`

	executor := executorOr(exec, r.db)
	for i, m := range items {
		var metadata *string
		if len(m.FileMetadata) > 0 {
			s := string(m.FileMetadata)
			metadata = &s
		}
		err := executor.QueryRowContext(ctx, query,
			m.EventID,
			m.UserID,
			m.URL,
			m.ThumbURL,
			m.ObjectKey,
			m.ThumbKey,
			m.FileType,
			m.FileSize,
			metadata,
			m.CreatedAt,
		).Scan(&m.ID)
		if err != nil {
			if _, ok := pqConstraint(err, pqForeignKeyViolation); ok {
				return ErrMediaEventInvalid
			}
			if _, ok := pqConstraint(err, pqUniqueViolation); ok {
				return fmt.Errorf("%w: index %d", ErrMediaKeyConflict, i)
			}
			return fmt.Errorf("failed to insert media at index %d: %w", i, err)
		}
	}
	return nil
}

func (r *postgresMediaRepository) GetByID(ctx context.Context, teamID, id int64) (*models.Media, error) {
	query := mediaWithUploaderSelect + ` WHERE m.id = $1 AND e.team_id = $2`

	media, err := scanMediaWithUploader(r.db.QueryRowContext(ctx, query, id, teamID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMediaNotFound
		}
		return nil, fmt.Errorf("failed to get media %d: %w", id, err)
	}
	return media, nil
}

func (r *postgresMediaRepository) FeedPosition(ctx context.Context, teamID, id int64) (*FeedPosition, error) {
	query := `
		SELECT m.created_at, m.id
		FROM media m
		JOIN events e ON e.id = m.event_id
		WHERE m.id = $1 AND e.team_id = $2`

	pos := &FeedPosition{}
	err := r.db.QueryRowContext(ctx, query, id, teamID).Scan(&pos.CreatedAt, &pos.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMediaNotFound
		}
		return nil, fmt.Errorf("failed to resolve feed position %d: %w", id, err)
	}
	return pos, nil
}

func (r *postgresMediaRepository) ListFeed(ctx context.Context, teamID int64, after *FeedPosition, limit int) ([]models.Media, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if after == nil {
		query := mediaWithUploaderSelect + `
			WHERE e.team_id = $1
			ORDER BY m.created_at DESC, m.id DESC
			LIMIT $2`
		rows, err = r.db.QueryContext(ctx, query, teamID, limit)
	} else {
		query := mediaWithUploaderSelect + `
			WHERE e.team_id = $1
				AND (m.created_at < $2 OR (m.created_at = $2 AND m.id < $3))
			ORDER BY m.created_at DESC, m.id DESC
			LIMIT $4`
		rows, err = r.db.QueryContext(ctx, query, teamID, after.CreatedAt, after.ID, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list feed for team %d: %w", teamID, err)
	}
	defer rows.Close()

	items := make([]models.Media, 0, limit)
	for rows.Next() {
		media, err := scanMediaWithUploader(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan media: %w", err)
		}
		items = append(items, *media)
	}
	return items, rows.Err()
}

func (r *postgresMediaRepository) Delete(ctx context.Context, exec SQLExecutor, id int64) error {
	result, err := executorOr(exec, r.db).ExecContext(ctx, `DELETE FROM media WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete media %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrMediaNotFound)
}

func (r *postgresMediaRepository) RecordedKeys(ctx context.Context, exec SQLExecutor, keys []string) (map[string]bool, error) {
	recorded := make(map[string]bool)
	if len(keys) == 0 {
		return recorded, nil
	}

	objectIn := make([]string, len(keys))
	thumbIn := make([]string, len(keys))
	args := make([]interface{}, 0, 2*len(keys))
	for i, k := range keys {
		objectIn[i] = fmt.Sprintf("$%d", i+1)
		thumbIn[i] = fmt.Sprintf("$%d", len(keys)+i+1)
		args = append(args, k)
	}
	for _, k := range keys {
		args = append(args, k)
	}

	query := fmt.Sprintf(`
		SELECT object_key, thumb_key
		FROM media
		WHERE object_key IN (%s) OR thumb_key IN (%s)`,
		strings.Join(objectIn, ", "), strings.Join(thumbIn, ", "))

	rows, err := executorOr(exec, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to look up recorded media keys: %w", err)
	}
	defer rows.Close()

	wanted := make(map[string]bool, len(keys))
	for _, k := range keys {
		wanted[k] = true
	}
	for rows.Next() {
		var objectKey, thumbKey string
		if err := rows.Scan(&objectKey, &thumbKey); err != nil {
			return nil, fmt.Errorf("failed to scan recorded media keys: %w", err)
		}
		if wanted[objectKey] {
			recorded[objectKey] = true
		}
		if wanted[thumbKey] {
			recorded[thumbKey] = true
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating recorded media keys: %w", err)
	}
	return recorded, nil
}

func (r *postgresMediaRepository) SumFileSize(ctx context.Context, exec SQLExecutor, teamID int64) (int64, error) {
	query := `
		SELECT COALESCE(SUM(m.file_size), 0)
		FROM media m
		JOIN events e ON e.id = m.event_id
		WHERE e.team_id = $1`

	var total int64
	if err := executorOr(exec, r.db).QueryRowContext(ctx, query, teamID).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to sum media size for team %d: %w", teamID, err)
	}
	return total, nil
}

func scanMediaWithUploader(row rowScanner) (*models.Media, error) {
	m := &models.Media{User: &models.UserSummary{}}
	var fileSize sql.NullInt64
	var metadata, profileImg sql.NullString
	err := row.Scan(
		&m.ID, &m.EventID, &m.UserID, &m.URL, &m.ThumbURL, &m.ObjectKey, &m.ThumbKey,
		&m.FileType, &fileSize, &metadata, &m.CreatedAt,
		&m.User.ID, &m.User.Name, &profileImg,
	)
	if err != nil {
		return nil, err
	}
	if fileSize.Valid {
		size := fileSize.Int64
		m.FileSize = &size
	}
	if metadata.Valid && metadata.String != "" {
		m.FileMetadata = []byte(metadata.String)
	}
	m.User.ProfileImg = nullStringPtr(profileImg)
	return m, nil
}
