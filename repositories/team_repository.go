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
	ErrTeamNotFound     = errors.New("team not found")
	ErrTeamStorageLimit = errors.New("team storage limit would be exceeded")
	ErrTeamNameRequired = errors.New("team name is required")
)

type TeamRepository interface {
	Create(ctx context.Context, team *models.Team) error
	GetByID(ctx context.Context, exec SQLExecutor, id int64) (*models.Team, error)
	List(ctx context.Context) ([]models.Team, error)
	UpdateStorageLimit(ctx context.Context, id int64, limitKB int64) error
	// IncreaseUsage adds kb to storage_used only if the result stays within
	// storage_limit; otherwise it returns ErrTeamStorageLimit and writes nothing.
	IncreaseUsage(ctx context.Context, exec SQLExecutor, id int64, kb int64) error
	// DecreaseUsage subtracts kb from storage_used, flooring at zero.
	DecreaseUsage(ctx context.Context, exec SQLExecutor, id int64, kb int64) error
	SetUsage(ctx context.Context, exec SQLExecutor, id int64, kb int64) error
}

type postgresTeamRepository struct {
	db *sql.DB
}

func NewPostgresTeamRepository(db *sql.DB) TeamRepository {
	return &postgresTeamRepository{db: db}
}

func (r *postgresTeamRepository) Create(ctx context.Context, team *models.Team) error {
	if team.Name == "" {
		return ErrTeamNameRequired
	}
	if team.CreatedAt.IsZero() {
		team.CreatedAt = time.Now().UTC()
	}
	query := `
		INSERT INTO teams (name, storage_limit, storage_used, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id`

	err := r.db.QueryRowContext(ctx, query,
		team.Name, team.StorageLimit, team.StorageUsed, team.CreatedAt,
	).Scan(&team.ID)
	if err != nil {
		return fmt.Errorf("failed to create team: %w", err)
	}
	return nil
}

func (r *postgresTeamRepository) GetByID(ctx context.Context, exec SQLExecutor, id int64) (*models.Team, error) {
	query := `
		SELECT id, name, storage_limit, storage_used, created_at
		FROM teams
		WHERE id = $1`

	team := &models.Team{}
	err := executorOr(exec, r.db).QueryRowContext(ctx, query, id).Scan(
		&team.ID, &team.Name, &team.StorageLimit, &team.StorageUsed, &team.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTeamNotFound
		}
		return nil, fmt.Errorf("failed to get team %d: %w", id, err)
	}
	return team, nil
}

func (r *postgresTeamRepository) List(ctx context.Context) ([]models.Team, error) {
	query := `
		SELECT id, name, storage_limit, storage_used, created_at
		FROM teams
		ORDER BY id ASC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list teams: %w", err)
	}
	defer rows.Close()

	teams := make([]models.Team, 0)
	for rows.Next() {
		var t models.Team
		if err := rows.Scan(&t.ID, &t.Name, &t.StorageLimit, &t.StorageUsed, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan team: %w", err)
		}
		teams = append(teams, t)
	}
	return teams, rows.Err()
}

func (r *postgresTeamRepository) UpdateStorageLimit(ctx context.Context, id int64, limitKB int64) error {
	result, err := r.db.ExecContext(ctx, `UPDATE teams SET storage_limit = $1 WHERE id = $2`, limitKB, id)
	if err != nil {
		return fmt.Errorf("failed to update storage limit for team %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrTeamNotFound)
}

func (r *postgresTeamRepository) IncreaseUsage(ctx context.Context, exec SQLExecutor, id int64, kb int64) error {
	query := `
		UPDATE teams
		SET storage_used = storage_used + $1
		WHERE id = $2 AND storage_used + $1 <= storage_limit`

	result, err := executorOr(exec, r.db).ExecContext(ctx, query, kb, id)
	if err != nil {
		return fmt.Errorf("failed to increase storage usage for team %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrTeamStorageLimit)
}

func (r *postgresTeamRepository) DecreaseUsage(ctx context.Context, exec SQLExecutor, id int64, kb int64) error {
	query := `
		UPDATE teams
		SET storage_used = CASE WHEN storage_used > $1 THEN storage_used - $1 ELSE 0 END
		WHERE id = $2`

	result, err := executorOr(exec, r.db).ExecContext(ctx, query, kb, id)
	if err != nil {
		return fmt.Errorf("failed to decrease storage usage for team %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrTeamNotFound)
}

func (r *postgresTeamRepository) SetUsage(ctx context.Context, exec SQLExecutor, id int64, kb int64) error {
	result, err := executorOr(exec, r.db).ExecContext(ctx, `UPDATE teams SET storage_used = $1 WHERE id = $2`, kb, id)
	if err != nil {
		return fmt.Errorf("failed to set storage usage for team %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrTeamNotFound)
}
