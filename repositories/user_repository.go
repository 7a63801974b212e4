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
	ErrUserNotFound       = errors.New("user not found")
	ErrUserAPIKeyConflict = errors.New("user api key conflict")
	ErrUserTeamInvalid    = errors.New("user team conflict or invalid")
)

type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id int64) (*models.User, error)
	// GetByAPIKey resolves a bearer credential to its user with the team loaded.
	GetByAPIKey(ctx context.Context, apiKey string) (*models.User, error)
	ListByTeamID(ctx context.Context, teamID int64) ([]models.User, error)
	// ListPushTokens returns the non-empty push tokens of a team's members,
	// skipping excludeUserID.
	ListPushTokens(ctx context.Context, teamID, excludeUserID int64) ([]string, error)
	UpdatePushToken(ctx context.Context, id int64, token *string) error
	UpdateProfileImage(ctx context.Context, id int64, url string) error
	UpdateAPIKey(ctx context.Context, id int64, apiKey string) error
}

type postgresUserRepository struct {
	db *sql.DB
}

func NewPostgresUserRepository(db *sql.DB) UserRepository {
	return &postgresUserRepository{db: db}
}

const userWithTeamSelect = `
	SELECT
		u.id, u.name, u.api_key, u.expo_push_token, u.profile_img, u.team_id, u.created_at,
		t.id, t.name, t.storage_limit, t.storage_used, t.created_at
	FROM users u
	JOIN teams t ON t.id = u.team_id`

func (r *postgresUserRepository) Create(ctx context.Context, user *models.User) error {
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	query := `
		INSERT INTO users (name, api_key, expo_push_token, profile_img, team_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`

	err := r.db.QueryRowContext(ctx, query,
		user.Name,
		user.APIKey,
		user.ExpoPushToken,
		user.ProfileImg,
		user.TeamID,
		user.CreatedAt,
	).Scan(&user.ID)
	if err != nil {
		if _, ok := pqConstraint(err, pqUniqueViolation); ok {
			return ErrUserAPIKeyConflict
		}
		if _, ok := pqConstraint(err, pqForeignKeyViolation); ok {
			return ErrUserTeamInvalid
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (r *postgresUserRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	return r.getOne(ctx, userWithTeamSelect+` WHERE u.id = $1`, id)
}

func (r *postgresUserRepository) GetByAPIKey(ctx context.Context, apiKey string) (*models.User, error) {
	if apiKey == "" {
		return nil, ErrUserNotFound
	}
	return r.getOne(ctx, userWithTeamSelect+` WHERE u.api_key = $1`, apiKey)
}

func (r *postgresUserRepository) getOne(ctx context.Context, query string, arg interface{}) (*models.User, error) {
	user, err := scanUserWithTeam(r.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

func scanUserWithTeam(row rowScanner) (*models.User, error) {
	user := &models.User{Team: &models.Team{}}
	var pushToken, profileImg sql.NullString
	err := row.Scan(
		&user.ID, &user.Name, &user.APIKey, &pushToken, &profileImg, &user.TeamID, &user.CreatedAt,
		&user.Team.ID, &user.Team.Name, &user.Team.StorageLimit, &user.Team.StorageUsed, &user.Team.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	user.ExpoPushToken = nullStringPtr(pushToken)
	user.ProfileImg = nullStringPtr(profileImg)
	return user, nil
}

func (r *postgresUserRepository) ListByTeamID(ctx context.Context, teamID int64) ([]models.User, error) {
	query := `
		SELECT id, name, api_key, expo_push_token, profile_img, team_id, created_at
		FROM users
		WHERE team_id = $1
		ORDER BY id ASC`

	rows, err := r.db.QueryContext(ctx, query, teamID)
	if err != nil {
		return nil, fmt.Errorf("failed to list users for team %d: %w", teamID, err)
	}
	defer rows.Close()

	users := make([]models.User, 0)
	for rows.Next() {
		var u models.User
		var pushToken, profileImg sql.NullString
		if err := rows.Scan(&u.ID, &u.Name, &u.APIKey, &pushToken, &profileImg, &u.TeamID, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		u.ExpoPushToken = nullStringPtr(pushToken)
		u.ProfileImg = nullStringPtr(profileImg)
		users = append(users, u)
	}
	return users, rows.Err()
}

func (r *postgresUserRepository) ListPushTokens(ctx context.Context, teamID, excludeUserID int64) ([]string, error) {
	query := `
		SELECT expo_push_token
		FROM users
		WHERE team_id = $1 AND id <> $2 AND expo_push_token IS NOT NULL AND expo_push_token <> ''
		ORDER BY id ASC`

	rows, err := r.db.QueryContext(ctx, query, teamID, excludeUserID)
	if err != nil {
		return nil, fmt.Errorf("failed to list push tokens for team %d: %w", teamID, err)
	}
	defer rows.Close()

	tokens := make([]string, 0)
	for rows.Next() {
		var token string
		if err := rows.Scan(&token); err != nil {
			return nil, fmt.Errorf("failed to scan push token: %w", err)
		}
		tokens = append(tokens, token)
	}
	return tokens, rows.Err()
}

func (r *postgresUserRepository) UpdatePushToken(ctx context.Context, id int64, token *string) error {
	result, err := r.db.ExecContext(ctx, `UPDATE users SET expo_push_token = $1 WHERE id = $2`, token, id)
	if err != nil {
		return fmt.Errorf("failed to update push token for user %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrUserNotFound)
}

func (r *postgresUserRepository) UpdateProfileImage(ctx context.Context, id int64, url string) error {
	result, err := r.db.ExecContext(ctx, `UPDATE users SET profile_img = $1 WHERE id = $2`, url, id)
	if err != nil {
		return fmt.Errorf("failed to update profile image for user %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrUserNotFound)
}

func (r *postgresUserRepository) UpdateAPIKey(ctx context.Context, id int64, apiKey string) error {
	result, err := r.db.ExecContext(ctx, `UPDATE users SET api_key = $1 WHERE id = $2`, apiKey, id)
	if err != nil {
		if _, ok := pqConstraint(err, pqUniqueViolation); ok {
			return ErrUserAPIKeyConflict
		}
		return fmt.Errorf("failed to rotate api key for user %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrUserNotFound)
}

func nullStringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}
