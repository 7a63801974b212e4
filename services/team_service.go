package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/openkmj/timjs/models"
	"github.com/openkmj/timjs/repositories"
	"github.com/openkmj/timjs/utils"
)

const apiKeyAttempts = 3

// TeamService backs the administrative surface: tenants, members and their
// credentials.
type TeamService interface {
	CreateTeam(ctx context.Context, input CreateTeamInput) (*models.Team, error)
	ListTeams(ctx context.Context) ([]models.Team, error)
	SetStorageLimit(ctx context.Context, teamID int64, input StorageLimitInput) (*models.Team, error)
	ReconcileStorage(ctx context.Context, teamID int64) (*models.Team, error)
	CreateUser(ctx context.Context, input CreateUserInput) (*models.User, error)
	RotateAPIKey(ctx context.Context, userID int64) (*models.User, error)
}

type CreateTeamInput struct {
	Name           string `json:"name" validate:"required,max=100"`
	StorageLimitKB *int64 `json:"storage_limit" validate:"omitempty,gt=0"`
}

type StorageLimitInput struct {
	StorageLimitKB int64 `json:"storage_limit" validate:"required,gt=0"`
}

type CreateUserInput struct {
	TeamID int64  `json:"team_id" validate:"required,gt=0"`
	Name   string `json:"name" validate:"required,max=100"`
}

type teamService struct {
	teamRepo       repositories.TeamRepository
	userRepo       repositories.UserRepository
	ledger         *QuotaLedger
	cache          UserCache
	defaultLimitKB int64
}

func NewTeamService(
	teamRepo repositories.TeamRepository,
	userRepo repositories.UserRepository,
	ledger *QuotaLedger,
	cache UserCache,
	defaultLimitKB int64,
) TeamService {
	if cache == nil {
		cache = NoopUserCache{}
	}
	return &teamService{
		teamRepo:       teamRepo,
		userRepo:       userRepo,
		ledger:         ledger,
		cache:          cache,
		defaultLimitKB: defaultLimitKB,
	}
}

func (s *teamService) CreateTeam(ctx context.Context, input CreateTeamInput) (*models.Team, error) {
	if err := validateStruct(input); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, newValidationError("name", "must be provided")
	}

	team := &models.Team{Name: name, StorageLimit: s.defaultLimitKB}
	if input.StorageLimitKB != nil {
		team.StorageLimit = *input.StorageLimitKB
	}
	if err := s.teamRepo.Create(ctx, team); err != nil {
		return nil, fmt.Errorf("failed to create team: %w", err)
	}
	return team, nil
}

func (s *teamService) ListTeams(ctx context.Context) ([]models.Team, error) {
	teams, err := s.teamRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list teams: %w", err)
	}
	return teams, nil
}

func (s *teamService) SetStorageLimit(ctx context.Context, teamID int64, input StorageLimitInput) (*models.Team, error) {
	if err := validateStruct(input); err != nil {
		return nil, err
	}
	if err := s.teamRepo.UpdateStorageLimit(ctx, teamID, input.StorageLimitKB); err != nil {
		if errors.Is(err, repositories.ErrTeamNotFound) {
			return nil, ErrTeamNotFound
		}
		return nil, fmt.Errorf("failed to update storage limit: %w", err)
	}
	team, err := s.teamRepo.GetByID(ctx, nil, teamID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload team %d: %w", teamID, err)
	}
	return team, nil
}

func (s *teamService) ReconcileStorage(ctx context.Context, teamID int64) (*models.Team, error) {
	return s.ledger.Reconcile(ctx, teamID)
}

func (s *teamService) CreateUser(ctx context.Context, input CreateUserInput) (*models.User, error) {
	if err := validateStruct(input); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, newValidationError("name", "must be provided")
	}

	user := &models.User{Name: name, TeamID: input.TeamID}
	var err error
	for attempt := 0; attempt < apiKeyAttempts; attempt++ {
		user.APIKey, err = utils.GenerateAPIKey()
		if err != nil {
			return nil, err
		}
		err = s.userRepo.Create(ctx, user)
		if !errors.Is(err, repositories.ErrUserAPIKeyConflict) {
			break
		}
	}
	if err != nil {
		switch {
		case errors.Is(err, repositories.ErrUserTeamInvalid):
			return nil, ErrTeamNotFound
		case errors.Is(err, repositories.ErrUserAPIKeyConflict):
			return nil, ErrAPIKeyConflict
		default:
			return nil, fmt.Errorf("failed to create user: %w", err)
		}
	}
	return user, nil
}

func (s *teamService) RotateAPIKey(ctx context.Context, userID int64) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to load user %d: %w", userID, err)
	}
	previous := user.APIKey

	for attempt := 0; attempt < apiKeyAttempts; attempt++ {
		user.APIKey, err = utils.GenerateAPIKey()
		if err != nil {
			return nil, err
		}
		err = s.userRepo.UpdateAPIKey(ctx, user.ID, user.APIKey)
		if !errors.Is(err, repositories.ErrUserAPIKeyConflict) {
			break
		}
	}
	if err != nil {
		if errors.Is(err, repositories.ErrUserAPIKeyConflict) {
			return nil, ErrAPIKeyConflict
		}
		return nil, fmt.Errorf("failed to rotate api key: %w", err)
	}

	s.cache.Invalidate(ctx, previous)
	return user, nil
}
