package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/openkmj/timjs/models"
	"github.com/openkmj/timjs/repositories"
	"github.com/openkmj/timjs/storage"
)

type UserService interface {
	Me(ctx context.Context, user *models.User) (*Profile, error)
	UpdatePushToken(ctx context.Context, user *models.User, input PushTokenInput) error
	RequestProfileImageUpload(ctx context.Context, user *models.User, input ProfileImageUploadInput) (*storage.PresignedUpload, error)
	UpdateProfileImage(ctx context.Context, user *models.User, input ProfileImageInput) error
}

// Profile is the caller's own view: identity, team quota and team peers.
type Profile struct {
	ID           int64                `json:"id"`
	Name         string               `json:"name"`
	ProfileImg   *string              `json:"profile_img"`
	TeamID       int64                `json:"team_id"`
	TeamName     string               `json:"team_name"`
	StorageUsed  int64                `json:"storage_used"`
	StorageLimit int64                `json:"storage_limit"`
	Usage        models.StorageUsage  `json:"usage"`
	Friends      []models.UserSummary `json:"friends"`
}

type PushTokenInput struct {
	ExpoPushToken *string `json:"expo_push_token" validate:"omitempty,max=255"`
}

type ProfileImageUploadInput struct {
	FileName    string `json:"file_name" validate:"required,max=255"`
	ContentType string `json:"content_type" validate:"required,max=255"`
}

type ProfileImageInput struct {
	URL string `json:"url" validate:"required,max=1024"`
}

type userService struct {
	userRepo repositories.UserRepository
	teamRepo repositories.TeamRepository
	storage  storage.ObjectStorage
	cache    UserCache
}

func NewUserService(userRepo repositories.UserRepository, teamRepo repositories.TeamRepository, objectStorage storage.ObjectStorage, cache UserCache) UserService {
	if cache == nil {
		cache = NoopUserCache{}
	}
	return &userService{
		userRepo: userRepo,
		teamRepo: teamRepo,
		storage:  objectStorage,
		cache:    cache,
	}
}

func (s *userService) Me(ctx context.Context, user *models.User) (*Profile, error) {
	team, err := s.teamRepo.GetByID(ctx, nil, user.TeamID)
	if err != nil {
		if errors.Is(err, repositories.ErrTeamNotFound) {
			return nil, ErrTeamNotFound
		}
		return nil, fmt.Errorf("failed to load team: %w", err)
	}

	members, err := s.userRepo.ListByTeamID(ctx, user.TeamID)
	if err != nil {
		return nil, fmt.Errorf("failed to list team members: %w", err)
	}
	friends := make([]models.UserSummary, 0, len(members))
	for i := range members {
		if members[i].ID == user.ID {
			continue
		}
		friends = append(friends, members[i].Summary())
	}

	return &Profile{
		ID:           user.ID,
		Name:         user.Name,
		ProfileImg:   user.ProfileImg,
		TeamID:       team.ID,
		TeamName:     team.Name,
		StorageUsed:  team.StorageUsed,
		StorageLimit: team.StorageLimit,
		Usage:        team.Usage(),
		Friends:      friends,
	}, nil
}

func (s *userService) UpdatePushToken(ctx context.Context, user *models.User, input PushTokenInput) error {
	if err := validateStruct(input); err != nil {
		return err
	}
	token := input.ExpoPushToken
	if token != nil && strings.TrimSpace(*token) == "" {
		token = nil
	}
	if err := s.userRepo.UpdatePushToken(ctx, user.ID, token); err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to update push token: %w", err)
	}
	s.cache.Invalidate(ctx, user.APIKey)
	return nil
}

func (s *userService) RequestProfileImageUpload(ctx context.Context, user *models.User, input ProfileImageUploadInput) (*storage.PresignedUpload, error) {
	if err := validateStruct(input); err != nil {
		return nil, err
	}
	prefix := strconv.FormatInt(user.ID, 10)
	upload, err := s.storage.IssueUploadURL(ctx, input.FileName, input.ContentType, prefix, storage.KindProfile)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUpstreamUnavailable, err)
	}
	return upload, nil
}

func (s *userService) UpdateProfileImage(ctx context.Context, user *models.User, input ProfileImageInput) error {
	if err := validateStruct(input); err != nil {
		return err
	}
	if err := s.userRepo.UpdateProfileImage(ctx, user.ID, input.URL); err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to update profile image: %w", err)
	}
	s.cache.Invalidate(ctx, user.APIKey)
	return nil
}
