package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/openkmj/timjs/models"
	"github.com/openkmj/timjs/repositories"
)

const (
	DefaultFeedLimit = 20
	MaxFeedLimit     = 100
)

type FeedQuery struct {
	Limit  *int   `json:"limit" schema:"limit" validate:"omitempty,min=1,max=100"`
	Cursor *int64 `json:"cursor" schema:"cursor"`
}

type FeedService interface {
	// Page returns the team's media newest first. The cursor is the id of the
	// last item already seen; an unknown or foreign cursor restarts from the
	// newest item.
	Page(ctx context.Context, teamID int64, query FeedQuery) (*models.FeedPage, error)
}

type feedService struct {
	mediaRepo repositories.MediaRepository
}

func NewFeedService(mediaRepo repositories.MediaRepository) FeedService {
	return &feedService{mediaRepo: mediaRepo}
}

func (s *feedService) Page(ctx context.Context, teamID int64, query FeedQuery) (*models.FeedPage, error) {
	if err := validateStruct(query); err != nil {
		return nil, err
	}
	limit := DefaultFeedLimit
	if query.Limit != nil {
		limit = *query.Limit
	}

	var after *repositories.FeedPosition
	if query.Cursor != nil {
		pos, err := s.mediaRepo.FeedPosition(ctx, teamID, *query.Cursor)
		switch {
		case err == nil:
			after = pos
		case errors.Is(err, repositories.ErrMediaNotFound):
		default:
			return nil, fmt.Errorf("failed to resolve feed cursor: %w", err)
		}
	}

	items, err := s.mediaRepo.ListFeed(ctx, teamID, after, limit+1)
	if err != nil {
		return nil, fmt.Errorf("failed to load feed: %w", err)
	}

	page := &models.FeedPage{Items: items}
	if len(items) > limit {
		page.Items = items[:limit]
		page.HasMore = true
		next := page.Items[limit-1].ID
		page.Cursor = &next
	}
	if page.Items == nil {
		page.Items = []models.Media{}
	}
	return page, nil
}
