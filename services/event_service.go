package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/openkmj/timjs/models"
	"github.com/openkmj/timjs/repositories"
	"github.com/openkmj/timjs/utils"
)

const (
	ThumbnailsPerEvent = 3
	publicKeyAttempts  = 3
)

type EventService interface {
	ListEvents(ctx context.Context, teamID int64) ([]models.Event, error)
	GetEvent(ctx context.Context, teamID, id int64) (*models.Event, error)
	CreateEvent(ctx context.Context, actor *models.User, input CreateEventInput) (*models.Event, error)
	UpdateEvent(ctx context.Context, teamID, id int64, input UpdateEventInput) (*models.Event, error)
	DeleteEvent(ctx context.Context, teamID, id int64) error
}

type CreateEventInput struct {
	Title       string     `json:"title" validate:"required,max=200"`
	Description *string    `json:"description" validate:"omitempty,max=2000"`
	Date        *time.Time `json:"date" validate:"required"`
	Location    *string    `json:"location" validate:"omitempty,max=255"`
	Tags        []string   `json:"tags" validate:"omitempty,max=20,dive,max=50,excludes=0x2C"`
}

// UpdateEventInput is a partial update: nil fields are left unchanged and an
// empty tag list clears the tags.
type UpdateEventInput struct {
	Title       *string    `json:"title" validate:"omitempty,max=200"`
	Description *string    `json:"description" validate:"omitempty,max=2000"`
	Date        *time.Time `json:"date"`
	Location    *string    `json:"location" validate:"omitempty,max=255"`
	Tags        *[]string  `json:"tags" validate:"omitempty,max=20,dive,max=50,excludes=0x2C"`
}

type eventService struct {
	eventRepo repositories.EventRepository
	notifier  *TeamNotifier
}

func NewEventService(eventRepo repositories.EventRepository, notifier *TeamNotifier) EventService {
	return &eventService{
		eventRepo: eventRepo,
		notifier:  notifier,
	}
}

func (s *eventService) ListEvents(ctx context.Context, teamID int64) ([]models.Event, error) {
	events, err := s.eventRepo.ListByTeam(ctx, teamID)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	if len(events) == 0 {
		return []models.Event{}, nil
	}

	thumbs, err := s.eventRepo.ListThumbnails(ctx, teamID, ThumbnailsPerEvent)
	if err != nil {
		return nil, fmt.Errorf("failed to load event thumbnails: %w", err)
	}
	for i := range events {
		if urls, ok := thumbs[events[i].ID]; ok {
			events[i].Thumbnails = urls
		}
	}
	return events, nil
}

func (s *eventService) GetEvent(ctx context.Context, teamID, id int64) (*models.Event, error) {
	event, err := s.eventRepo.GetByID(ctx, teamID, id)
	if err != nil {
		if errors.Is(err, repositories.ErrEventNotFound) {
			return nil, ErrEventNotFound
		}
		return nil, fmt.Errorf("failed to get event %d: %w", id, err)
	}
	return event, nil
}

func (s *eventService) CreateEvent(ctx context.Context, actor *models.User, input CreateEventInput) (*models.Event, error) {
	if err := validateStruct(input); err != nil {
		return nil, err
	}
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, newValidationError("title", "must be provided")
	}

	event := &models.Event{
		Title:       title,
		Description: input.Description,
		Date:        input.Date.UTC(),
		Location:    input.Location,
		Tags:        input.Tags,
		TeamID:      actor.TeamID,
	}

	var err error
	for attempt := 0; attempt < publicKeyAttempts; attempt++ {
		event.PublicKey, err = utils.NewPublicKey()
		if err != nil {
			return nil, err
		}
		err = s.eventRepo.Create(ctx, event)
		if !errors.Is(err, repositories.ErrEventKeyConflict) {
			break
		}
	}
	if err != nil {
		if errors.Is(err, repositories.ErrEventTeamInvalid) {
			return nil, ErrTeamNotFound
		}
		return nil, fmt.Errorf("failed to create event: %w", err)
	}

	event.Tags = models.SplitTags(models.JoinTags(event.Tags))
	event.Thumbnails = []string{}

	s.notifier.NotifyTeam(ctx, TeamNotification{
		TeamID:  actor.TeamID,
		ActorID: actor.ID,
		Type:    NotificationEventCreated,
		Title:   "New event",
		Body:    fmt.Sprintf("%s created %s", actor.Name, event.Title),
		Data:    map[string]interface{}{"event_id": event.ID},
	})
	return event, nil
}

func (s *eventService) UpdateEvent(ctx context.Context, teamID, id int64, input UpdateEventInput) (*models.Event, error) {
	if err := validateStruct(input); err != nil {
		return nil, err
	}

	event, err := s.GetEvent(ctx, teamID, id)
	if err != nil {
		return nil, err
	}

	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" {
			return nil, newValidationError("title", "must not be empty")
		}
		event.Title = title
	}
	if input.Description != nil {
		event.Description = input.Description
	}
	if input.Date != nil {
		event.Date = input.Date.UTC()
	}
	if input.Location != nil {
		event.Location = input.Location
	}
	if input.Tags != nil {
		event.Tags = *input.Tags
	}

	if err := s.eventRepo.Update(ctx, event); err != nil {
		if errors.Is(err, repositories.ErrEventNotFound) {
			return nil, ErrEventNotFound
		}
		return nil, fmt.Errorf("failed to update event %d: %w", id, err)
	}
	event.Tags = models.SplitTags(models.JoinTags(event.Tags))
	return event, nil
}

func (s *eventService) DeleteEvent(ctx context.Context, teamID, id int64) error {
	if _, err := s.GetEvent(ctx, teamID, id); err != nil {
		return err
	}

	hasMedia, err := s.eventRepo.HasMedia(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to check event media: %w", err)
	}
	if hasMedia {
		return ErrEventHasMedia
	}

	// The delete statement re-checks for media, closing the gap since HasMedia.
	err = s.eventRepo.Delete(ctx, teamID, id)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repositories.ErrEventHasMedia):
		return ErrEventHasMedia
	case errors.Is(err, repositories.ErrEventNotFound):
		return ErrEventNotFound
	default:
		return fmt.Errorf("failed to delete event %d: %w", id, err)
	}
}
