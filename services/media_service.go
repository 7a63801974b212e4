package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/openkmj/timjs/db"
	"github.com/openkmj/timjs/models"
	"github.com/openkmj/timjs/repositories"
	"github.com/openkmj/timjs/storage"
)

const (
	MaxConfirmBatch      = 50
	defaultThumbType     = "image/jpeg"
	defaultThumbFileName = "thumb.jpg"
)

type MediaService interface {
	RequestUpload(ctx context.Context, actor *models.User, input RequestUploadInput) (*UploadTargets, error)
	ConfirmUploads(ctx context.Context, actor *models.User, input ConfirmUploadsInput) ([]models.Media, error)
	GetMedia(ctx context.Context, teamID, id int64) (*models.Media, error)
	DeleteMedia(ctx context.Context, actor *models.User, id int64) error
}

type RequestUploadInput struct {
	EventID           int64  `json:"event_id" validate:"required,gt=0"`
	FileName          string `json:"file_name" validate:"required,max=255"`
	ContentType       string `json:"content_type" validate:"required,max=255"`
	FileSize          *int64 `json:"file_size" validate:"omitempty,gte=0"`
	ThumbnailFileName string `json:"thumbnail_file_name" validate:"omitempty,max=255"`
	ThumbnailType     string `json:"thumbnail_content_type" validate:"omitempty,max=255"`
}

type UploadTargets struct {
	Original  *storage.PresignedUpload `json:"original"`
	Thumbnail *storage.PresignedUpload `json:"thumbnail"`
}

type PendingUpload struct {
	EventID      int64           `json:"event_id" validate:"required,gt=0"`
	ObjectKey    string          `json:"s3_key" validate:"required,max=512"`
	ThumbKey     string          `json:"thumb_s3_key" validate:"required,max=512"`
	FileMetadata json.RawMessage `json:"file_metadata,omitempty"`
}

type ConfirmUploadsInput struct {
	Items []PendingUpload `json:"media_list" validate:"required,min=1,max=50,dive"`
}

type mediaService struct {
	db        *sql.DB
	teamRepo  repositories.TeamRepository
	eventRepo repositories.EventRepository
	mediaRepo repositories.MediaRepository
	ledger    *QuotaLedger
	storage   storage.ObjectStorage
	notifier  *TeamNotifier
	logger    *slog.Logger
	now       func() time.Time
}

func NewMediaService(
	sqlDB *sql.DB,
	teamRepo repositories.TeamRepository,
	eventRepo repositories.EventRepository,
	mediaRepo repositories.MediaRepository,
	ledger *QuotaLedger,
	objectStorage storage.ObjectStorage,
	notifier *TeamNotifier,
	logger *slog.Logger,
) MediaService {
	return &mediaService{
		db:        sqlDB,
		teamRepo:  teamRepo,
		eventRepo: eventRepo,
		mediaRepo: mediaRepo,
		ledger:    ledger,
		storage:   objectStorage,
		notifier:  notifier,
		logger:    logger,
		now:       time.Now,
	}
}

func (s *mediaService) loadTeam(ctx context.Context, teamID int64) (*models.Team, error) {
	team, err := s.teamRepo.GetByID(ctx, nil, teamID)
	if err != nil {
		if errors.Is(err, repositories.ErrTeamNotFound) {
			return nil, ErrTeamNotFound
		}
		return nil, fmt.Errorf("failed to load team %d: %w", teamID, err)
	}
	return team, nil
}

func (s *mediaService) loadEvent(ctx context.Context, teamID, eventID int64) (*models.Event, error) {
	event, err := s.eventRepo.GetByID(ctx, teamID, eventID)
	if err != nil {
		if errors.Is(err, repositories.ErrEventNotFound) {
			return nil, ErrEventNotFound
		}
		return nil, fmt.Errorf("failed to load event %d: %w", eventID, err)
	}
	return event, nil
}

func (s *mediaService) RequestUpload(ctx context.Context, actor *models.User, input RequestUploadInput) (*UploadTargets, error) {
	if err := validateStruct(input); err != nil {
		return nil, err
	}

	event, err := s.loadEvent(ctx, actor.TeamID, input.EventID)
	if err != nil {
		return nil, err
	}
	team, err := s.loadTeam(ctx, actor.TeamID)
	if err != nil {
		return nil, err
	}

	// Admit at least one byte so a team already at its limit is refused.
	declared := int64(1)
	if input.FileSize != nil && *input.FileSize > declared {
		declared = *input.FileSize
	}
	if !s.ledger.Check(team, declared) {
		return nil, ErrQuotaExceeded
	}

	original, err := s.storage.IssueUploadURL(ctx, input.FileName, input.ContentType, event.PublicKey, storage.KindMedia)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUpstreamUnavailable, err)
	}

	thumbName, thumbType := input.ThumbnailFileName, input.ThumbnailType
	if thumbName == "" {
		thumbName = defaultThumbFileName
	}
	if thumbType == "" {
		thumbType = defaultThumbType
	}
	thumbnail, err := s.storage.IssueUploadURL(ctx, thumbName, thumbType, event.PublicKey, storage.KindMediaThumb)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUpstreamUnavailable, err)
	}

	return &UploadTargets{Original: original, Thumbnail: thumbnail}, nil
}

func (s *mediaService) headObject(ctx context.Context, key string) (*storage.ObjectInfo, error) {
	info, err := s.storage.HeadObject(ctx, key)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrObjectNotFound, key)
		}
		return nil, fmt.Errorf("%w: %w", ErrUpstreamUnavailable, err)
	}
	return info, nil
}

// ConfirmUploads records a batch of objects the client already uploaded. The
// batch is all-or-nothing: every object is verified against storage and the
// quota before anything is written, and the rows plus the quota charge are
// committed together.
func (s *mediaService) ConfirmUploads(ctx context.Context, actor *models.User, input ConfirmUploadsInput) ([]models.Media, error) {
	if err := validateStruct(input); err != nil {
		return nil, err
	}
	for i, item := range input.Items {
		if len(item.FileMetadata) > 0 && !json.Valid(item.FileMetadata) {
			return nil, newValidationError(fmt.Sprintf("media_list[%d].file_metadata", i), "must be valid JSON")
		}
	}
	keys, err := batchKeys(input.Items)
	if err != nil {
		return nil, err
	}

	team, err := s.loadTeam(ctx, actor.TeamID)
	if err != nil {
		return nil, err
	}

	recorded, err := s.mediaRepo.RecordedKeys(ctx, s.db, keys)
	if err != nil {
		return nil, fmt.Errorf("failed to check recorded media: %w", err)
	}
	for _, k := range keys {
		if recorded[k] {
			return nil, fmt.Errorf("%w: %s", ErrMediaAlreadyStored, k)
		}
	}
	tracker := s.ledger.NewTracker(team)

	events := make(map[int64]*models.Event)
	createdAt := s.now().UTC().Truncate(time.Microsecond)
	items := make([]*models.Media, 0, len(input.Items))

	for i, pending := range input.Items {
		event, ok := events[pending.EventID]
		if !ok {
			event, err = s.loadEvent(ctx, actor.TeamID, pending.EventID)
			if err != nil {
				return nil, err
			}
			events[pending.EventID] = event
		}

		if !storage.KeyBelongs(pending.ObjectKey, storage.KindMedia, event.PublicKey) {
			return nil, newValidationError(fmt.Sprintf("media_list[%d].s3_key", i), "does not belong to the event")
		}
		if !storage.KeyBelongs(pending.ThumbKey, storage.KindMediaThumb, event.PublicKey) {
			return nil, newValidationError(fmt.Sprintf("media_list[%d].thumb_s3_key", i), "does not belong to the event")
		}

		original, err := s.headObject(ctx, pending.ObjectKey)
		if err != nil {
			return nil, err
		}
		if _, err := s.headObject(ctx, pending.ThumbKey); err != nil {
			return nil, err
		}

		if !tracker.Add(original.Size) {
			return nil, ErrQuotaExceeded
		}

		size := original.Size
		items = append(items, &models.Media{
			EventID:      event.ID,
			UserID:       actor.ID,
			URL:          s.storage.PublicURL(pending.ObjectKey),
			ThumbURL:     s.storage.PublicURL(pending.ThumbKey),
			ObjectKey:    pending.ObjectKey,
			ThumbKey:     pending.ThumbKey,
			FileType:     original.ContentType,
			FileSize:     &size,
			FileMetadata: pending.FileMetadata,
			CreatedAt:    createdAt,
		})
	}

	err = db.WithTransaction(ctx, s.db, func(tx *sql.Tx) error {
		if err := s.ledger.Increase(ctx, tx, team.ID, tracker.TotalBytes()); err != nil {
			return err
		}
		return s.mediaRepo.CreateBatch(ctx, tx, items)
	})
	if err != nil {
		if errors.Is(err, ErrQuotaExceeded) {
			return nil, ErrQuotaExceeded
		}
		if errors.Is(err, repositories.ErrMediaEventInvalid) {
			return nil, ErrEventNotFound
		}
		if errors.Is(err, repositories.ErrMediaKeyConflict) {
			return nil, ErrMediaAlreadyStored
		}
		return nil, fmt.Errorf("failed to record uploads: %w", err)
	}

	created := make([]models.Media, 0, len(items))
	for _, m := range items {
		summary := actor.Summary()
		m.User = &summary
		created = append(created, *m)
	}

	s.notifyUploaded(ctx, actor, events, created)
	return created, nil
}

// batchKeys lists every object and thumbnail key of the batch in input order.
// A key may appear only once across the whole batch.
func batchKeys(items []PendingUpload) ([]string, error) {
	seen := make(map[string]bool, 2*len(items))
	keys := make([]string, 0, 2*len(items))
	for i, item := range items {
		for _, k := range []struct{ field, key string }{
			{"s3_key", item.ObjectKey},
			{"thumb_s3_key", item.ThumbKey},
		} {
			if seen[k.key] {
				return nil, newValidationError(fmt.Sprintf("media_list[%d].%s", i, k.field), "is repeated in the batch")
			}
			seen[k.key] = true
			keys = append(keys, k.key)
		}
	}
	return keys, nil
}

func (s *mediaService) notifyUploaded(ctx context.Context, actor *models.User, events map[int64]*models.Event, created []models.Media) {
	title := "New photos"
	data := map[string]interface{}{"count": len(created)}
	if len(events) == 1 {
		for _, e := range events {
			title = e.Title
			data["event_id"] = e.ID
		}
	}

	body := fmt.Sprintf("%s uploaded a photo", actor.Name)
	if len(created) > 1 {
		body = fmt.Sprintf("%s uploaded %d photos", actor.Name, len(created))
	}

	s.notifier.NotifyTeam(ctx, TeamNotification{
		TeamID:  actor.TeamID,
		ActorID: actor.ID,
		Type:    NotificationMediaCreated,
		Title:   title,
		Body:    body,
		Data:    data,
	})
}

func (s *mediaService) GetMedia(ctx context.Context, teamID, id int64) (*models.Media, error) {
	media, err := s.mediaRepo.GetByID(ctx, teamID, id)
	if err != nil {
		if errors.Is(err, repositories.ErrMediaNotFound) {
			return nil, ErrMediaNotFound
		}
		return nil, fmt.Errorf("failed to get media %d: %w", id, err)
	}
	return media, nil
}

// DeleteMedia removes the row and releases its quota in one transaction. The
// stored objects are removed afterwards; failures there are only logged.
func (s *mediaService) DeleteMedia(ctx context.Context, actor *models.User, id int64) error {
	media, err := s.GetMedia(ctx, actor.TeamID, id)
	if err != nil {
		return err
	}
	if media.UserID != actor.ID {
		return ErrForbiddenOperation
	}

	err = db.WithTransaction(ctx, s.db, func(tx *sql.Tx) error {
		if err := s.mediaRepo.Delete(ctx, tx, media.ID); err != nil {
			return err
		}
		return s.ledger.Decrease(ctx, tx, actor.TeamID, media.SizeBytes())
	})
	if err != nil {
		if errors.Is(err, repositories.ErrMediaNotFound) {
			return ErrMediaNotFound
		}
		return fmt.Errorf("failed to delete media %d: %w", id, err)
	}

	for _, key := range []string{media.ObjectKey, media.ThumbKey} {
		if key == "" {
			continue
		}
		if err := s.storage.Delete(ctx, key); err != nil {
			s.logger.WarnContext(ctx, "failed to remove stored object", slog.Int64("media_id", media.ID), slog.String("key", key), slog.Any("error", err))
		}
	}
	return nil
}
