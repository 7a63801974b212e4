package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/openkmj/timjs/db"
	"github.com/openkmj/timjs/models"
	"github.com/openkmj/timjs/repositories"
)

const bytesPerKB = 1024

// SizeKB rounds a byte count up to whole kilobytes. Non-positive sizes are
// free.
func SizeKB(bytes int64) int64 {
	if bytes <= 0 {
		return 0
	}
	return (bytes + bytesPerKB - 1) / bytesPerKB
}

// QuotaLedger keeps teams.storage_used in step with the media it accounts
// for. Mutations run on the caller's transaction.
type QuotaLedger struct {
	db        *sql.DB
	teamRepo  repositories.TeamRepository
	mediaRepo repositories.MediaRepository
}

func NewQuotaLedger(sqlDB *sql.DB, teamRepo repositories.TeamRepository, mediaRepo repositories.MediaRepository) *QuotaLedger {
	return &QuotaLedger{db: sqlDB, teamRepo: teamRepo, mediaRepo: mediaRepo}
}

// Check reports whether additionalBytes still fit in the team's budget.
func (q *QuotaLedger) Check(team *models.Team, additionalBytes int64) bool {
	return team.StorageUsed+SizeKB(additionalBytes) <= team.StorageLimit
}

// Increase charges a whole batch at once: totalBytes is the sum of every item
// and is rounded a single time.
func (q *QuotaLedger) Increase(ctx context.Context, exec repositories.SQLExecutor, teamID, totalBytes int64) error {
	kb := SizeKB(totalBytes)
	if kb == 0 {
		return nil
	}
	err := q.teamRepo.IncreaseUsage(ctx, exec, teamID, kb)
	if err != nil {
		if errors.Is(err, repositories.ErrTeamStorageLimit) {
			return ErrQuotaExceeded
		}
		return fmt.Errorf("failed to increase storage usage: %w", err)
	}
	return nil
}

// Decrease releases bytes, never taking storage_used below zero.
func (q *QuotaLedger) Decrease(ctx context.Context, exec repositories.SQLExecutor, teamID, bytes int64) error {
	kb := SizeKB(bytes)
	if kb == 0 {
		return nil
	}
	err := q.teamRepo.DecreaseUsage(ctx, exec, teamID, kb)
	if err != nil {
		if errors.Is(err, repositories.ErrTeamNotFound) {
			return ErrTeamNotFound
		}
		return fmt.Errorf("failed to decrease storage usage: %w", err)
	}
	return nil
}

// Reconcile recomputes storage_used from the recorded sizes of the team's
// media and returns the corrected team.
func (q *QuotaLedger) Reconcile(ctx context.Context, teamID int64) (*models.Team, error) {
	var team *models.Team
	err := db.WithTransaction(ctx, q.db, func(tx *sql.Tx) error {
		var err error
		team, err = q.teamRepo.GetByID(ctx, tx, teamID)
		if err != nil {
			return err
		}
		total, err := q.mediaRepo.SumFileSize(ctx, tx, teamID)
		if err != nil {
			return err
		}
		team.StorageUsed = SizeKB(total)
		return q.teamRepo.SetUsage(ctx, tx, teamID, team.StorageUsed)
	})
	if err != nil {
		if errors.Is(err, repositories.ErrTeamNotFound) {
			return nil, ErrTeamNotFound
		}
		return nil, fmt.Errorf("failed to reconcile storage for team %d: %w", teamID, err)
	}
	return team, nil
}

// Tracker is a running admission check over a batch, seeded from one read of
// the team.
type Tracker struct {
	usedKB     int64
	limitKB    int64
	totalBytes int64
}

func (q *QuotaLedger) NewTracker(team *models.Team) *Tracker {
	return &Tracker{usedKB: team.StorageUsed, limitKB: team.StorageLimit}
}

// Add accepts bytes only if the rounded batch total still fits. A rejected
// call leaves the total unchanged.
func (t *Tracker) Add(bytes int64) bool {
	next := t.totalBytes
	if bytes > 0 {
		next += bytes
	}
	if t.usedKB+SizeKB(next) > t.limitKB {
		return false
	}
	t.totalBytes = next
	return true
}

func (t *Tracker) TotalBytes() int64 {
	return t.totalBytes
}
