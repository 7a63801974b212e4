package models

import "time"

// Team is the tenant boundary. StorageUsed and StorageLimit are kilobytes.
type Team struct {
	ID           int64     `json:"id" db:"id"`
	Name         string    `json:"name" db:"name"`
	StorageLimit int64     `json:"storage_limit" db:"storage_limit"`
	StorageUsed  int64     `json:"storage_used" db:"storage_used"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// StorageUsage is the read-side view of a team's quota.
type StorageUsage struct {
	UsedKB       int64   `json:"used_kb"`
	LimitKB      int64   `json:"limit_kb"`
	AvailableKB  int64   `json:"available_kb"`
	UsagePercent float64 `json:"usage_percent"`
}

func (t *Team) Usage() StorageUsage {
	available := t.StorageLimit - t.StorageUsed
	if available < 0 {
		available = 0
	}
	var percent float64
	if t.StorageLimit > 0 {
		percent = float64(t.StorageUsed) * 100 / float64(t.StorageLimit)
	}
	return StorageUsage{
		UsedKB:       t.StorageUsed,
		LimitKB:      t.StorageLimit,
		AvailableKB:  available,
		UsagePercent: percent,
	}
}
