package models

import (
	"encoding/json"
	"time"
)

type Media struct {
	ID           int64           `json:"id" db:"id"`
	EventID      int64           `json:"event_id" db:"event_id"`
	UserID       int64           `json:"user_id" db:"user_id"`
	URL          string          `json:"url" db:"url"`
	ThumbURL     string          `json:"thumb_url" db:"thumb_url"`
	ObjectKey    string          `json:"-" db:"object_key"`
	ThumbKey     string          `json:"-" db:"thumb_key"`
	FileType     string          `json:"file_type" db:"file_type"`
	FileSize     *int64          `json:"file_size" db:"file_size"`
	FileMetadata json.RawMessage `json:"file_metadata,omitempty" db:"file_metadata"`
	CreatedAt    time.Time       `json:"created_at" db:"created_at"`

	User *UserSummary `json:"user,omitempty" db:"-"`
}

// SizeBytes returns the recorded size, treating an unknown size as zero.
func (m *Media) SizeBytes() int64 {
	if m.FileSize == nil || *m.FileSize < 0 {
		return 0
	}
	return *m.FileSize
}

type FeedPage struct {
	Items   []Media `json:"items"`
	Cursor  *int64  `json:"cursor"`
	HasMore bool    `json:"has_more"`
}
