package models

import (
	"strings"
	"time"
)

type Event struct {
	ID          int64     `json:"id" db:"id"`
	PublicKey   string    `json:"-" db:"public_key"`
	Title       string    `json:"title" db:"title"`
	Description *string   `json:"description,omitempty" db:"description"`
	Date        time.Time `json:"date" db:"date"`
	Location    *string   `json:"location,omitempty" db:"location"`
	Tags        []string  `json:"tags" db:"-"`
	TeamID      int64     `json:"team_id" db:"team_id"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`

	Thumbnails []string `json:"thumbnails" db:"-"`
}

// JoinTags serializes tags into the comma-joined column value. An empty
// list is stored as NULL.
func JoinTags(tags []string) *string {
	cleaned := make([]string, 0, len(tags))
	for _, t := range tags {
		if t = strings.TrimSpace(t); t != "" {
			cleaned = append(cleaned, t)
		}
	}
	if len(cleaned) == 0 {
		return nil
	}
	joined := strings.Join(cleaned, ",")
	return &joined
}

func SplitTags(raw *string) []string {
	if raw == nil || *raw == "" {
		return []string{}
	}
	return strings.Split(*raw, ",")
}
