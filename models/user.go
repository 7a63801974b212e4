package models

import "time"

type User struct {
	ID            int64     `json:"id" db:"id"`
	Name          string    `json:"name" db:"name"`
	APIKey        string    `json:"-" db:"api_key"`
	ExpoPushToken *string   `json:"expo_push_token,omitempty" db:"expo_push_token"`
	ProfileImg    *string   `json:"profile_img,omitempty" db:"profile_img"`
	TeamID        int64     `json:"team_id" db:"team_id"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`

	Team *Team `json:"team,omitempty" db:"-"`
}

// UserSummary is the denormalized user shape embedded in feed items and
// friend lists.
type UserSummary struct {
	ID         int64   `json:"id"`
	Name       string  `json:"name"`
	ProfileImg *string `json:"profile_img,omitempty"`
}

func (u *User) Summary() UserSummary {
	return UserSummary{ID: u.ID, Name: u.Name, ProfileImg: u.ProfileImg}
}
