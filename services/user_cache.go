package services

import (
	"context"

	"github.com/openkmj/timjs/models"
)

// UserCache memoizes API key lookups. Implementations must tolerate backend
// failures by reporting a miss.
type UserCache interface {
	Get(ctx context.Context, apiKey string) (*models.User, bool)
	Set(ctx context.Context, user *models.User)
	Invalidate(ctx context.Context, apiKey string)
}

// NoopUserCache disables caching.
type NoopUserCache struct{}

func (NoopUserCache) Get(context.Context, string) (*models.User, bool) { return nil, false }
func (NoopUserCache) Set(context.Context, *models.User)                {}
func (NoopUserCache) Invalidate(context.Context, string)               {}
