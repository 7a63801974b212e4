package storage

import (
	"context"
	"fmt"

	"github.com/openkmj/timjs/config"
)

// New returns the gateway selected by cfg.Backend.
func New(ctx context.Context, cfg config.StorageConfig) (ObjectStorage, error) {
	switch cfg.Backend {
	case config.StorageBackendS3:
		gw, err := NewS3Gateway(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return gw, nil
	case config.StorageBackendMinIO:
		gw, err := NewMinIOGateway(cfg)
		if err != nil {
			return nil, err
		}
		return gw, nil
	default:
		return nil, fmt.Errorf("unsupported storage backend %q", cfg.Backend)
	}
}
