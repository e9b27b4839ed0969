package kvstore

import (
	"context"
	"fmt"

	"fakearchive/internal/config"
)

// NewBackend creates the backend selected by STORE_BACKEND.
func NewBackend(ctx context.Context, cfg config.Config) (Backend, error) {
	switch cfg.StoreBackend {
	case "memory":
		return NewMemoryBackend(), nil
	case "", "file":
		return NewFileBackend(cfg.StorePath)
	case "mysql":
		return OpenMySQL(ctx, cfg.DSN())
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}
