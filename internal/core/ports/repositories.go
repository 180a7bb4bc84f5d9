package ports

import (
	"context"
	"time"

	"github.com/pipdock/backend/internal/domain"
)

// RegistryCacheRepository persists registry lookup results. Get
// returns (nil, nil) when no entry exists; TTL filtering is the
// caller's concern.
type RegistryCacheRepository interface {
	Get(ctx context.Context, name string) (*domain.RegistryEntry, error)
	Put(ctx context.Context, entry *domain.RegistryEntry) error
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
	DeleteAll(ctx context.Context) (int64, error)
	Count(ctx context.Context) (int64, time.Time, error)
}

// SettingRepository is a key-value store for user settings and other
// small persisted documents.
type SettingRepository interface {
	Get(ctx context.Context, key string) (*domain.Setting, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}
