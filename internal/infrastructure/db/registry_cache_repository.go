package db

import (
	"context"
	"errors"
	"time"

	"github.com/pipdock/backend/internal/core/ports"
	"github.com/pipdock/backend/internal/domain"
	"github.com/pipdock/backend/internal/infrastructure/logger"
	"gorm.io/gorm"
)

type registryCacheRepository struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewRegistryCacheRepository(db *gorm.DB, log *logger.Logger) ports.RegistryCacheRepository {
	return &registryCacheRepository{db: db, log: log}
}

func (r *registryCacheRepository) Get(ctx context.Context, name string) (*domain.RegistryEntry, error) {
	var entry domain.RegistryEntry
	if err := r.db.WithContext(ctx).Where("name = ?", name).First(&entry).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.log.Errorw("registry_cache_get_failed", "package", name, "error", err)
		return nil, err
	}
	return &entry, nil
}

func (r *registryCacheRepository) Put(ctx context.Context, entry *domain.RegistryEntry) error {
	if err := r.db.WithContext(ctx).Save(entry).Error; err != nil {
		r.log.Errorw("registry_cache_put_failed", "package", entry.Name, "error", err)
		return err
	}
	return nil
}

func (r *registryCacheRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Where("updated_at < ?", cutoff).Delete(&domain.RegistryEntry{})
	if res.Error != nil {
		r.log.Errorw("registry_cache_sweep_failed", "error", res.Error)
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (r *registryCacheRepository) DeleteAll(ctx context.Context) (int64, error) {
	res := r.db.WithContext(ctx).Where("1 = 1").Delete(&domain.RegistryEntry{})
	if res.Error != nil {
		r.log.Errorw("registry_cache_clear_failed", "error", res.Error)
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (r *registryCacheRepository) Count(ctx context.Context) (int64, time.Time, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&domain.RegistryEntry{}).Count(&count).Error; err != nil {
		return 0, time.Time{}, err
	}

	var latest domain.RegistryEntry
	err := r.db.WithContext(ctx).Order("updated_at DESC").First(&latest).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return count, time.Time{}, nil
	}
	if err != nil {
		return count, time.Time{}, err
	}
	return count, latest.UpdatedAt, nil
}
