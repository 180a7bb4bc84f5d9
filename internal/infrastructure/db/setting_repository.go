package db

import (
	"context"
	"errors"

	"github.com/pipdock/backend/internal/core/ports"
	"github.com/pipdock/backend/internal/domain"
	"github.com/pipdock/backend/internal/infrastructure/logger"
	"gorm.io/gorm"
)

type settingRepository struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSettingRepository(db *gorm.DB, log *logger.Logger) ports.SettingRepository {
	return &settingRepository{db: db, log: log}
}

func (r *settingRepository) Get(ctx context.Context, key string) (*domain.Setting, error) {
	var setting domain.Setting
	if err := r.db.WithContext(ctx).Where("key = ?", key).First(&setting).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.log.Errorw("setting_repo_get_failed", "key", key, "error", err)
		return nil, err
	}
	return &setting, nil
}

func (r *settingRepository) Set(ctx context.Context, key, value string) error {
	var existing domain.Setting
	err := r.db.WithContext(ctx).Where("key = ?", key).First(&existing).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			if err := r.db.WithContext(ctx).Create(&domain.Setting{Key: key, Value: value}).Error; err != nil {
				r.log.Errorw("setting_repo_create_failed", "key", key, "error", err)
				return err
			}
			return nil
		}
		r.log.Errorw("setting_repo_get_for_set_failed", "key", key, "error", err)
		return err
	}

	existing.Value = value
	if err := r.db.WithContext(ctx).Save(&existing).Error; err != nil {
		r.log.Errorw("setting_repo_update_failed", "key", key, "error", err)
		return err
	}
	return nil
}

func (r *settingRepository) Delete(ctx context.Context, key string) error {
	if err := r.db.WithContext(ctx).Where("key = ?", key).Delete(&domain.Setting{}).Error; err != nil {
		r.log.Errorw("setting_repo_delete_failed", "key", key, "error", err)
		return err
	}
	return nil
}
