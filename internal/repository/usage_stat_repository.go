package repository

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"docuchat/internal/model"
)

type UsageStatRepository struct {
	db *gorm.DB
}

func NewUsageStatRepository(db *gorm.DB) *UsageStatRepository {
	return &UsageStatRepository{db: db}
}

// GetOrCreate returns the user's aggregate row for the given day,
// creating an empty one if absent.
func (r *UsageStatRepository) GetOrCreate(userID uint, day string) (*model.UsageStat, error) {
	var stat model.UsageStat
	err := r.db.Where("user_id = ? AND day = ?", userID, day).First(&stat).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		stat = model.UsageStat{UserID: userID, Day: day, ModelUsage: "{}"}
		if createErr := r.db.Create(&stat).Error; createErr != nil {
			return nil, fmt.Errorf("create usage stat failed: %w", createErr)
		}
		return &stat, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query usage stat failed: %w", err)
	}
	return &stat, nil
}

func (r *UsageStatRepository) Save(stat *model.UsageStat) error {
	if err := r.db.Save(stat).Error; err != nil {
		return fmt.Errorf("save usage stat failed: %w", err)
	}
	return nil
}

func (r *UsageStatRepository) ListByUserID(userID uint, limit int) ([]model.UsageStat, error) {
	if limit <= 0 || limit > 90 {
		limit = 30
	}
	var stats []model.UsageStat
	if err := r.db.Where("user_id = ?", userID).Order("day DESC").Limit(limit).Find(&stats).Error; err != nil {
		return nil, fmt.Errorf("list usage stats failed: %w", err)
	}
	return stats, nil
}
