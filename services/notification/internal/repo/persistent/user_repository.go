package persistent

import (
	"context"
	"errors"
	"fmt"

	"taskflow/pkg/models"
	"taskflow/services/notification/internal/entity"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type UserRepository interface {
	FindByIDs(ctx context.Context, ids []string) (map[string]*entity.UserProfile, error)
	GetByID(ctx context.Context, id string) (*entity.UserProfile, error)
	UpdatePreferences(ctx context.Context, id string, prefs map[string]bool) (*entity.UserProfile, error)
}

type userRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

// FindByIDs returns the profiles that exist, keyed by id. Missing users are
// simply absent from the map.
func (r *userRepository) FindByIDs(ctx context.Context, ids []string) (map[string]*entity.UserProfile, error) {
	profiles := make(map[string]*entity.UserProfile, len(ids))
	if len(ids) == 0 {
		return profiles, nil
	}

	var users []models.User
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, fmt.Errorf("failed to load users: %w", err)
	}
	for i := range users {
		profiles[users[i].ID] = ToUserProfile(&users[i])
	}
	return profiles, nil
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*entity.UserProfile, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return ToUserProfile(&user), nil
}

// UpdatePreferences merges prefs into the stored map.
func (r *userRepository) UpdatePreferences(ctx context.Context, id string, prefs map[string]bool) (*entity.UserProfile, error) {
	var user models.User
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", id).First(&user).Error; err != nil {
			return err
		}

		merged := datatypes.JSONMap{}
		for k, v := range user.NotificationPreferences {
			merged[k] = v
		}
		for k, v := range prefs {
			merged[k] = v
		}

		if err := tx.Model(&user).Update("notification_preferences", merged).Error; err != nil {
			return err
		}
		user.NotificationPreferences = merged
		return nil
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to update preferences: %w", err)
	}
	return ToUserProfile(&user), nil
}
