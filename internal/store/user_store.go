// Package store holds the gorm-backed persistence for user records.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ahmetcoskunkizilkaya/signup-service/internal/models"
	"github.com/ahmetcoskunkizilkaya/signup-service/internal/services"
)

type UserStore struct {
	db *gorm.DB
}

func NewUserStore(db *gorm.DB) *UserStore {
	return &UserStore{db: db}
}

func (s *UserStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, services.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return &user, nil
}

// Save inserts new records and updates existing ones, including columns
// reset to their zero value. A unique index violation on email surfaces as
// services.ErrEmailTaken.
func (s *UserStore) Save(ctx context.Context, user *models.User) (*models.User, error) {
	tx := s.db.WithContext(ctx)

	var err error
	if user.ID == uuid.Nil {
		err = tx.Create(user).Error
	} else {
		err = tx.Save(user).Error
	}
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, services.ErrEmailTaken
		}
		return nil, fmt.Errorf("failed to save user: %w", err)
	}
	return user, nil
}

var _ services.UserStore = (*UserStore)(nil)
