// Package stores holds the gorm-backed implementations of the lookup
// interfaces used by auth and seed.
package stores

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/cppla/audiencehub/models"
)

// UserStore reads and updates accounts through gorm.
type UserStore struct {
	db *gorm.DB
}

// NewUserStore returns a UserStore over db.
func NewUserStore(db *gorm.DB) *UserStore {
	return &UserStore{db: db}
}

// FindByEmail returns the user with the given email. Emails are stored lower-cased.
func (s *UserStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).
		Where("email = ?", strings.ToLower(strings.TrimSpace(email))).
		First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByID returns the user with the given id.
func (s *UserStore) FindByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// TouchLastLogin records a successful sign-in without bumping updated_at.
func (s *UserStore) TouchLastLogin(ctx context.Context, id uint, at time.Time) error {
	return s.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", id).
		UpdateColumn("last_login", at).Error
}
