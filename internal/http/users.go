package http

import (
	"errors"

	"gorm.io/gorm"

	"fuel-station-go/internal/models"
)

// ErrUserNotFound is returned by UserStore lookups that resolve nothing.
var ErrUserNotFound = errors.New("user not found")

// UserStore is the user persistence surface the auth handlers run on.
type UserStore interface {
	ByUUID(uuid string) (*models.User, error)
	ByEmail(email string) (*models.User, error)
	Create(u *models.User) error
}

type GormUserStore struct {
	db *gorm.DB
}

func NewGormUserStore(db *gorm.DB) *GormUserStore {
	return &GormUserStore{db: db}
}

func (s *GormUserStore) ByUUID(uuid string) (*models.User, error) {
	var u models.User
	if err := s.db.Where("uuid = ?", uuid).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (s *GormUserStore) ByEmail(email string) (*models.User, error) {
	var u models.User
	if err := s.db.Where("email = ?", email).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (s *GormUserStore) Create(u *models.User) error {
	return s.db.Create(u).Error
}
