package session

import (
	"errors"
	"time"

	"gorm.io/gorm"
)

var ErrSessionNotFound = errors.New("session not found")

// Repository persists sessions. The *gorm.DB is passed per call so callers
// decide on transactions.
type Repository interface {
	Create(db *gorm.DB, s *Session) error
	FindByID(db *gorm.DB, id string) (*Session, error)
	Touch(db *gorm.DB, id string, at time.Time) error
	Delete(db *gorm.DB, id string) error
	DeleteExpired(db *gorm.DB, now time.Time) (int64, error)
}

type repository struct{}

func NewRepository() Repository {
	return &repository{}
}

func (r *repository) Create(db *gorm.DB, s *Session) error {
	return db.Create(s).Error
}

func (r *repository) FindByID(db *gorm.DB, id string) (*Session, error) {
	var s Session
	if err := db.Where("id = ?", id).First(&s).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	return &s, nil
}

func (r *repository) Touch(db *gorm.DB, id string, at time.Time) error {
	return db.Model(&Session{}).Where("id = ?", id).Update("last_seen_at", at).Error
}

func (r *repository) Delete(db *gorm.DB, id string) error {
	result := db.Where("id = ?", id).Delete(&Session{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrSessionNotFound
	}
	return nil
}

func (r *repository) DeleteExpired(db *gorm.DB, now time.Time) (int64, error) {
	result := db.Where("expires_at IS NOT NULL AND expires_at <= ?", now).Delete(&Session{})
	return result.RowsAffected, result.Error
}
