package session

import (
	"encoding/json"
	"time"

	"flota_console/internal/models"

	"gorm.io/datatypes"
)

// Session is the stored login of one browser: the fleet API token and the
// user it belongs to.
type Session struct {
	ID         string         `gorm:"type:varchar(36);primaryKey"`
	Token      string         `gorm:"type:text;not null"`
	User       datatypes.JSON `gorm:"not null"`
	ExpiresAt  *time.Time     `gorm:"index"`
	LastSeenAt time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (Session) TableName() string { return "console_sessions" }

// Expired reports whether the token's exp claim has passed.
func (s *Session) Expired(now time.Time) bool {
	return s.ExpiresAt != nil && !now.Before(*s.ExpiresAt)
}

func (s *Session) DecodeUser() (models.User, error) {
	var u models.User
	err := json.Unmarshal(s.User, &u)
	return u, err
}

func encodeUser(u models.User) (datatypes.JSON, error) {
	raw, err := json.Marshal(u)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(raw), nil
}
