package domain

import "time"

// FCMToken is a device registered for reflection prompts. One device
// token belongs to at most one user; re-registering moves it.
type FCMToken struct {
	ID             string     `json:"id" gorm:"primaryKey"`
	UserID         string     `json:"user_id" gorm:"index;not null"`
	Token          string     `json:"-" gorm:"uniqueIndex;not null"`
	DeviceInfo     string     `json:"device_info"`
	LastNotifiedAt *time.Time `json:"last_notified_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}
