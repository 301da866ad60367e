package models

import "time"

// Preference is a persisted UI setting, keyed by name.
type Preference struct {
	Key       string    `json:"key" gorm:"primaryKey"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}
