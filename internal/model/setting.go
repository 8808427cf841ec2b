package model

import "time"

// Setting is a key/value application setting managed from the admin screen.
type Setting struct {
	Key       string    `json:"key"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

// UpdateSettingsRequest replaces the given settings keys.
type UpdateSettingsRequest struct {
	Settings map[string]string `json:"settings" binding:"required"`
}
