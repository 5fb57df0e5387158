package models

import "time"

// Settings is one row of a user's settings history; the latest row is current.
type Settings struct {
	ID             int64     `json:"id"`
	UserID         string    `json:"user_id"`
	BaselineMethod string    `json:"baseline_method"`
	MultipleUp     float64   `json:"multiple_up"`
	MultipleDown   float64   `json:"multiple_down"`
	Enabled        bool      `json:"enabled"`
	CreatedAt      time.Time `json:"created_at"`
}

type SettingsSpec struct {
	BaselineMethod string   `json:"baseline_method"`
	MultipleUp     *float64 `json:"multiple_up"`
	MultipleDown   *float64 `json:"multiple_down"`
	Enabled        *bool    `json:"enabled"`
}
