package dto

import "smartfeed-be/internal/model"

type QuietHoursRequest struct {
	Start string `json:"start" validate:"required,len=5"`
	End   string `json:"end" validate:"required,len=5"`
}

type DeliveryWindowRequest struct {
	Name      string `json:"name" validate:"required"`
	StartHour int    `json:"start_hour" validate:"min=0,max=23"`
	Enabled   bool   `json:"enabled"`
}

type UpdatePreferencesRequest struct {
	QuietHours  *QuietHoursRequest      `json:"quiet_hours"`
	DigestTime  string                  `json:"digest_time"`
	DigestEmail string                  `json:"digest_email" validate:"omitempty,email"`
	Windows     []DeliveryWindowRequest `json:"windows" validate:"dive"`
	BatchMode   string                  `json:"batch_mode" validate:"omitempty,oneof=realtime scheduled"`
}

type PreferencesResponse struct {
	Preferences model.TastePreference `json:"preferences"`
}
