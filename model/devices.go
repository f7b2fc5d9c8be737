package model

import "time"

type Platform string

const (
	PlatformAndroid Platform = "android"
	PlatformIOS     Platform = "ios"
	PlatformWeb     Platform = "web"
)

// Device is a push-notification registration.
type Device struct {
	ID        int64     `json:"id"`
	OwnerID   int64     `json:"-"`
	Token     string    `json:"token"`
	Platform  Platform  `json:"platform"`
	CreatedAt time.Time `json:"createdAt"`
}

type DeviceRequest struct {
	Token    string `json:"token" validate:"required,max=255"`
	Platform string `json:"platform" validate:"required,oneof=android ios web"`
}

// Notification is a push message addressed to a set of devices.
type Notification struct {
	UserID int64             `json:"userId"`
	Tokens []string          `json:"tokens"`
	Title  string            `json:"title"`
	Body   string            `json:"body"`
	Data   map[string]string `json:"data,omitempty"`
	SentAt time.Time         `json:"sentAt"`
}
