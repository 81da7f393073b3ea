package models

import "time"

// Session is one signed-in device. The token is the only credential a
// client holds after sign-in.
type Session struct {
	Token     string    `json:"token"`
	AccountID string    `json:"accountId"`
	IsGuest   bool      `json:"isGuest,omitempty"`
	ExpiresAt time.Time `json:"expiresAt"`
	CreatedAt time.Time `json:"createdAt"`
	UserAgent string    `json:"userAgent,omitempty"`
	IPAddress string    `json:"ipAddress,omitempty"`
}

func (s Session) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}
