package models

import "time"

// User is the per-account profile document. It mirrors the document shape the
// mobile clients subscribe to: profile fields plus the myList array.
type User struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Surname     string        `json:"surname"`
	Avatar      int           `json:"avatar"`
	PhoneNumber string        `json:"phoneNumber"`
	MyList      []ContentItem `json:"myList"`
	IsGuest     bool          `json:"isGuest,omitempty"`
	CreatedAt   time.Time     `json:"createdAt"`
	UpdatedAt   time.Time     `json:"updatedAt"`
}

// ProfileUpdate carries a partial profile write. Nil fields are left as-is,
// matching merge-style document updates.
type ProfileUpdate struct {
	Name    *string `json:"name,omitempty"`
	Surname *string `json:"surname,omitempty"`
	Avatar  *int    `json:"avatar,omitempty"`
}
