package models

import (
	"encoding/json"
	"time"
)

// Account represents a credentialed login. Accounts authenticate with a phone
// number and password; guest accounts have neither and cannot log back in
// once their session expires.
type Account struct {
	ID           string    `json:"id"`
	PhoneNumber  string    `json:"phoneNumber"`
	PasswordHash string    `json:"-"` // bcrypt hash, never exposed in API responses
	IsGuest      bool      `json:"isGuest,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// MarshalJSON keeps the password hash out of API responses.
func (a Account) MarshalJSON() ([]byte, error) {
	type AccountAlias Account // prevent recursion
	return json.Marshal(&struct {
		AccountAlias
	}{AccountAlias: AccountAlias(a)})
}

// AccountStorage is the on-disk representation, which unlike Account includes
// the password hash.
type AccountStorage struct {
	ID           string    `json:"id"`
	PhoneNumber  string    `json:"phoneNumber"`
	PasswordHash string    `json:"passwordHash"`
	IsGuest      bool      `json:"isGuest,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// ToStorage converts an Account for persistence.
func (a Account) ToStorage() AccountStorage {
	return AccountStorage(a)
}

// ToAccount converts the stored form back to an Account.
func (as AccountStorage) ToAccount() Account {
	return Account(as)
}
