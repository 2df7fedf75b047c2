// Package domain contains entity without logic, just meta-data
package domain

import "errors"

const (
	MaxUserIDLen      = 64
	MaxDisplayNameLen = 64
)

var (
	ErrUserIDEmpty        = errors.New("user id empty")
	ErrUserIDTooLong      = errors.New("user id too long")
	ErrDisplayNameEmpty   = errors.New("display name empty")
	ErrDisplayNameTooLong = errors.New("display name too long")
)

type UserID string

// User is the identity asserted at join time. It arrives already verified
// by the auth collaborator; the hub only bounds its size.
type User struct {
	ID          UserID `json:"id"`
	DisplayName string `json:"displayName"`
}

// NewUser is a tiny helper to avoid ad-hoc struct literals in adapters.
func NewUser(id, displayName string) (User, error) {
	if len(id) == 0 {
		return User{}, ErrUserIDEmpty
	}
	if len(id) > MaxUserIDLen {
		return User{}, ErrUserIDTooLong
	}
	if len(displayName) == 0 {
		return User{}, ErrDisplayNameEmpty
	}
	if len(displayName) > MaxDisplayNameLen {
		return User{}, ErrDisplayNameTooLong
	}
	return User{ID: UserID(id), DisplayName: displayName}, nil
}
