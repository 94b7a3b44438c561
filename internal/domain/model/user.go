package model

import "time"

// User is the read-only view of an account this service needs: a display
// identity for receipts and a delivery address for new codes.
type User struct {
	ID          string
	DisplayName string
	Email       string
	TelegramID  *int64
	CreatedAt   time.Time
}

func (u *User) IsZero() bool { return u == nil || u.ID == "" }

// Name returns the display name, falling back to the email local part.
func (u *User) Name() string {
	if u == nil {
		return ""
	}
	if u.DisplayName != "" {
		return u.DisplayName
	}
	for i := 0; i < len(u.Email); i++ {
		if u.Email[i] == '@' {
			return u.Email[:i]
		}
	}
	return u.Email
}
