package api

import (
	"encoding/json"
	"fmt"
)

// User is the account returned by /auth/register and /auth/me
type User struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	Username  string `json:"username,omitempty"`
	CreatedAt string `json:"created_at"`
}

// DisplayName returns the username when set, else the email.
func (u User) DisplayName() string {
	if u.Username != "" {
		return u.Username
	}
	return u.Email
}

// UnmarshalJSON accepts numeric or string ids.
func (u *User) UnmarshalJSON(data []byte) error {
	var aux struct {
		ID        any    `json:"id"`
		Email     string `json:"email"`
		Username  string `json:"username"`
		CreatedAt string `json:"created_at"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	*u = User{Email: aux.Email, Username: aux.Username, CreatedAt: aux.CreatedAt}
	switch id := aux.ID.(type) {
	case string:
		u.ID = id
	case float64:
		u.ID = fmt.Sprintf("%.0f", id)
	}
	return nil
}
