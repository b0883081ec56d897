package domain

import "time"

const (
	RoleStudent = "student"
	RoleStaff   = "staff"
)

// User models a signed-in account.
type User struct {
	ID           string    `json:"id"`
	DisplayName  string    `json:"display_name,omitempty"`
	Email        string    `json:"email,omitempty"`
	PhotoURL     string    `json:"photo_url,omitempty"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
