package domain

import "time"

type User struct {
	ID           string
	Username     string
	DisplayName  string
	Email        string
	PasswordHash string // argon2 encoded
	Role         string // Foreign key to roles table
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
