package user

import "time"

// User is a platform account.
type User struct {
	ID             int64      `json:"id" db:"id"`
	Username       string     `json:"username" db:"username"`
	Email          string     `json:"email" db:"email"`
	HashedPassword string     `json:"-" db:"hashed_password"`
	FullName       string     `json:"full_name" db:"full_name"`
	Role           string     `json:"role" db:"role"`
	IsActive       bool       `json:"is_active" db:"is_active"`
	IsVerified     bool       `json:"is_verified" db:"is_verified"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at" db:"updated_at"`
	LastLogin      *time.Time `json:"last_login" db:"last_login"`
}

// Filter narrows user listings.
type Filter struct {
	Role       string
	ActiveOnly bool
	Roles      []string
	Offset     int
	Limit      int
}
