package accounts

import "time"

type User struct {
	ID           string
	Email        string
	Name         string
	PasswordHash []byte
	CreatedAt    time.Time
}

// Session es lo que recibe el cliente al autenticarse.
type Session struct {
	Token     string
	ExpiresAt time.Time
}
