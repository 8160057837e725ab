package dto

import "time"

// TokenRequest payload for POST /auth/token.
type TokenRequest struct {
	Identity string `json:"identity"`
	Hint     string `json:"hint"`
	Secret   string `json:"secret"`
}

// AuthResponse standard response for auth endpoints.
type AuthResponse struct {
	Token     string    `json:"token"`
	Role      string    `json:"role"`
	ExpiresAt time.Time `json:"expires_at"`
}
