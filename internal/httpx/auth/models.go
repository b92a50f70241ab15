package auth

import "time"

// LoginRequest is the OAuth code-exchange login body.
type LoginRequest struct {
	Provider string `json:"provider"`
	Code     string `json:"code"`
}

// UserInfo is the public view of a user returned from login.
type UserInfo struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// LoginResponse is returned on successful login; the tokens themselves only
// travel in cookies.
type LoginResponse struct {
	User      UserInfo  `json:"user"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// RefreshResponse is returned from token refresh.
type RefreshResponse struct {
	ExpiresAt time.Time `json:"expiresAt"`
}
