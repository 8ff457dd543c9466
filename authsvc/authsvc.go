package authsvc

import "errors"

// Session is handed out on successful registration or login.
type Session struct {
	Token    string `json:"token"`
	Username string `json:"username"`
}

// JWT claim names.
const (
	ClaimUserID   = "user_id"
	ClaimUsername = "username"
	ClaimExpiry   = "exp"
)

// CookieName is the name of the encrypted session cookie.
const CookieName = "session"

var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrClaimsMissing   = errors.New("JWT claims was not passed through the context")
	ErrClaimsInvalid   = errors.New("JWT claims was invalid")
)
