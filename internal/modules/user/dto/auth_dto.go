package dto

import (
	"anoa.com/clubportal/internal/entity"
	"github.com/golang-jwt/jwt/v5"
)

// Claims is the session token. The subject is the uid; the profile claims
// mirror what the identity provider reported at sign-in.
type Claims struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Picture string `json:"picture"`
	jwt.RegisteredClaims
}

// GoogleUser is the userinfo payload.
type GoogleUser struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	VerifiedEmail bool   `json:"verified_email"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

type AuthResponse struct {
	AccessToken string      `json:"access_token"`
	TokenType   string      `json:"token_type"`
	ExpiresIn   int64       `json:"expires_in"`
	User        entity.User `json:"user"`
	Created     bool        `json:"created"`
}

type MeResponse struct {
	User    entity.User `json:"user"`
	Points  int         `json:"points"`
	IsAdmin bool        `json:"isAdmin"`
}
