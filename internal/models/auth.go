package models

import (
	"github.com/golang-jwt/jwt/v5"
)

// JWTClaims represents the access token payload issued by the identity provider.
type JWTClaims struct {
	UserID string   `json:"user_id"`
	Role   UserRole `json:"role"`
	Name   string   `json:"name"`
	Email  string   `json:"email"`
	jwt.RegisteredClaims
}

// Identity converts the claims into the actor used by services.
func (c *JWTClaims) Identity() Identity {
	if c == nil {
		return Identity{}
	}
	return Identity{ID: c.UserID, Role: c.Role, Name: c.Name, Email: c.Email}
}
