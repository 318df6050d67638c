package models

import (
	"github.com/golang-jwt/jwt/v5"
)

const (
	RoleClient = "client"
	RoleAdmin  = "admin"
)

// JWTClaims identifies the API caller. Subject carries the caller id.
type JWTClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}
