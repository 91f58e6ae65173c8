package auth

import "github.com/golang-jwt/jwt/v5"

// AccessTokenClaims is the JWT payload minted at login.
type AccessTokenClaims struct {
	UserID string `json:"uid"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}
