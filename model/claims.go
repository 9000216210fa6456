package model

import "github.com/golang-jwt/jwt/v5"

type AppClaims struct {
	AccountID int    `json:"account_id"`
	Username  string `json:"username"`
	Role      Role   `json:"role"`
	jwt.RegisteredClaims
}
