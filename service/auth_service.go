// file: service/auth_service.go

package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"go-bank-app/config"
	"go-bank-app/logger"
	"go-bank-app/model"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
)

const tokenLifetime = 24 * time.Hour

var ErrInvalidToken = errors.New("invalid or expired token")

// AuthService handles credential hashing, access token issuance and the
// revocation list consulted on every authenticated request.
type AuthService struct {
	cache ICacheClient
}

func NewAuthService(cache ICacheClient) *AuthService {
	return &AuthService{cache: cache}
}

func getJwtKey() []byte {
	return []byte(config.AppConfig.JWT.SecretKey)
}

func (s *AuthService) HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), 14)
	if err != nil {
		logger.Log.WithError(err).Error("Failed to hash password")
		return "", err
	}
	return string(bytes), err
}

func (s *AuthService) CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

// GenerateToken issues a signed access token for the account. Every account
// carries the single "user" role.
func (s *AuthService) GenerateToken(account *model.Account) (string, error) {
	expirationTime := time.Now().Add(tokenLifetime)

	claims := &model.AppClaims{
		AccountID: account.ID,
		Username:  account.Username,
		Role:      model.RoleUser,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   account.Username,
			ExpiresAt: jwt.NewNumericDate(expirationTime),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(getJwtKey())
	if err != nil {
		logger.Log.WithError(err).WithField("username", account.Username).Error("Failed to sign JWT")
		return "", fmt.Errorf("failed to sign token string: %w", err)
	}

	return tokenString, nil
}

// ParseToken validates a signed token and returns its claims.
func (s *AuthService) ParseToken(tokenString string) (*model.AppClaims, error) {
	claims := &model.AppClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return getJwtKey(), nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// revocationKey derives the cache key for a token's revocation marker.
// Tokens are stored as fingerprints, never verbatim.
func revocationKey(tokenString string) string {
	sum := sha256.Sum256([]byte(tokenString))
	return "revoked_token:" + hex.EncodeToString(sum[:])
}

// RevokeToken marks the presented token as logged out. The marker lives
// exactly as long as the token itself would have.
func (s *AuthService) RevokeToken(ctx context.Context, tokenString string, claims *model.AppClaims) error {
	ttl := tokenLifetime
	if claims.ExpiresAt != nil {
		ttl = time.Until(claims.ExpiresAt.Time)
	}
	if ttl <= 0 {
		return nil
	}

	if err := s.cache.Set(ctx, revocationKey(tokenString), "1", ttl).Err(); err != nil {
		logger.Log.WithError(err).Error("Failed to store token revocation")
		return fmt.Errorf("failed to revoke token: %w", err)
	}

	logger.Log.WithField("username", claims.Username).Info("Session token revoked")
	return nil
}

// IsTokenRevoked reports whether a token was revoked by a logout.
func (s *AuthService) IsTokenRevoked(ctx context.Context, tokenString string) (bool, error) {
	_, err := s.cache.Get(ctx, revocationKey(tokenString)).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check token revocation: %w", err)
	}
	return true, nil
}
