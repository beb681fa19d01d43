package jwtutil

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const purposeReset = "password_reset"

var ErrInvalidToken = errors.New("invalid token")

type Claims struct {
	UserID   uint   `json:"user_id"`
	Username string `json:"username"`
	Purpose  string `json:"purpose,omitempty"`
	jwt.RegisteredClaims
}

func GenerateToken(secret string, expiration time.Duration, userID uint, username string) (string, error) {
	return sign(secret, expiration, Claims{
		UserID:   userID,
		Username: username,
	})
}

// GenerateResetToken issues a short-lived token usable only for password
// reset; ParseToken rejects it for regular authentication.
func GenerateResetToken(secret string, expiration time.Duration, userID uint, username string) (string, error) {
	return sign(secret, expiration, Claims{
		UserID:   userID,
		Username: username,
		Purpose:  purposeReset,
	})
}

func ParseToken(secret, tokenString string) (*Claims, error) {
	claims, err := parse(secret, tokenString)
	if err != nil {
		return nil, err
	}
	if claims.Purpose != "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func ParseResetToken(secret, tokenString string) (*Claims, error) {
	claims, err := parse(secret, tokenString)
	if err != nil {
		return nil, err
	}
	if claims.Purpose != purposeReset {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func sign(secret string, expiration time.Duration, claims Claims) (string, error) {
	now := time.Now()
	claims.RegisteredClaims = jwt.RegisteredClaims{
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(expiration)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("sign token failed: %w", err)
	}
	return signed, nil
}

func parse(secret, tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse token failed: %w", err)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
