package utils

import (
	"errors"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt"
)

const (
	PurposeAPI          = "api"
	PurposeTelegramLink = "telegram-link"
)

type claims struct {
	Purpose string `json:"purpose"`
	jwt.StandardClaims
}

type Token struct {
	Value     string
	ExpiresAt time.Time
}

type JWT struct {
	Key    []byte
	Issuer string
}

func (j JWT) GenerateJWTForUser(userId string, ttl time.Duration) (*Token, error) {
	return j.generate(userId, PurposeAPI, ttl)
}

// GenerateLinkToken issues a short-lived token that a Telegram chat exchanges for a user link.
func (j JWT) GenerateLinkToken(userId string, ttl time.Duration) (*Token, error) {
	return j.generate(userId, PurposeTelegramLink, ttl)
}

func (j JWT) generate(userId, purpose string, ttl time.Duration) (*Token, error) {
	expTime := time.Now().Add(ttl)

	c := &claims{
		Purpose: purpose,
		StandardClaims: jwt.StandardClaims{
			Subject:   userId,
			Issuer:    j.Issuer,
			IssuedAt:  time.Now().Unix(),
			ExpiresAt: expTime.Unix(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)

	tokenString, err := token.SignedString(j.Key)
	if err != nil {
		return nil, err
	}

	return &Token{Value: tokenString, ExpiresAt: expTime}, nil
}

// GetUserIdFromToken validates the token for the given purpose and returns its subject.
func (j JWT) GetUserIdFromToken(tokenString, purpose string) (string, error) {
	c := &claims{}

	tkn, err := jwt.ParseWithClaims(tokenString, c, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return j.Key, nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrSignatureInvalid) {
			slog.Debug("invalid token signature")
		}
		return "", ErrUnauthorized
	}

	if !tkn.Valid || c.Purpose != purpose || c.Subject == "" {
		return "", ErrUnauthorized
	}
	if j.Issuer != "" && c.Issuer != j.Issuer {
		return "", ErrUnauthorized
	}
	return c.Subject, nil
}
