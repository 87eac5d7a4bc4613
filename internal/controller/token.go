/*
Copyright (c) Tobias Schäfer. All rights reserved.
Licensed under the MIT License, see LICENSE file in the project root for details.
*/
package controller

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const defaultTokenExpiration = 24 * time.Hour

var (
	ErrInvalidToken = errors.New("invalid token")
)

// GenerateControlToken issues a signed token granting access to the
// control API and the run event feed.
func (c *Controller) GenerateControlToken(expiration time.Duration) (string, time.Time, error) {
	if expiration == 0 {
		expiration = defaultTokenExpiration
	}

	now := time.Now()
	expiresAt := now.Add(expiration)
	claims := jwt.MapClaims{
		"iss": "wren",
		"sub": "control",
		"iat": now.Unix(),
		"exp": expiresAt.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(c.config.Secret()))
	return tokenString, expiresAt, err
}

// ValidateControlToken checks signature, expiry and claims of a control
// token.
func (c *Controller) ValidateControlToken(tokenString string) error {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(c.config.Secret()), nil
	})

	if err != nil {
		return ErrInvalidToken
	}

	if claims, ok := token.Claims.(jwt.MapClaims); ok && token.Valid {
		if claims["iss"] != "wren" || claims["sub"] != "control" {
			return ErrInvalidToken
		}

		return nil
	}

	return ErrInvalidToken
}
