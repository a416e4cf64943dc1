// Partyline - Real-time Group Chat and Notification Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/partyline

package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// JWTAuthenticator turns an opaque bearer token into a verified Identity.
type JWTAuthenticator struct {
	manager *JWTManager
}

// NewJWTAuthenticator creates a new JWT authenticator.
func NewJWTAuthenticator(manager *JWTManager) *JWTAuthenticator {
	return &JWTAuthenticator{manager: manager}
}

// Authenticate validates token and extracts the caller's user id.
func (a *JWTAuthenticator) Authenticate(_ context.Context, token string) (Identity, error) {
	if token == "" {
		return Identity{}, ErrNoCredentials
	}

	claims, err := a.manager.ValidateToken(token)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Identity{}, ErrExpiredCredentials
		}
		return Identity{}, ErrInvalidCredentials
	}

	userID, err := claims.UserID()
	if err != nil {
		return Identity{}, err
	}
	return Identity{UserID: userID, Name: claims.Name}, nil
}

// TokenFromRequest extracts the bearer token from the queryParam query
// string value, falling back to an Authorization: Bearer header.
func TokenFromRequest(r *http.Request, queryParam string) string {
	if queryParam != "" {
		if token := strings.TrimSpace(r.URL.Query().Get(queryParam)); token != "" {
			return token
		}
	}

	authHeader := r.Header.Get("Authorization")
	if authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
	}

	return ""
}
