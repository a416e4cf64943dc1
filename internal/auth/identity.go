// Partyline - Real-time Group Chat and Notification Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/partyline

package auth

import (
	"errors"
	"strconv"
)

// Standard authentication errors
var (
	// ErrNoCredentials indicates no credentials were provided.
	ErrNoCredentials = errors.New("no credentials provided")

	// ErrInvalidCredentials indicates credentials were invalid.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrExpiredCredentials indicates credentials have expired.
	ErrExpiredCredentials = errors.New("credentials expired")

	// ErrMissingIdentity indicates a valid token without a usable user id claim.
	ErrMissingIdentity = errors.New("identity claim missing")
)

// Identity is the verified caller of a handshake.
type Identity struct {
	UserID int
	Name   string
}

// String returns the user id in decimal.
func (i Identity) String() string {
	return strconv.Itoa(i.UserID)
}

// RejectionReason maps an authentication error to a short metric label.
func RejectionReason(err error) string {
	switch {
	case errors.Is(err, ErrNoCredentials):
		return "no_credentials"
	case errors.Is(err, ErrExpiredCredentials):
		return "expired"
	case errors.Is(err, ErrMissingIdentity):
		return "missing_identity"
	default:
		return "invalid"
	}
}
