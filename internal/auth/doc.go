// Partyline - Real-time Group Chat and Notification Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/partyline

/*
Package auth verifies the bearer tokens presented on WebSocket handshakes.

Tokens are HS256 JWTs minted by the account service. A token is accepted
when its signature matches the shared secret, it has not expired, and its
issuer and audience match the configured values (when configured). The
numeric user id is read from the first present identity claim:

  - nameid
  - http://schemas.xmlsoap.org/ws/2005/05/identity/claims/nameidentifier
  - sub

Usage:

	manager, err := auth.NewJWTManager(&cfg.Security)
	authenticator := auth.NewJWTAuthenticator(manager)

	token := auth.TokenFromRequest(r, cfg.Security.TokenQueryParam)
	identity, err := authenticator.Authenticate(r.Context(), token)
	switch {
	case errors.Is(err, auth.ErrExpiredCredentials):
	    // ...
	}
*/
package auth
