// Partyline - Real-time Group Chat and Notification Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/partyline

package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/tomtom215/partyline/internal/config"
)

const testSecret = "test-secret-key-that-is-at-least-32-characters-long"

func testSecurityConfig() *config.SecurityConfig {
	return &config.SecurityConfig{
		JWTSecret:   testSecret,
		JWTIssuer:   "partyline-api",
		JWTAudience: "partyline-clients",
	}
}

func signClaims(t *testing.T, secret string, claims jwt.Claims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return token
}

func TestNewJWTManager(t *testing.T) {
	if _, err := NewJWTManager(&config.SecurityConfig{}); err == nil {
		t.Error("NewJWTManager() with empty secret should fail")
	}
	manager, err := NewJWTManager(testSecurityConfig())
	if err != nil || manager == nil {
		t.Fatalf("NewJWTManager() = %v, %v", manager, err)
	}
}

func TestGenerateAndValidateToken(t *testing.T) {
	manager, err := NewJWTManager(testSecurityConfig())
	if err != nil {
		t.Fatal(err)
	}

	token, err := manager.GenerateToken(42, "ada", time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}

	claims, err := manager.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken() error = %v", err)
	}
	id, err := claims.UserID()
	if err != nil || id != 42 {
		t.Errorf("UserID() = %d, %v; want 42", id, err)
	}
	if claims.Name != "ada" {
		t.Errorf("Name = %q, want ada", claims.Name)
	}
	if claims.Issuer != "partyline-api" {
		t.Errorf("Issuer = %q", claims.Issuer)
	}
}

func TestValidateToken_Rejections(t *testing.T) {
	manager, err := NewJWTManager(testSecurityConfig())
	if err != nil {
		t.Fatal(err)
	}
	now := time.Now()
	valid := func() jwt.RegisteredClaims {
		return jwt.RegisteredClaims{
			Issuer:    "partyline-api",
			Audience:  jwt.ClaimStrings{"partyline-clients"},
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
			IssuedAt:  jwt.NewNumericDate(now),
		}
	}

	tests := []struct {
		name    string
		token   func() string
		wantErr error
	}{
		{
			name: "wrong secret",
			token: func() string {
				return signClaims(t, "another-secret-that-is-at-least-32-characters", &Claims{NameID: "1", RegisteredClaims: valid()})
			},
			wantErr: jwt.ErrTokenSignatureInvalid,
		},
		{
			name: "expired",
			token: func() string {
				rc := valid()
				rc.ExpiresAt = jwt.NewNumericDate(now.Add(-time.Minute))
				return signClaims(t, testSecret, &Claims{NameID: "1", RegisteredClaims: rc})
			},
			wantErr: jwt.ErrTokenExpired,
		},
		{
			name: "no expiry",
			token: func() string {
				rc := valid()
				rc.ExpiresAt = nil
				return signClaims(t, testSecret, &Claims{NameID: "1", RegisteredClaims: rc})
			},
			wantErr: jwt.ErrTokenRequiredClaimMissing,
		},
		{
			name: "wrong issuer",
			token: func() string {
				rc := valid()
				rc.Issuer = "someone-else"
				return signClaims(t, testSecret, &Claims{NameID: "1", RegisteredClaims: rc})
			},
			wantErr: jwt.ErrTokenInvalidIssuer,
		},
		{
			name: "wrong audience",
			token: func() string {
				rc := valid()
				rc.Audience = jwt.ClaimStrings{"admin-console"}
				return signClaims(t, testSecret, &Claims{NameID: "1", RegisteredClaims: rc})
			},
			wantErr: jwt.ErrTokenInvalidAudience,
		},
		{
			name:    "malformed",
			token:   func() string { return "not.a.jwt" },
			wantErr: jwt.ErrTokenMalformed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := manager.ValidateToken(tt.token())
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateToken() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateToken_RejectsNoneAlgorithm(t *testing.T) {
	manager, err := NewJWTManager(testSecurityConfig())
	if err != nil {
		t.Fatal(err)
	}

	claims := &Claims{NameID: "1", RegisteredClaims: jwt.RegisteredClaims{
		Issuer:    "partyline-api",
		Audience:  jwt.ClaimStrings{"partyline-clients"},
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}}
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := manager.ValidateToken(token); err == nil {
		t.Error("ValidateToken() accepted an unsigned token")
	}
}

func TestClaimsUserID(t *testing.T) {
	tests := []struct {
		name    string
		claims  Claims
		want    int
		wantErr bool
	}{
		{"nameid", Claims{NameID: "7"}, 7, false},
		{"long form", Claims{NameIdentifier: "8"}, 8, false},
		{"subject", Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "9"}}, 9, false},
		{"nameid wins", Claims{NameID: "7", RegisteredClaims: jwt.RegisteredClaims{Subject: "9"}}, 7, false},
		{"missing", Claims{}, 0, true},
		{"non numeric", Claims{NameID: "ada"}, 0, true},
		{"zero", Claims{NameID: "0"}, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.claims.UserID()
			if tt.wantErr {
				if !errors.Is(err, ErrMissingIdentity) {
					t.Errorf("UserID() error = %v, want ErrMissingIdentity", err)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Errorf("UserID() = %d, %v; want %d", got, err, tt.want)
			}
		})
	}
}

func TestClaims_LongFormJSON(t *testing.T) {
	manager, err := NewJWTManager(&config.SecurityConfig{JWTSecret: testSecret})
	if err != nil {
		t.Fatal(err)
	}

	token := signClaims(t, testSecret, jwt.MapClaims{
		NameIdentifierClaim: "31",
		"exp":               time.Now().Add(time.Hour).Unix(),
	})

	claims, err := manager.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken() error = %v", err)
	}
	if id, _ := claims.UserID(); id != 31 {
		t.Errorf("UserID() = %d, want 31", id)
	}
}
