// Partyline - Real-time Group Chat and Notification Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/partyline

/*
Package directory talks to the user-profile and chat-membership service that
owns Partyline's persistent data.

The gateway only needs two answers from it: a user's display name, used to
enrich typing and chat broadcasts, and whether a user belongs to a chat,
used when join verification is enabled. Both are best-effort; a failing
directory never blocks delivery.

Endpoints (relative to directory.base_url):

	GET /users/{userId}                    -> {"id":42,"displayName":"Ada"}
	GET /chats/{chatId}/members/{userId}   -> 200 member, 404 not a member
*/
package directory

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

// ErrUserNotFound is returned when the directory has no such user.
var ErrUserNotFound = errors.New("user not found")

// User is the profile subset the gateway reads.
type User struct {
	ID          int    `json:"id"`
	DisplayName string `json:"displayName"`
}

// API is the directory surface used by Service. Client and
// CircuitBreakerClient both implement it.
type API interface {
	GetUser(ctx context.Context, userID int) (*User, error)
	IsMember(ctx context.Context, userID, chatID int) (bool, error)
}

var _ API = (*Client)(nil)

// Client is a plain HTTP client for the directory service.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a client. A non-positive timeout uses 3s.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// GetUser fetches a user profile.
func (c *Client) GetUser(ctx context.Context, userID int) (*User, error) {
	resp, err := c.doRequest(ctx, "/users/"+strconv.Itoa(userID))
	if err != nil {
		return nil, fmt.Errorf("directory user request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, fmt.Errorf("user %d: %w", userID, ErrUserNotFound)
	default:
		return nil, statusError("user", resp)
	}

	var user User
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return nil, fmt.Errorf("failed to decode directory user: %w", err)
	}
	return &user, nil
}

// IsMember reports whether userID belongs to chatID.
func (c *Client) IsMember(ctx context.Context, userID, chatID int) (bool, error) {
	endpoint := "/chats/" + strconv.Itoa(chatID) + "/members/" + strconv.Itoa(userID)
	resp, err := c.doRequest(ctx, endpoint)
	if err != nil {
		return false, fmt.Errorf("directory membership request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusNoContent:
		return true, nil
	case http.StatusNotFound, http.StatusForbidden:
		return false, nil
	default:
		return false, statusError("membership", resp)
	}
}

func (c *Client) doRequest(ctx context.Context, endpoint string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+endpoint, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	return c.httpClient.Do(req)
}

func statusError(what string, resp *http.Response) error {
	body, err := io.ReadAll(io.LimitReader(resp.Body, 512))
	if err != nil {
		return fmt.Errorf("directory %s returned status %d (failed to read body)", what, resp.StatusCode)
	}
	return fmt.Errorf("directory %s returned status %d: %s", what, resp.StatusCode, string(body))
}
