package forge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const apiPrefix = "/api/v4"

// developer access on the forge, enough to push and create projects inside
// the registration group.
const memberAccessLevel = 30

// Config holds forge client configuration.
type Config struct {
	// BaseURL is the forge root, e.g. https://git.example.com
	BaseURL string
	// AdminToken authenticates the Admin* calls.
	AdminToken string

	HTTPClient *http.Client
}

// Client talks to the forge admin REST API.
type Client struct {
	baseURL    string
	adminToken string
	httpClient *http.Client
}

// New creates a forge client.
func New(cfg Config) *Client {
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		adminToken: cfg.AdminToken,
		httpClient: client,
	}
}

var _ AdminClient = (*Client)(nil)

// GetUser implements AdminClient. It authenticates with the given access
// token and returns the identity the forge associates with it.
func (c *Client) GetUser(ctx context.Context, token string) (*User, error) {
	var user User
	if err := c.do(ctx, "get_user", http.MethodGet, "/user", token, nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// AdminCreateUser implements AdminClient.
func (c *Client) AdminCreateUser(ctx context.Context, email, name, username, password string) (*User, error) {
	payload := map[string]any{
		"email":             email,
		"name":              name,
		"username":          username,
		"password":          password,
		"skip_confirmation": true,
	}

	var user User
	if err := c.do(ctx, "create_user", http.MethodPost, "/users", c.adminToken, payload, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// AdminListUsers implements AdminClient.
func (c *Client) AdminListUsers(ctx context.Context) ([]User, error) {
	var users []User
	if err := c.do(ctx, "list_users", http.MethodGet, "/users", c.adminToken, nil, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// AdminCreateUserToken implements AdminClient.
func (c *Client) AdminCreateUserToken(ctx context.Context, userID int64, name string) (*Token, error) {
	payload := map[string]any{
		"name":   name,
		"scopes": []string{"api"},
	}

	var token Token
	path := fmt.Sprintf("/users/%d/personal_access_tokens", userID)
	if err := c.do(ctx, "create_user_token", http.MethodPost, path, c.adminToken, payload, &token); err != nil {
		return nil, err
	}
	return &token, nil
}

// AdminCreateGroup implements AdminClient.
func (c *Client) AdminCreateGroup(ctx context.Context, name, path string) (*Group, error) {
	payload := map[string]any{
		"name": name,
		"path": path,
	}

	var group Group
	if err := c.do(ctx, "create_group", http.MethodPost, "/groups", c.adminToken, payload, &group); err != nil {
		return nil, err
	}
	return &group, nil
}

// AdminAddUserToGroup implements AdminClient.
func (c *Client) AdminAddUserToGroup(ctx context.Context, groupID, userID int64) error {
	payload := map[string]any{
		"user_id":      userID,
		"access_level": memberAccessLevel,
	}

	path := fmt.Sprintf("/groups/%d/members", groupID)
	return c.do(ctx, "add_group_member", http.MethodPost, path, c.adminToken, payload, nil)
}

// do runs one request/response exchange. Token values stay in headers and
// never reach error messages.
func (c *Client) do(ctx context.Context, operation, method, path, token string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return remoteError(operation, 0, "encode_request", "failed to encode request body", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+apiPrefix+path, body)
	if err != nil {
		return remoteError(operation, 0, "build_request", "failed to build request", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("Private-Token", token)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return connectivityError(operation, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return connectivityError(operation, err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return remoteError(operation, resp.StatusCode, "", apiErrorMessage(raw), nil)
	}

	if out == nil {
		return nil
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return remoteError(operation, resp.StatusCode, "invalid_response", "failed to decode response", err)
	}

	return nil
}

type apiError struct {
	Message json.RawMessage `json:"message"`
	Error   string          `json:"error"`
}

func apiErrorMessage(body []byte) string {
	var apiErr apiError
	if err := json.Unmarshal(body, &apiErr); err == nil {
		if apiErr.Error != "" {
			return apiErr.Error
		}
		if len(apiErr.Message) > 0 {
			// message may be a string or a field->errors map
			var msg string
			if err := json.Unmarshal(apiErr.Message, &msg); err == nil && msg != "" {
				return msg
			}
			return string(apiErr.Message)
		}
	}

	msg := strings.TrimSpace(string(body))
	if msg == "" {
		return "forge request failed"
	}

	return msg
}
