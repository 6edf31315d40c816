// Package polympics contains a minimal client for the Polympics competition
// API: account lookup by Discord member ID, account profile updates, and
// webhook callback registration. Credentials are a static app id/token pair.
package polympics

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
)

// ErrNotFound is returned when the API has no account for a member.
var ErrNotFound = errors.New("polympics: account not found")

// Team is a competition team as reported by the API. The name may contain
// non-ASCII characters and emoji.
type Team struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Account is a registered competitor. Team is nil when they have none.
type Account struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	Discriminator string `json:"discriminator"`
	AvatarURL     string `json:"avatar_url"`
	Team          *Team  `json:"team"`
}

// Client calls the Polympics API.
type Client struct {
	BaseURL    string
	APIUser    string
	APIToken   string
	HTTPClient *http.Client
}

func (c *Client) http() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var rd io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rd = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, rd)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s:%s", c.APIUser, c.APIToken))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http().Do(req)
	if err != nil {
		return err
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Warn("failed to close response body", slog.Any("err", err))
		}
	}()
	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("polympics %s %s: status %d", method, path, resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// Account fetches the account registered for a Discord member ID.
func (c *Client) Account(ctx context.Context, memberID string) (*Account, error) {
	id, err := strconv.ParseInt(memberID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid member id %q: %w", memberID, err)
	}
	var acct Account
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/accounts/%d", id), nil, &acct); err != nil {
		return nil, err
	}
	return &acct, nil
}

// UpdateAccount pushes a changed Discord username/discriminator/avatar back to
// the API so competition listings stay current.
func (c *Client) UpdateAccount(ctx context.Context, id int64, name, discriminator, avatarURL string) error {
	body := map[string]string{
		"name":          name,
		"discriminator": discriminator,
		"avatar_url":    avatarURL,
	}
	return c.do(ctx, http.MethodPatch, fmt.Sprintf("/accounts/%d", id), body, nil)
}

// CreateCallback registers a webhook so the API pushes events of the given
// type to callbackURL, authenticated with secret.
func (c *Client) CreateCallback(ctx context.Context, eventType, callbackURL, secret string) error {
	body := map[string]string{
		"event":  eventType,
		"url":    callbackURL,
		"secret": secret,
	}
	return c.do(ctx, http.MethodPost, "/callbacks/", body, nil)
}
