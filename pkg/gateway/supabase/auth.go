package supabase

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	forecast "github.com/goliatone/forecast-dashboard/components/forecast"
)

// GetSession implements forecast.SessionChecker against the hosted auth
// endpoint. A 401/403 means the token is absent or expired and yields a nil
// session without error so callers can redirect to login.
func (c *Client) GetSession(ctx context.Context) (*forecast.Session, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/auth/v1/user", nil)
	if err != nil {
		return nil, fmt.Errorf("supabase: build session request: %w", err)
	}
	c.authorize(req)
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("supabase: session request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, nil
	}
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("supabase: session check failed with status %d", resp.StatusCode)
	}
	var user struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return nil, fmt.Errorf("supabase: decode session: %w", err)
	}
	if user.ID == "" {
		return nil, nil
	}
	return &forecast.Session{UserID: user.ID, Email: user.Email}, nil
}

var _ forecast.SessionChecker = (*Client)(nil)
