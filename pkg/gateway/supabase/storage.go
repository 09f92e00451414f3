package supabase

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	forecast "github.com/goliatone/forecast-dashboard/components/forecast"
)

var _ forecast.FileStore = (*Client)(nil)

// Upload stores a blob under the bucket path, replacing any existing object.
func (c *Client) Upload(ctx context.Context, path string, data []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.objectURL(path), bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("supabase: build upload request: %w", err)
	}
	c.authorize(req)
	req.Header.Set("Content-Type", "application/octet-stream")
	req.Header.Set("x-upsert", "true")
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("supabase: upload %s: %w", path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("supabase: upload %s failed with status %d", path, resp.StatusCode)
	}
	return nil
}

// Download fetches a blob from the bucket.
func (c *Client) Download(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.objectURL(path), nil)
	if err != nil {
		return nil, fmt.Errorf("supabase: build download request: %w", err)
	}
	c.authorize(req)
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("supabase: download %s: %w", path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("supabase: download %s failed with status %d", path, resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// Remove deletes a blob from the bucket.
func (c *Client) Remove(ctx context.Context, path string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.objectURL(path), nil)
	if err != nil {
		return fmt.Errorf("supabase: build remove request: %w", err)
	}
	c.authorize(req)
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("supabase: remove %s: %w", path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 && resp.StatusCode != http.StatusNotFound {
		return fmt.Errorf("supabase: remove %s failed with status %d", path, resp.StatusCode)
	}
	return nil
}

// URL returns the public URL for a blob. The bucket is expected to be public;
// private buckets would need signed URLs instead.
func (c *Client) URL(_ context.Context, path string) (string, error) {
	return c.baseURL + "/storage/v1/object/public/" + c.bucket + "/" + path, nil
}

func (c *Client) objectURL(path string) string {
	return c.baseURL + "/storage/v1/object/" + c.bucket + "/" + path
}
