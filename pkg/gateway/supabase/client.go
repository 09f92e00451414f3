package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	forecast "github.com/goliatone/forecast-dashboard/components/forecast"
	"github.com/sirupsen/logrus"
)

const (
	defaultTable  = "customer_forecasts"
	defaultBucket = "forecast-files"
)

// Config configures the hosted-backend client. BaseURL is the project URL
// without a trailing slash; APIKey is the service-role or anon key.
type Config struct {
	BaseURL     string
	APIKey      string
	AccessToken string
	Table       string
	Bucket      string
	HTTPClient  *http.Client
	Logger      *logrus.Logger
}

// Client talks to the hosted PostgREST API for the submissions table.
type Client struct {
	baseURL     string
	apiKey      string
	accessToken string
	table       string
	bucket      string
	client      *http.Client
	logger      *logrus.Logger
}

var _ forecast.SubmissionGateway = (*Client)(nil)

// New builds a client for the hosted backend.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("supabase: base url is required")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("supabase: api key is required")
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	table := cfg.Table
	if table == "" {
		table = defaultTable
	}
	bucket := cfg.Bucket
	if bucket == "" {
		bucket = defaultBucket
	}
	return &Client{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:      cfg.APIKey,
		accessToken: cfg.AccessToken,
		table:       table,
		bucket:      bucket,
		client:      httpClient,
		logger:      logger,
	}, nil
}

// Select fetches submissions ordered by creation timestamp descending.
func (c *Client) Select(ctx context.Context, q forecast.SelectQuery) ([]forecast.Submission, error) {
	params := url.Values{}
	params.Set("select", "*")
	params.Set("order", "created_at.desc")
	if q.CompanyName != "" && q.CompanyName != forecast.FilterAll {
		params.Set("company_name", "eq."+q.CompanyName)
	}
	if q.Limit > 0 {
		params.Set("limit", strconv.Itoa(q.Limit))
	}
	var rows []forecast.Submission
	path := "/rest/v1/" + c.table + "?" + params.Encode()
	if err := c.do(ctx, http.MethodGet, path, nil, &rows, nil); err != nil {
		return nil, err
	}
	return rows, nil
}

// Insert creates a submission and returns the stored representation.
func (c *Client) Insert(ctx context.Context, row forecast.Submission) (forecast.Submission, error) {
	var stored []forecast.Submission
	headers := map[string]string{"Prefer": "return=representation"}
	path := "/rest/v1/" + c.table
	if err := c.do(ctx, http.MethodPost, path, row, &stored, headers); err != nil {
		return forecast.Submission{}, err
	}
	if len(stored) == 0 {
		return forecast.Submission{}, fmt.Errorf("supabase: insert returned no rows")
	}
	return stored[0], nil
}

// Update patches the given columns on one row.
func (c *Client) Update(ctx context.Context, id string, fields map[string]any) error {
	if id == "" {
		return fmt.Errorf("supabase: update requires an id")
	}
	path := "/rest/v1/" + c.table + "?id=eq." + url.QueryEscape(id)
	headers := map[string]string{"Prefer": "return=minimal"}
	return c.do(ctx, http.MethodPatch, path, fields, nil, headers)
}

// Delete removes one row.
func (c *Client) Delete(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("supabase: delete requires an id")
	}
	path := "/rest/v1/" + c.table + "?id=eq." + url.QueryEscape(id)
	return c.do(ctx, http.MethodDelete, path, nil, nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, payload, target any, headers map[string]string) error {
	var body *bytes.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("supabase: encode payload: %w", err)
		}
		body = bytes.NewReader(data)
	} else {
		body = bytes.NewReader(nil)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("supabase: build request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.authorize(req)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("supabase: http request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		var buf bytes.Buffer
		_, _ = buf.ReadFrom(resp.Body)
		return fmt.Errorf("supabase: remote error %d: %s", resp.StatusCode, strings.TrimSpace(buf.String()))
	}
	if target == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return fmt.Errorf("supabase: decode response: %w", err)
	}
	return nil
}

func (c *Client) authorize(req *http.Request) {
	req.Header.Set("apikey", c.apiKey)
	token := c.accessToken
	if token == "" {
		token = c.apiKey
	}
	req.Header.Set("Authorization", "Bearer "+token)
}
