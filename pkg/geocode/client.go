package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	pkgerrors "github.com/qanlink/qanlink-backend/pkg/errors"
)

const (
	defaultEndpoint             = "https://nominatim.openstreetmap.org/reverse"
	responseBodyReadLimit int64 = 1024
)

// Place is the normalized reverse-geocoding result.
type Place struct {
	DisplayName string
	City        string
	Region      string
	Country     string
}

// Client resolves coordinates to human-readable place names.
type Client struct {
	httpClient *http.Client
	endpoint   string
	userAgent  string
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithEndpoint overrides the configured reverse-geocoding endpoint.
func WithEndpoint(endpoint string) Option {
	return func(c *Client) {
		trimmed := strings.TrimSpace(endpoint)
		if trimmed != "" {
			c.endpoint = trimmed
		}
	}
}

// WithUserAgent sets the User-Agent header required by Nominatim.
func WithUserAgent(userAgent string) Option {
	return func(c *Client) {
		trimmed := strings.TrimSpace(userAgent)
		if trimmed != "" {
			c.userAgent = trimmed
		}
	}
}

// NewClient builds the reverse-geocoding client.
func NewClient(opts ...Option) *Client {
	client := &Client{
		endpoint:   defaultEndpoint,
		httpClient: &http.Client{Timeout: 5 * time.Second},
		userAgent:  "qanlink-backend",
	}

	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}

	if client.httpClient == nil {
		client.httpClient = &http.Client{Timeout: 5 * time.Second}
	}
	if client.endpoint == "" {
		client.endpoint = defaultEndpoint
	}

	return client
}

// Reverse resolves a coordinate pair into a place description.
func (c *Client) Reverse(ctx context.Context, lat, lng float64) (*Place, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "geocode client not configured")
	}

	query := url.Values{}
	query.Set("lat", fmt.Sprintf("%f", lat))
	query.Set("lon", fmt.Sprintf("%f", lng))
	query.Set("format", "jsonv2")

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"?"+query.Encode(), nil)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build reverse geocode request")
	}
	httpReq.Header.Set("User-Agent", c.userAgent)
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute reverse geocode request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))), "reverse geocode request failed")
	}

	var apiResp struct {
		DisplayName string `json:"display_name"`
		Address     struct {
			City    string `json:"city"`
			Town    string `json:"town"`
			Village string `json:"village"`
			State   string `json:"state"`
			Country string `json:"country"`
		} `json:"address"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode reverse geocode response")
	}

	city := apiResp.Address.City
	if city == "" {
		city = apiResp.Address.Town
	}
	if city == "" {
		city = apiResp.Address.Village
	}

	return &Place{
		DisplayName: apiResp.DisplayName,
		City:        city,
		Region:      apiResp.Address.State,
		Country:     apiResp.Address.Country,
	}, nil
}
