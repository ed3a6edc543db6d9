package push

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	pkgerrors "github.com/qanlink/qanlink-backend/pkg/errors"
)

const (
	defaultEndpoint             = "https://exp.host/--/api/v2/push/send"
	defaultBatchSize            = 100
	responseBodyReadLimit int64 = 1024
)

// Message is a single push notification addressed to an Expo token.
type Message struct {
	To    string         `json:"to"`
	Title string         `json:"title"`
	Body  string         `json:"body"`
	Sound string         `json:"sound,omitempty"`
	Data  map[string]any `json:"data,omitempty"`
}

// Ticket is the per-message receipt returned by the push gateway.
type Ticket struct {
	Status  string `json:"status"`
	ID      string `json:"id,omitempty"`
	Message string `json:"message,omitempty"`
}

// Ok reports whether the gateway accepted the message.
func (t Ticket) Ok() bool {
	return t.Status == "ok"
}

// Client talks to the Expo push gateway.
type Client struct {
	httpClient  *http.Client
	endpoint    string
	accessToken string
	batchSize   int
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

// WithEndpoint overrides the configured push endpoint.
func WithEndpoint(endpoint string) Option {
	return func(c *Client) {
		trimmed := strings.TrimSpace(endpoint)
		if trimmed != "" {
			c.endpoint = trimmed
		}
	}
}

// WithAccessToken attaches an Expo access token to outgoing requests.
func WithAccessToken(token string) Option {
	return func(c *Client) {
		c.accessToken = strings.TrimSpace(token)
	}
}

// WithBatchSize caps how many messages go out per gateway call.
func WithBatchSize(size int) Option {
	return func(c *Client) {
		if size > 0 {
			c.batchSize = size
		}
	}
}

// NewClient builds the Expo push client.
func NewClient(opts ...Option) *Client {
	client := &Client{
		endpoint:   defaultEndpoint,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		batchSize:  defaultBatchSize,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}

	if client.httpClient == nil {
		client.httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	if client.endpoint == "" {
		client.endpoint = defaultEndpoint
	}
	if client.batchSize <= 0 {
		client.batchSize = defaultBatchSize
	}

	return client
}

// Send delivers the messages in gateway-sized batches and returns one
// ticket per message, in input order.
func (c *Client) Send(ctx context.Context, messages []Message) ([]Ticket, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "push client not configured")
	}
	if len(messages) == 0 {
		return nil, nil
	}

	tickets := make([]Ticket, 0, len(messages))
	for start := 0; start < len(messages); start += c.batchSize {
		end := start + c.batchSize
		if end > len(messages) {
			end = len(messages)
		}
		batch, err := c.sendBatch(ctx, messages[start:end])
		if err != nil {
			return tickets, err
		}
		tickets = append(tickets, batch...)
	}
	return tickets, nil
}

func (c *Client) sendBatch(ctx context.Context, batch []Message) ([]Ticket, error) {
	payload, err := json.Marshal(batch)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "marshal push messages")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build push request")
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	if c.accessToken != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.accessToken)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute push request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))), "push request failed")
	}

	var apiResp struct {
		Data []Ticket `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode push response")
	}

	return apiResp.Data, nil
}
