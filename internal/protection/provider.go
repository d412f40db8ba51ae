package protection

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Action is one of the provider's protection operations.
type Action string

const (
	ActionPreflight Action = "preflight"
	ActionActivate  Action = "activate"
	ActionCancel    Action = "cancel"
	ActionReconcile Action = "reconcile"
)

// Provider request timeout bounds.
const (
	defaultProviderTimeout = 3000 * time.Millisecond
	minProviderTimeout     = 250 * time.Millisecond
	maxProviderTimeout     = 20000 * time.Millisecond
)

// ProviderRecord is the provider's view of one position, merged into local
// records on reconcile.
type ProviderRecord struct {
	PositionID    string `json:"positionId"`
	Status        Status `json:"status"`
	TpOrderKey    string `json:"tpOrderKey,omitempty"`
	SlOrderKey    string `json:"slOrderKey,omitempty"`
	FailureReason string `json:"failureReason,omitempty"`
}

// ProviderResponse is the wire shape of every provider reply.
type ProviderResponse struct {
	OK         bool             `json:"ok"`
	Status     string           `json:"status,omitempty"`
	TpOrderKey string           `json:"tpOrderKey,omitempty"`
	SlOrderKey string           `json:"slOrderKey,omitempty"`
	Reason     string           `json:"reason,omitempty"`
	Records    []ProviderRecord `json:"records,omitempty"`
}

type providerRequest struct {
	Action  Action `json:"action"`
	Payload any    `json:"payload,omitempty"`
}

// ClientOptions parameterise the upstream protection provider connection.
type ClientOptions struct {
	BaseURL string
	Path    string
	Token   string
	Timeout time.Duration
}

// Client talks to the upstream protection provider: a single bearer-token
// authenticated POST endpoint taking {action, payload}. It never retries
// internally; retry policy belongs to the caller.
type Client struct {
	endpoint string
	token    string
	client   *http.Client
	logger   zerolog.Logger
}

// NewClient constructs a provider client. The timeout is clamped to
// [250ms, 20s] with a 3s default.
func NewClient(opts ClientOptions, logger zerolog.Logger) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultProviderTimeout
	}
	if timeout < minProviderTimeout {
		timeout = minProviderTimeout
	}
	if timeout > maxProviderTimeout {
		timeout = maxProviderTimeout
	}

	path := opts.Path
	if path == "" {
		path = "/spot-protection"
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	return &Client{
		endpoint: strings.TrimRight(opts.BaseURL, "/") + path,
		token:    opts.Token,
		client:   &http.Client{Timeout: timeout},
		logger:   logger.With().Str("component", "protection_provider").Logger(),
	}
}

// Do performs one provider action.
func (c *Client) Do(ctx context.Context, action Action, payload any) (ProviderResponse, error) {
	body, err := json.Marshal(providerRequest{Action: action, Payload: payload})
	if err != nil {
		return ProviderResponse{}, fmt.Errorf("marshal provider request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return ProviderResponse{}, fmt.Errorf("create provider request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return ProviderResponse{}, fmt.Errorf("provider %s: %w", action, err)
	}
	defer resp.Body.Close()

	payloadBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return ProviderResponse{}, fmt.Errorf("read provider response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return ProviderResponse{}, fmt.Errorf("provider %s: http %d: %s", action, resp.StatusCode, strings.TrimSpace(string(payloadBytes)))
	}

	var decoded ProviderResponse
	if err := json.Unmarshal(payloadBytes, &decoded); err != nil {
		return ProviderResponse{}, fmt.Errorf("decode provider response: %w", err)
	}
	return decoded, nil
}
