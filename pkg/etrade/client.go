package etrade

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/klinvest/broker-etrade/pkg/logger"
	"github.com/klinvest/broker-etrade/pkg/metrics"
	"github.com/klinvest/broker-etrade/pkg/oauth1"
	"github.com/klinvest/broker-etrade/pkg/telemetry"
)

const (
	SandboxURL    = "https://apisb.etrade.com"
	ProductionURL = "https://api.etrade.com"

	// AuthorizeURL is the page where an account holder approves a request token.
	AuthorizeURL = "https://us.etrade.com/e/t/etws/authorize"

	// BrokerID identifies this adapter on every normalized object.
	BrokerID = "broker-etrade"

	requestTimeout = 30 * time.Second

	// E*TRADE throttles per consumer key; stay under the account API limit.
	defaultRequestsPerSecond = 4
)

// OAuthEndpoint returns the token flow URLs. The token endpoints live on the
// production host for both environments.
func OAuthEndpoint() oauth1.Endpoint {
	return oauth1.Endpoint{
		RequestTokenURL: ProductionURL + "/oauth/request_token",
		AuthorizeURL:    AuthorizeURL,
		AccessTokenURL:  ProductionURL + "/oauth/access_token",
	}
}

// OAuthEndpointFor points the token legs at baseURL when the API host is
// overridden, as with the mock server. An empty baseURL is OAuthEndpoint().
func OAuthEndpointFor(baseURL string) oauth1.Endpoint {
	endpoint := OAuthEndpoint()
	if baseURL == "" {
		return endpoint
	}
	base := strings.TrimRight(baseURL, "/")
	endpoint.RequestTokenURL = base + "/oauth/request_token"
	endpoint.AccessTokenURL = base + "/oauth/access_token"
	return endpoint
}

// Config holds E*TRADE API configuration
type Config struct {
	Credentials oauth1.Credentials
	Sandbox     bool

	// BaseURL overrides the environment host (tests, mock server).
	BaseURL string

	// HTTPClient is used as the transport when set. It is wrapped for tracing
	// and given the default timeout when it has none.
	HTTPClient *http.Client

	// Limiter paces outgoing calls. Nil uses defaultRequestsPerSecond.
	Limiter *rate.Limiter
}

// Client is a signed E*TRADE REST client. The base URL is fixed at
// construction.
type Client struct {
	config     *Config
	signer     *oauth1.Signer
	httpClient *http.Client
	limiter    *rate.Limiter
	baseURL    string
}

// NewClient creates a new E*TRADE API client
func NewClient(cfg *Config, opts ...oauth1.SignerOption) *Client {
	baseURL := ProductionURL
	if cfg.Sandbox {
		baseURL = SandboxURL
	}
	if cfg.BaseURL != "" {
		baseURL = strings.TrimRight(cfg.BaseURL, "/")
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if httpClient.Timeout == 0 {
		httpClient.Timeout = requestTimeout
	}

	limiter := cfg.Limiter
	if limiter == nil {
		limiter = rate.NewLimiter(defaultRequestsPerSecond, defaultRequestsPerSecond)
	}

	return &Client{
		config:     cfg,
		signer:     oauth1.NewSigner(cfg.Credentials, opts...),
		httpClient: telemetry.WrapHTTPClient(httpClient),
		limiter:    limiter,
		baseURL:    baseURL,
	}
}

// BaseURL returns the host every request is sent to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// IsSandbox reports whether the client targets the sandbox environment.
func (c *Client) IsSandbox() bool {
	return c.config.Sandbox
}

// APIError is returned for every transport or vendor failure. StatusCode is 0
// when no HTTP response was received.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("E*TRADE request failed: %s", e.Message)
	}
	return fmt.Sprintf("E*TRADE API error (status %d): %s", e.StatusCode, e.Message)
}

// vendorError is the error document E*TRADE returns on failures.
type vendorError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"Error"`
}

func (c *Client) get(ctx context.Context, endpoint, path string, out any) error {
	return c.do(ctx, http.MethodGet, endpoint, path, nil, out)
}

func (c *Client) post(ctx context.Context, endpoint, path string, body, out any) error {
	return c.do(ctx, http.MethodPost, endpoint, path, body, out)
}

// do performs a signed request. endpoint is a low-cardinality name used for
// metrics and logs.
func (c *Client) do(ctx context.Context, method, endpoint, path string, body, out any) error {
	url := c.baseURL + path

	var reqBody io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return &APIError{Message: fmt.Sprintf("failed to marshal request body: %v", err)}
		}
		reqBody = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return &APIError{Message: fmt.Sprintf("failed to create request: %v", err)}
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return &APIError{Message: fmt.Sprintf("rate limit wait: %v", err)}
	}

	// the query string stays inside the signed URL
	req.Header.Set("Authorization", c.signer.AuthorizationHeader(method, url))
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.RecordEtradeRequest(method, endpoint, 0, time.Since(start))
		logger.Error().Err(err).Str("path", path).Msg("E*TRADE request failed")
		return &APIError{Message: err.Error()}
	}
	defer resp.Body.Close()
	metrics.RecordEtradeRequest(method, endpoint, resp.StatusCode, time.Since(start))

	return decodeResponse(resp, path, out)
}

// decodeResponse decodes a JSON response into the target. An empty 2xx body
// leaves the target at its zero value.
func decodeResponse(resp *http.Response, path string, target any) error {
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &APIError{StatusCode: resp.StatusCode, Message: fmt.Sprintf("failed to read response: %v", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := strings.TrimSpace(string(data))
		var ve vendorError
		if json.Unmarshal(data, &ve) == nil && ve.Error.Message != "" {
			msg = ve.Error.Message
		}
		logger.Warn().
			Int("status", resp.StatusCode).
			Str("path", path).
			Str("message", msg).
			Msg("E*TRADE API error")
		return &APIError{StatusCode: resp.StatusCode, Message: msg}
	}

	if target == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, target); err != nil {
		return &APIError{StatusCode: resp.StatusCode, Message: fmt.Sprintf("failed to decode response: %v", err)}
	}
	return nil
}
