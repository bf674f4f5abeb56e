package binance

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	boterrors "github.com/ducminhle1904/futures-threshold-bot/internal/errors"
)

const (
	// MainnetBaseURL is the production USDⓈ-M futures REST endpoint
	MainnetBaseURL = "https://fapi.binance.com"
	// TestnetBaseURL is the futures testnet REST endpoint
	TestnetBaseURL = "https://testnet.binancefuture.com"

	// APIKeyHeader carries the raw API key on every request
	APIKeyHeader = "X-MBX-APIKEY"

	defaultTimeout = 30 * time.Second
	component      = "binance"
)

// Endpoint paths
const (
	pathServerTime   = "/fapi/v1/time"
	pathTickerPrice  = "/fapi/v1/ticker/price"
	pathBalance      = "/fapi/v2/balance"
	pathAccount      = "/fapi/v2/account"
	pathPositionRisk = "/fapi/v2/positionRisk"
	pathOrder        = "/fapi/v1/order"
)

// Config holds the configuration for the Binance futures client
type Config struct {
	APIKey     string
	APISecret  string
	BaseURL    string        // overrides the Testnet switch when set
	Testnet    bool          // selects TestnetBaseURL when BaseURL is empty
	Timeout    time.Duration // per request, defaults to 30s
	RecvWindow time.Duration // optional recvWindow sent with signed requests
}

// Client talks to the Binance USDⓈ-M futures REST API. It is safe for
// sequential reuse; the configuration is fixed at construction.
type Client struct {
	http    *resty.Client
	signer  *Signer
	baseURL string
	testnet bool
	logger  *zap.Logger
}

// ClientOption customizes a Client
type ClientOption func(*clientOptions)

type clientOptions struct {
	logger      *zap.Logger
	httpClient  *http.Client
	signerClock func() time.Time
}

// WithLogger sets the logger used for request/response logging
func WithLogger(logger *zap.Logger) ClientOption {
	return func(o *clientOptions) { o.logger = logger }
}

// WithHTTPClient replaces the underlying *http.Client
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(o *clientOptions) { o.httpClient = hc }
}

// WithSignerClock overrides the clock used for request timestamps
func WithSignerClock(now func() time.Time) ClientOption {
	return func(o *clientOptions) { o.signerClock = now }
}

// NewClient creates a new Binance futures client
func NewClient(config Config, opts ...ClientOption) (*Client, error) {
	apiKey := strings.TrimSpace(config.APIKey)
	apiSecret := strings.TrimSpace(config.APISecret)
	if apiKey == "" {
		return nil, boterrors.NewConfigurationError(component, "NewClient", "API key is required")
	}
	if apiSecret == "" {
		return nil, boterrors.NewConfigurationError(component, "NewClient", "API secret is required")
	}

	options := clientOptions{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&options)
	}

	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = MainnetBaseURL
		if config.Testnet {
			baseURL = TestnetBaseURL
		}
	}
	baseURL = strings.TrimRight(baseURL, "/")
	if _, err := url.Parse(baseURL); err != nil {
		return nil, boterrors.NewConfigurationError(component, "NewClient", "invalid base URL: "+err.Error())
	}

	timeout := config.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	var rc *resty.Client
	if options.httpClient != nil {
		rc = resty.NewWithClient(options.httpClient)
	} else {
		rc = resty.New()
	}
	rc.SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader(APIKeyHeader, apiKey).
		SetHeader("Accept", "application/json")

	signerOpts := []SignerOption{WithRecvWindow(config.RecvWindow)}
	if options.signerClock != nil {
		signerOpts = append(signerOpts, WithClock(options.signerClock))
	}

	return &Client{
		http:    rc,
		signer:  NewSigner(apiSecret, signerOpts...),
		baseURL: baseURL,
		testnet: config.Testnet,
		logger:  options.logger.With(zap.String("component", component)),
	}, nil
}

// BaseURL returns the REST endpoint the client is bound to
func (c *Client) BaseURL() string {
	return c.baseURL
}

// GetEnvironment returns a string describing the current environment
func (c *Client) GetEnvironment() string {
	switch c.baseURL {
	case MainnetBaseURL:
		return "mainnet"
	case TestnetBaseURL:
		return "testnet"
	default:
		return "custom"
	}
}

// public issues an unsigned request
func (c *Client) public(ctx context.Context, method, path string, params url.Values, out interface{}) error {
	endpoint := path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}
	return c.do(ctx, method, path, endpoint, out)
}

// private signs params and issues the request; the query string sent is
// exactly the one that was signed.
func (c *Client) private(ctx context.Context, method, path string, params url.Values, out interface{}) error {
	return c.do(ctx, method, path, path+"?"+c.signer.Sign(params), out)
}

func (c *Client) do(ctx context.Context, method, path, endpoint string, out interface{}) error {
	operation := method + " " + path
	start := time.Now()

	c.logger.Debug("request", zap.String("method", method), zap.String("path", path))

	resp, err := c.http.R().SetContext(ctx).Execute(method, endpoint)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		c.logger.Error("request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Duration("latency", time.Since(start)),
			zap.Error(err))
		return boterrors.NewTransportError(component, operation, err)
	}

	c.logger.Info("response",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode()),
		zap.Duration("latency", time.Since(start)))
	c.logger.Debug("response body", zap.ByteString("body", resp.Body()))

	if !resp.IsSuccess() {
		apiErr := parseAPIError(resp.StatusCode(), resp.Body())
		c.logger.Warn("exchange rejected request",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", apiErr.StatusCode),
			zap.Int("code", apiErr.Code),
			zap.String("msg", apiErr.Message))
		return boterrors.NewTransportError(component, operation, apiErr).
			WithContext("status", apiErr.StatusCode)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return boterrors.NewDecodeError(component, operation, err)
	}
	return nil
}
