package payments

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sumon-ahmed84/book-courier-server11/pkg/config"
	pkgerrors "github.com/sumon-ahmed84/book-courier-server11/pkg/errors"
	"github.com/sumon-ahmed84/book-courier-server11/pkg/logger"
)

const (
	testEnv = "test"
	liveEnv = "live"

	defaultBaseURL             = "https://api.payments.example.com/v1"
	responseBodyReadLimit      = 1 << 20
	defaultRequestTimeout      = 10 * time.Second
	sessionsPath               = "/checkout/sessions"
	errorBodyPreviewLimit  int = 512
)

var (
	errAPIKeyRequired     = errors.New("payments api key is required")
	errInvalidPaymentsEnv = fmt.Errorf("payments environment must be %q or %q", testEnv, liveEnv)
)

// Client talks to the hosted checkout provider over its REST API.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	apiKey      string
	environment string
	logger      *logger.Logger
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

// NewClient validates the credentials and builds the provider client.
func NewClient(ctx context.Context, cfg config.PaymentsConfig, logg *logger.Logger, opts ...Option) (*Client, error) {
	env, err := normalizeEnv(cfg.Environment())
	if err != nil {
		return nil, err
	}

	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errAPIKeyRequired
	}
	if err := validateAPIKey(env, apiKey); err != nil {
		return nil, err
	}

	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}

	client := &Client{
		httpClient:  &http.Client{Timeout: timeout},
		baseURL:     baseURL,
		apiKey:      apiKey,
		environment: env,
		logger:      logg,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}

	if logg != nil {
		logg.Info(ctx, fmt.Sprintf("payments client initialized (%s)", env))
	}
	return client, nil
}

// Environment reports the normalized provider environment in use.
func (c *Client) Environment() string {
	if c == nil {
		return ""
	}
	return c.environment
}

// CreateSession asks the provider to host a new checkout session.
func (c *Client) CreateSession(ctx context.Context, input CreateSessionInput) (*Session, error) {
	body, err := json.Marshal(input)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode session request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+sessionsPath, bytes.NewReader(body))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build session request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	return c.doSession(req)
}

// FetchSession retrieves the authoritative session record by id.
func (c *Client) FetchSession(ctx context.Context, sessionID string) (*Session, error) {
	id := strings.TrimSpace(sessionID)
	if id == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "session id is required")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+sessionsPath+"/"+id, nil)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build session request")
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	return c.doSession(req)
}

func (c *Client) doSession(req *http.Request) (*Session, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "call payment provider")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read provider response")
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment session not found")
	case resp.StatusCode >= 400:
		preview := string(raw)
		if len(preview) > errorBodyPreviewLimit {
			preview = preview[:errorBodyPreviewLimit]
		}
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "payment provider rejected request").
			WithDetails(map[string]any{"status": resp.StatusCode, "body": preview})
	}

	var session Session
	if err := json.Unmarshal(raw, &session); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode provider response")
	}
	if session.ID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "provider response missing session id")
	}
	return &session, nil
}

func normalizeEnv(raw string) (string, error) {
	env := strings.TrimSpace(strings.ToLower(raw))
	if env == "" {
		env = testEnv
	}
	switch env {
	case testEnv, liveEnv:
		return env, nil
	default:
		return "", errInvalidPaymentsEnv
	}
}

func validateAPIKey(env, key string) error {
	switch env {
	case testEnv:
		if strings.HasPrefix(key, "pk_test") || strings.HasPrefix(key, "sk_test") {
			return nil
		}
		return fmt.Errorf("payments environment %q requires a test key (sk_test/pk_test)", testEnv)
	case liveEnv:
		if strings.HasPrefix(key, "pk_live") || strings.HasPrefix(key, "sk_live") {
			return nil
		}
		return fmt.Errorf("payments environment %q requires a live key (sk_live/pk_live)", liveEnv)
	default:
		return errInvalidPaymentsEnv
	}
}
