package credential

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

// maxTokenResponseSize limits the token response body read into memory
const maxTokenResponseSize = 1 << 20

// ClientConfig holds token endpoint settings
type ClientConfig struct {
	TokenURL  string
	CorpID    string
	AppType   string
	AppID     string
	AppSecret string
	Timeout   time.Duration // per attempt
}

// Grant is a token issued by the endpoint
type Grant struct {
	Token string
	// TTL is the remaining validity reported by the endpoint
	TTL time.Duration
	// TTLKnown is false when the endpoint reported no expiry
	TTLKnown bool
	Raw      []byte
}

// RequestPreview describes the token request without sending it
type RequestPreview struct {
	URL      string         `json:"url"`
	Method   string         `json:"method"`
	Fallback string         `json:"fallback"`
	Payload  map[string]any `json:"payload"`
	Timeout  string         `json:"timeout"`
}

// Client acquires bearer tokens from the token endpoint: a JSON POST first,
// then a GET with the same fields as query parameters.
type Client struct {
	cfg        ClientConfig
	httpClient *http.Client
	now        func() time.Time
	logger     *zap.Logger
}

// ClientOption configures a Client
type ClientOption func(*Client)

// WithHTTPClient replaces the HTTP client
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithClientClock sets the clock used to turn absolute expiries into TTLs
func WithClientClock(now func() time.Time) ClientOption {
	return func(c *Client) {
		c.now = now
	}
}

// NewClient creates a token client
func NewClient(cfg ClientConfig, logger *zap.Logger, opts ...ClientOption) *Client {
	c := &Client{
		cfg:        cfg,
		httpClient: &http.Client{},
		now:        time.Now,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Acquire requests a new token. A POST that fails for any reason (transport,
// non-2xx status, undecodable body or a body without a token) is retried once as GET.
func (c *Client) Acquire(ctx context.Context) (*Grant, error) {
	acqErr := &AcquisitionError{}

	grant, err := c.attempt(ctx, http.MethodPost, acqErr)
	if err == nil {
		return grant, nil
	}
	acqErr.PostErr = err
	c.logger.Warn("Token POST failed, falling back to GET",
		zap.String("token_url", c.cfg.TokenURL),
		zap.Error(err),
	)

	grant, err = c.attempt(ctx, http.MethodGet, acqErr)
	if err == nil {
		return grant, nil
	}
	acqErr.GetErr = err
	c.logger.Error("Token GET failed",
		zap.String("token_url", c.cfg.TokenURL),
		zap.Error(err),
	)
	return nil, acqErr
}

// Preview returns the request Acquire would send, with the app secret masked
func (c *Client) Preview(mask func(string) string) RequestPreview {
	payload := c.payload()
	if secret, ok := payload["appSecret"].(string); ok && mask != nil {
		payload["appSecret"] = mask(secret)
	}
	return RequestPreview{
		URL:      c.cfg.TokenURL,
		Method:   http.MethodPost,
		Fallback: http.MethodGet,
		Payload:  payload,
		Timeout:  c.cfg.Timeout.String(),
	}
}

func (c *Client) attempt(ctx context.Context, method string, acqErr *AcquisitionError) (*Grant, error) {
	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}

	req, err := c.newRequest(ctx, method)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, classifyTransportError(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxTokenResponseSize))
	if err != nil {
		return nil, classifyTransportError(err)
	}
	acqErr.StatusCode = resp.StatusCode
	acqErr.Payload = body

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("credential: token endpoint returned HTTP %d", resp.StatusCode)
	}

	grant, err := parseGrant(body, c.now())
	if err != nil {
		return nil, err
	}
	return grant, nil
}

func (c *Client) newRequest(ctx context.Context, method string) (*http.Request, error) {
	payload := c.payload()

	if method == http.MethodGet {
		u, err := url.Parse(c.cfg.TokenURL)
		if err != nil {
			return nil, fmt.Errorf("credential: invalid token url: %w", err)
		}
		q := u.Query()
		for k, v := range payload {
			q.Set(k, fmt.Sprint(v))
		}
		u.RawQuery = q.Encode()
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
		if err != nil {
			return nil, fmt.Errorf("credential: failed to create request: %w", err)
		}
		req.Header.Set("Accept", "application/json")
		return req, nil
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("credential: failed to marshal payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.TokenURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("credential: failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	return req, nil
}

// payload builds the request fields. Empty fields are omitted; corpId and
// appType are sent as numbers when they parse as integers.
func (c *Client) payload() map[string]any {
	payload := make(map[string]any, 4)
	if c.cfg.CorpID != "" {
		payload["corpId"] = numericOrString(c.cfg.CorpID)
	}
	if c.cfg.AppType != "" {
		payload["appType"] = numericOrString(c.cfg.AppType)
	}
	if c.cfg.AppID != "" {
		payload["appId"] = c.cfg.AppID
	}
	if c.cfg.AppSecret != "" {
		payload["appSecret"] = c.cfg.AppSecret
	}
	return payload
}

func numericOrString(s string) any {
	if n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64); err == nil {
		return n
	}
	return s
}

func classifyTransportError(err error) error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return fmt.Errorf("%w: %v", ErrTokenRequestTimeout, err)
	}
	return fmt.Errorf("credential: token request failed: %w", err)
}

// parseGrant extracts the token and its TTL from a token response body.
// The token is read from access_token or token at the top level, then under data.
// The TTL comes from expires_in (seconds) or expires (absolute unix time).
func parseGrant(body []byte, now time.Time) (*Grant, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var doc map[string]any
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("credential: undecodable token response: %w", err)
	}
	data, _ := doc["data"].(map[string]any)

	token := findToken(doc)
	if token == "" && data != nil {
		token = findToken(data)
	}
	if token == "" {
		return nil, ErrNoToken
	}

	grant := &Grant{Token: token, Raw: body}
	if secs, ok := numberField(doc, "expires_in"); ok {
		grant.TTL, grant.TTLKnown = time.Duration(secs)*time.Second, true
	} else if secs, ok := numberField(data, "expires_in"); ok {
		grant.TTL, grant.TTLKnown = time.Duration(secs)*time.Second, true
	} else if exp, ok := numberField(doc, "expires"); ok {
		grant.TTL, grant.TTLKnown = time.Unix(exp, 0).Sub(now).Truncate(time.Second), true
	}
	return grant, nil
}

func findToken(m map[string]any) string {
	for _, key := range []string{"access_token", "token"} {
		if s, ok := m[key].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

func numberField(m map[string]any, key string) (int64, bool) {
	if m == nil {
		return 0, false
	}
	switch v := m[key].(type) {
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return n, true
		}
		if f, err := v.Float64(); err == nil {
			return int64(f), true
		}
	case string:
		if n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64); err == nil {
			return n, true
		}
	}
	return 0, false
}
