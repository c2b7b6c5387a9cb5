package qps

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/platinummonkey/qauth/pkg/observability"
)

const xrfKeyLength = 16

var (
	// ErrNoTicket indicates the proxy service answered without a Ticket
	// field. Callers treat this the same as a transport failure.
	ErrNoTicket = errors.New("qps: no ticket in response")
)

// Config holds the Qlik Proxy Service client configuration. It is read once
// at process start; the resulting client is safe for concurrent use.
type Config struct {
	// BaseURL of the authentication module, e.g.
	// https://qlik.internal:4243/qps/qauth/
	BaseURL string

	// Client certificate bundle exported from the Qlik installation.
	CertFile string
	KeyFile  string
	CAFile   string

	// XrfKey is the shared anti-forgery key, exactly 16 characters.
	XrfKey string

	// Timeout bounds each call; a call that exceeds it is a failure.
	Timeout time.Duration
}

// Validate checks the client configuration
func (c Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("qps: base URL is required")
	}
	if len(c.XrfKey) != xrfKeyLength {
		return fmt.Errorf("qps: xrfkey must be exactly %d characters", xrfKeyLength)
	}
	if c.CertFile == "" || c.KeyFile == "" || c.CAFile == "" {
		return fmt.Errorf("qps: client certificate, key and root CA are required")
	}
	return nil
}

// Client talks to the Qlik Proxy Service. Create one at startup and share
// it; its configuration is read-only after construction.
type Client struct {
	http    *http.Client
	baseURL string
	xrfKey  string
	logger  *observability.Logger
	metrics *observability.Metrics
}

// NewClient builds a mutually-authenticated client from certificate files.
func NewClient(cfg Config, logger *observability.Logger, metrics *observability.Metrics) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	cert, err := tls.LoadX509KeyPair(cfg.CertFile, cfg.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("qps: failed to load client certificate: %w", err)
	}

	caPEM, err := os.ReadFile(cfg.CAFile)
	if err != nil {
		return nil, fmt.Errorf("qps: failed to read root CA: %w", err)
	}
	caPool := x509.NewCertPool()
	if !caPool.AppendCertsFromPEM(caPEM) {
		return nil, fmt.Errorf("qps: no certificates found in %s", cfg.CAFile)
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	httpClient := &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{
				Certificates: []tls.Certificate{cert},
				RootCAs:      caPool,
				// The service presents a self-signed chain and is reached
				// by IP or internal DNS; trust is the pinned root above,
				// not the hostname.
				InsecureSkipVerify: true,
			},
		},
	}

	return newClient(cfg, httpClient, logger, metrics), nil
}

// NewClientWithHTTPClient builds a client over a caller-supplied HTTP
// client. Intended for tests and custom transports; certificate files in
// cfg are ignored.
func NewClientWithHTTPClient(cfg Config, httpClient *http.Client, logger *observability.Logger, metrics *observability.Metrics) *Client {
	return newClient(cfg, httpClient, logger, metrics)
}

func newClient(cfg Config, httpClient *http.Client, logger *observability.Logger, metrics *observability.Metrics) *Client {
	if logger == nil {
		logger = observability.NewLogger(observability.InfoLevel, nil)
	}
	return &Client{
		http:    httpClient,
		baseURL: ensureTrailingSlash(cfg.BaseURL),
		xrfKey:  cfg.XrfKey,
		logger:  logger,
		metrics: metrics,
	}
}

func ensureTrailingSlash(u string) string {
	if u == "" || strings.HasSuffix(u, "/") {
		return u
	}
	return u + "/"
}

// RequestTicket asks the proxy service for a ticket. The attribute order in
// req is preserved on the wire. A response without a Ticket field returns
// ErrNoTicket.
func (c *Client) RequestTicket(ctx context.Context, req TicketRequest) (*Ticket, error) {
	if req.Attributes == nil {
		req.Attributes = []Attribute{}
	}

	base := c.baseURL
	if req.ProxyURI != "" {
		base = ensureTrailingSlash(req.ProxyURI)
	}
	endpoint := base + "ticket?xrfkey=" + url.QueryEscape(c.xrfKey)

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("qps: failed to marshal ticket request: %w", err)
	}

	c.logger.WithFields(map[string]interface{}{
		"user_directory": req.UserDirectory,
		"user_id":        req.UserID,
	}).Debugf("POST %s", endpoint)

	var resp ticketResponse
	if err := c.do(ctx, "ticket", http.MethodPost, endpoint, bytes.NewReader(body), &resp); err != nil {
		return nil, err
	}

	if resp.Ticket == "" {
		c.logger.WithFields(map[string]interface{}{
			"user_directory": req.UserDirectory,
			"user_id":        req.UserID,
		}).Warn("proxy service answered without a ticket")
		return nil, ErrNoTicket
	}

	return &Ticket{Value: resp.Ticket, TargetURI: resp.TargetURI}, nil
}

// UserSessions lists the downstream sessions of an identity. The payload is
// passed through verbatim.
func (c *Client) UserSessions(ctx context.Context, directory, userID string) (json.RawMessage, error) {
	return c.userRequest(ctx, "user_get", http.MethodGet, directory, userID)
}

// DeleteUser revokes an identity and all of its downstream sessions.
// Revoking a user with no active sessions succeeds trivially.
func (c *Client) DeleteUser(ctx context.Context, directory, userID string) (json.RawMessage, error) {
	return c.userRequest(ctx, "user_delete", http.MethodDelete, directory, userID)
}

func (c *Client) userRequest(ctx context.Context, operation, method, directory, userID string) (json.RawMessage, error) {
	endpoint := fmt.Sprintf("%suser/%s/%s?xrfkey=%s",
		c.baseURL, url.PathEscape(directory), url.PathEscape(userID), url.QueryEscape(c.xrfKey))

	c.logger.Debugf("%s %s", method, endpoint)

	var payload json.RawMessage
	if err := c.do(ctx, operation, method, endpoint, nil, &payload); err != nil {
		return nil, err
	}
	return payload, nil
}

// do performs one call and decodes the JSON response. Transport errors and
// non-2xx statuses are both failures; nothing is retried.
func (c *Client) do(ctx context.Context, operation, method, endpoint string, body *bytes.Reader, out interface{}) error {
	start := time.Now()
	err := c.doOnce(ctx, method, endpoint, body, out)

	if c.metrics != nil {
		status := "ok"
		if err != nil {
			status = "error"
		}
		c.metrics.ObserveQPSRequest(operation, status, time.Since(start))
	}
	return err
}

func (c *Client) doOnce(ctx context.Context, method, endpoint string, body *bytes.Reader, out interface{}) error {
	var req *http.Request
	var err error
	if body != nil {
		req, err = http.NewRequestWithContext(ctx, method, endpoint, body)
	} else {
		req, err = http.NewRequestWithContext(ctx, method, endpoint, nil)
	}
	if err != nil {
		return fmt.Errorf("qps: failed to build request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Qlik-Xrfkey", c.xrfKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("qps: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("qps: unexpected status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("qps: failed to decode response: %w", err)
	}
	return nil
}
