package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/existflow/oahu/internal/config"
	"github.com/existflow/oahu/internal/errs"
	"github.com/existflow/oahu/internal/logger"
)

// Options configures the HTTP client
type Options struct {
	Endpoint     string
	AppID        string
	UserAgent    string
	HeaderPrefix string
	Timeout      time.Duration
	Auth         Auth

	HTTPClient *http.Client
	Now        func() time.Time
}

// OptionsFromConfig signs requests as the configured consumer
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Endpoint:     cfg.Endpoint,
		AppID:        cfg.AppID,
		UserAgent:    cfg.UserAgent,
		HeaderPrefix: cfg.HeaderPrefix,
		Timeout:      cfg.Timeout,
		Auth: Auth{
			Scheme: SchemeConsumer,
			ID:     cfg.ConsumerID,
			SigID:  cfg.ClientID,
			Secret: cfg.ConsumerSecret,
		},
	}
}

// Client talks JSON to the remote service
type Client struct {
	opts       Options
	httpClient *http.Client
	log        *logger.Logger
}

// NewClient creates a new remote client
func NewClient(opts Options, log *logger.Logger) *Client {
	if opts.Timeout == 0 {
		opts.Timeout = config.DefaultTimeout
	}
	if opts.HeaderPrefix == "" {
		opts.HeaderPrefix = config.DefaultHeaderPrefix
	}
	if opts.UserAgent == "" {
		opts.UserAgent = config.DefaultUserAgent
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: opts.Timeout}
	}
	return &Client{
		opts:       opts,
		httpClient: hc,
		log:        log.WithFields(logger.F("component", "remote")),
	}
}

// Get fetches path. The payload is either an attribute map or a list of them.
func (c *Client) Get(ctx context.Context, path string, params Params) (json.RawMessage, error) {
	return c.do(ctx, http.MethodGet, path, params, nil, c.opts.Auth)
}

// Post sends body as JSON
func (c *Client) Post(ctx context.Context, path string, body any) (json.RawMessage, error) {
	return c.do(ctx, http.MethodPost, path, nil, body, c.opts.Auth)
}

// Put sends body as JSON
func (c *Client) Put(ctx context.Context, path string, body any) (json.RawMessage, error) {
	return c.do(ctx, http.MethodPut, path, nil, body, c.opts.Auth)
}

func (c *Client) url(path string, params Params) string {
	u := strings.TrimRight(c.opts.Endpoint, "/") + "/" + strings.TrimLeft(path, "/")
	if q := params.Encode(); q != "" {
		u += "?" + q
	}
	return u
}

func (c *Client) do(ctx context.Context, method, path string, params Params, body any, auth Auth) (json.RawMessage, error) {
	op := method + " " + path
	url := c.url(path, params)

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, errs.Invalid(op, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, errs.Invalid(op, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.opts.UserAgent)
	req.Header.Set("X-Request-Id", uuid.NewString())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	Sign(req.Header, c.opts.HeaderPrefix, c.opts.AppID, auth, c.opts.Now().Unix())

	c.log.Debug("HTTP Request",
		logger.F("method", method),
		logger.F("url", url))

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Error("HTTP request failed", logger.F("error", err), logger.F("url", url))
		return nil, errs.Transport(op, 0, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errs.Transport(op, resp.StatusCode, fmt.Errorf("failed to read body: %w", err))
	}

	c.log.Debug("HTTP Response",
		logger.F("status", resp.StatusCode),
		logger.F("url", url),
		logger.F("duration", time.Since(start).String()))

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, errs.NotFound(op, nil)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		c.log.Warn("Remote error",
			logger.F("status", resp.StatusCode),
			logger.F("response", truncate(string(respBody), 512)))
		return nil, errs.Transport(op, resp.StatusCode, fmt.Errorf("server error: %s", truncate(string(respBody), 128)))
	}

	if len(bytes.TrimSpace(respBody)) == 0 {
		return json.RawMessage("null"), nil
	}
	if !json.Valid(respBody) {
		return nil, errs.Transport(op, resp.StatusCode, fmt.Errorf("malformed payload"))
	}
	return json.RawMessage(respBody), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
