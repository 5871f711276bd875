package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-retryablehttp"

	"github.com/zou/appbridge/internal/channel"
	"github.com/zou/appbridge/internal/infrastructure/tracing"
	"github.com/zou/appbridge/internal/shared/id"
	"github.com/zou/appbridge/internal/shared/types"
)

// ErrUnknownChannel is returned when the host does not serve the channel
var ErrUnknownChannel = errors.New("channel not served by host")

// Error is a structured failure reported by the bridge
type Error struct {
	Code    types.ErrorCode
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return e.Code.Wire()
	}
	return e.Code.Wire() + ": " + e.Message
}

// Config defines client behavior
type Config struct {
	Timeout      time.Duration
	RetryMax     int
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration
	UserAgent    string
}

// DefaultConfig returns the default client configuration
func DefaultConfig() Config {
	return Config{
		Timeout:      30 * time.Second,
		RetryMax:     3,
		RetryWaitMin: 200 * time.Millisecond,
		RetryWaitMax: 5 * time.Second,
		UserAgent:    "appbridge-client/1.0",
	}
}

// Client speaks the channel protocol over HTTP
type Client struct {
	resty   *resty.Client
	channel string
}

// New creates a client for the channel served at baseURL
func New(baseURL, channelName string) *Client {
	return NewWithConfig(baseURL, channelName, DefaultConfig())
}

// NewWithConfig creates a client with explicit settings. Transport retries
// happen on connection errors and gateway failures only; a reply from the
// bridge is never retried.
func NewWithConfig(baseURL, channelName string, cfg Config) *Client {
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = cfg.RetryMax
	retryClient.RetryWaitMin = cfg.RetryWaitMin
	retryClient.RetryWaitMax = cfg.RetryWaitMax
	retryClient.CheckRetry = checkRetry
	retryClient.Logger = nil

	restyClient := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(cfg.Timeout).
		SetHeader("User-Agent", cfg.UserAgent).
		SetHeader("Content-Type", "application/json")
	restyClient.SetTransport(&retryablehttp.RoundTripper{Client: retryClient})

	return &Client{
		resty:   restyClient,
		channel: channelName,
	}
}

func checkRetry(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	if err != nil {
		return retryablehttp.DefaultRetryPolicy(ctx, resp, err)
	}
	switch resp.StatusCode {
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true, nil
	}
	return false, nil
}

// Channel returns the channel name
func (c *Client) Channel() string {
	return c.channel
}

// Call sends one method call and returns the raw reply
func (c *Client) Call(ctx context.Context, method string, args map[string]interface{}) (*types.Reply, error) {
	body, err := channel.EncodeCall(types.MethodCall{
		ID:     id.NewCallID().String(),
		Method: method,
		Args:   args,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode call: %w", err)
	}

	headers := make(map[string]string)
	tracing.InjectTraceContext(ctx, headers)

	resp, err := c.resty.R().
		SetContext(ctx).
		SetHeaders(headers).
		SetPathParam("channel", c.channel).
		SetBody(body).
		Post("/channels/{channel}")
	if err != nil {
		return nil, fmt.Errorf("channel request failed: %w", err)
	}

	switch resp.StatusCode() {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", ErrUnknownChannel, c.channel)
	default:
		return nil, fmt.Errorf("channel request failed: %s: %s", resp.Status(), strings.TrimSpace(resp.String()))
	}

	reply, err := channel.DecodeReply(resp.Body())
	if err != nil {
		return nil, err
	}
	return &reply, nil
}

// IsAppInstalled asks whether appID is installed on the host
func (c *Client) IsAppInstalled(ctx context.Context, appID string) (bool, error) {
	return c.callBool(ctx, types.MethodIsAppInstalled, appID)
}

// OpenApp asks the host to bring appID to the foreground
func (c *Client) OpenApp(ctx context.Context, appID string) (bool, error) {
	return c.callBool(ctx, types.MethodOpenApp, appID)
}

func (c *Client) callBool(ctx context.Context, method, appID string) (bool, error) {
	reply, err := c.Call(ctx, method, map[string]interface{}{types.ArgPackageName: appID})
	if err != nil {
		return false, err
	}
	return ResultError(reply.ToResult())
}

// ResultError converts a Result into Go's (value, error) form
func ResultError(r types.Result) (bool, error) {
	if r.Failure != nil {
		return false, &Error{Code: r.Failure.Code, Message: r.Failure.Message}
	}
	return r.Value, nil
}

// Health fetches GET /health
func (c *Client) Health(ctx context.Context) (map[string]interface{}, error) {
	var out map[string]interface{}
	resp, err := c.resty.R().SetContext(ctx).SetResult(&out).Get("/health")
	if err != nil {
		return nil, fmt.Errorf("health request failed: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("health request failed: %s", resp.Status())
	}
	return out, nil
}

// Apps fetches the diagnostic registry listing
func (c *Client) Apps(ctx context.Context) ([]types.AppEntry, error) {
	var out struct {
		Apps []types.AppEntry `json:"apps"`
	}
	resp, err := c.resty.R().SetContext(ctx).SetResult(&out).Get("/apps")
	if err != nil {
		return nil, fmt.Errorf("apps request failed: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("apps request failed: %s: %s", resp.Status(), strings.TrimSpace(resp.String()))
	}
	return out.Apps, nil
}
