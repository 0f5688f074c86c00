package calcom

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	defaultBaseURL = "https://api.cal.com/v1"
	defaultTimeout = 30 * time.Second
)

// Client is a Cal.com v1 API client. Every request carries the API key as
// the apiKey query parameter.
type Client struct {
	baseURL     string
	apiKey      string
	eventTypeID int
	httpClient  *http.Client
}

// Config configures a Client
type Config struct {
	BaseURL     string
	APIKey      string
	EventTypeID int
	Timeout     time.Duration
	HTTPClient  *http.Client // optional, overrides Timeout
}

// NewClient creates a new Cal.com API client
func NewClient(cfg Config) *Client {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	return &Client{
		baseURL:     baseURL,
		apiKey:      cfg.APIKey,
		eventTypeID: cfg.EventTypeID,
		httpClient:  httpClient,
	}
}

// IsConfigured returns true if the client has an API key and event type
func (c *Client) IsConfigured() bool {
	return c.apiKey != "" && c.eventTypeID != 0
}

// EventTypeID returns the event type bookings are created against
func (c *Client) EventTypeID() int {
	return c.eventTypeID
}

// buildURL joins the endpoint to the base URL and encodes the API key plus params.
func (c *Client) buildURL(endpoint string, params url.Values) string {
	query := url.Values{}
	query.Set("apiKey", c.apiKey)
	for key, values := range params {
		for _, v := range values {
			query.Add(key, v)
		}
	}
	return fmt.Sprintf("%s/%s?%s", c.baseURL, strings.TrimLeft(endpoint, "/"), query.Encode())
}

// do sends a request and returns the status code and raw body. Transport
// failures are reported as ProviderError with a zero status code.
func (c *Client) do(ctx context.Context, op, method, endpoint string, params url.Values, payload any) (int, []byte, error) {
	var body io.Reader
	if payload != nil {
		reqBody, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, fmt.Errorf("failed to marshal %s request: %w", op, err)
		}
		body = bytes.NewReader(reqBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.buildURL(endpoint, params), body)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create %s request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, &ProviderError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, &ProviderError{Op: op, StatusCode: resp.StatusCode, Err: err}
	}

	return resp.StatusCode, respBody, nil
}

// getJSON performs a GET and decodes a 2xx body into out.
func (c *Client) getJSON(ctx context.Context, op, endpoint string, params url.Values, out any) error {
	status, body, err := c.do(ctx, op, http.MethodGet, endpoint, params, nil)
	if err != nil {
		return err
	}
	if !isSuccess(status) {
		return newProviderError(op, status, body)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &ProviderError{Op: op, StatusCode: status, Body: string(body), Err: fmt.Errorf("failed to unmarshal response: %w", err)}
	}
	return nil
}

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}

func itoa(v int) string {
	return strconv.Itoa(v)
}
