// Package client talks to the provctl API: token login under /auth and the
// registry endpoints under /api/v2.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"runtime"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/sardine-ai/provider-registry/api"
)

// Kind selects the part of the API a client talks to.
type Kind string

const (
	KindCLI  Kind = "cli"
	KindAuth Kind = "auth"
)

// Version is reported in the user-agent header.
var Version = "dev"

// ServerResponseError is returned for every 4xx and 5xx answer.
type ServerResponseError struct {
	StatusCode    int
	Detail        string
	CorrelationID string
}

func (e *ServerResponseError) Error() string {
	return fmt.Sprintf("server error %d: %s", e.StatusCode, e.Detail)
}

type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// New creates a client for the API at baseURL. Every request carries the
// bearer token, a user-agent and a fresh correlation id.
func New(baseURL, token string, kind Kind) *Client {
	return &Client{
		BaseURL: BaseURL(baseURL, kind),
		HTTPClient: &http.Client{
			Timeout:   30 * time.Second,
			Transport: &transport{token: token, next: http.DefaultTransport},
		},
	}
}

// FromCredentials loads the saved credentials and creates a client from them.
func FromCredentials(kind Kind) (*Client, error) {
	creds := NewCredentials("", "", kind)
	if err := creds.Load(); err != nil {
		return nil, err
	}
	return New(creds.APIURL, creds.APIToken, kind), nil
}

// BaseURL returns the root a client of the given kind talks to.
func BaseURL(baseURL string, kind Kind) string {
	baseURL = strings.TrimRight(baseURL, "/")
	if kind == KindAuth {
		return baseURL + "/auth"
	}
	return baseURL + "/api/v2"
}

func userAgent() string {
	return fmt.Sprintf("provctl/%s (Go/%s)", Version, strings.TrimPrefix(runtime.Version(), "go"))
}

type transport struct {
	token string
	next  http.RoundTripper
}

func (t *transport) RoundTrip(req *http.Request) (*http.Response, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, err
	}
	req = req.Clone(req.Context())
	if t.token != "" {
		req.Header.Set("Authorization", "Bearer "+t.token)
	}
	req.Header.Set("User-Agent", userAgent())
	req.Header.Set("correlation-id", id.String())
	return t.next.RoundTrip(req)
}

func (c *Client) do(ctx context.Context, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	logrus.WithFields(logrus.Fields{"method": method, "url": req.URL.String()}).Debug("calling API")
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return responseError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response of %s %s: %w", method, path, err)
	}
	return nil
}

func responseError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	serverErr := &ServerResponseError{
		StatusCode:    resp.StatusCode,
		CorrelationID: resp.Header.Get("correlation-id"),
	}
	var body api.ErrorResponse
	if err := json.Unmarshal(data, &body); err == nil && body.Detail != "" {
		serverErr.Detail = body.Detail
	} else {
		serverErr.Detail = strings.TrimSpace(string(data))
	}
	if serverErr.Detail == "" {
		serverErr.Detail = http.StatusText(resp.StatusCode)
	}
	logrus.WithFields(logrus.Fields{
		"status":         serverErr.StatusCode,
		"detail":         serverErr.Detail,
		"correlation_id": serverErr.CorrelationID,
	}).Warn("Server error")
	return serverErr
}
