package client

import (
	"context"
	"net/http"
	"net/url"

	"github.com/sardine-ai/provider-registry/api"
	"github.com/sardine-ai/provider-registry/auth"
	"github.com/sardine-ai/provider-registry/manifest"
	"github.com/sardine-ai/provider-registry/registry"
)

// Login exchanges a username and password for a token. The client must be
// of KindAuth.
func (c *Client) Login(ctx context.Context, username, password string) (*auth.Token, error) {
	var token auth.Token
	err := c.do(ctx, http.MethodPost, "/token", api.TokenRequest{Username: username, Password: password}, &token)
	if err != nil {
		return nil, err
	}
	return &token, nil
}

// ProvidersOperations groups the provider endpoints.
type ProvidersOperations struct {
	client *Client
}

func (c *Client) Providers() *ProvidersOperations {
	return &ProvidersOperations{client: c}
}

func (o *ProvidersOperations) List(ctx context.Context) (*api.ProviderCollection, error) {
	var out api.ProviderCollection
	if err := o.client.do(ctx, http.MethodGet, "/providers", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (o *ProvidersOperations) Get(ctx context.Context, packageName string) (*manifest.Provider, error) {
	var out manifest.Provider
	if err := o.client.do(ctx, http.MethodGet, "/providers/"+url.PathEscape(packageName), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ConnectionTypes(ctx context.Context) (*api.ConnectionTypeCollection, error) {
	var out api.ConnectionTypeCollection
	if err := c.do(ctx, http.MethodGet, "/connection-types", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ConnectionType(ctx context.Context, connType string) (*registry.Hook, error) {
	var out registry.Hook
	if err := c.do(ctx, http.MethodGet, "/connection-types/"+url.PathEscape(connType), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Executors(ctx context.Context) (*api.ExecutorCollection, error) {
	var out api.ExecutorCollection
	if err := c.do(ctx, http.MethodGet, "/executors", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Config returns the merged, redacted configuration defaults.
func (c *Client) Config(ctx context.Context) (*api.ConfigResponse, error) {
	var out api.ConfigResponse
	if err := c.do(ctx, http.MethodGet, "/config", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ConfigOption(ctx context.Context, section, option string) (*registry.Option, error) {
	var out registry.Option
	path := "/config/" + url.PathEscape(section) + "/" + url.PathEscape(option)
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Conflicts(ctx context.Context) (*api.ConflictCollection, error) {
	var out api.ConflictCollection
	if err := c.do(ctx, http.MethodGet, "/conflicts", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Version(ctx context.Context) (*api.VersionResponse, error) {
	var out api.VersionResponse
	if err := c.do(ctx, http.MethodGet, "/version", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
