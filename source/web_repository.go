package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"

	"github.com/sirupsen/logrus"
)

// WebRepository is a struct that implements the Repository interface for
// manifests fetched from a remote HTTP endpoint, typically the raw endpoint
// of another provctl server.
type WebRepository struct {
	store
	Name   string       // Name of the manifest source
	URL    *url.URL     // URL of the YAML bundle
	APIKey string       // Optional API key for X-API-Key header authentication
	Client *http.Client // Optional client, http.DefaultClient when nil

	etagMu sync.Mutex
	etag   string
}

// GetName returns the name of the manifest source.
func (w *WebRepository) GetName() string {
	return w.Name
}

// Refresh fetches the YAML bundle. A 304 answer to If-None-Match keeps the
// current manifests.
func (w *WebRepository) Refresh(ctx context.Context) error {
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, w.URL.String(), nil)
	if err != nil {
		logrus.Debug("error creating request")
		return err
	}

	// Set X-API-Key header if API key is configured
	if w.APIKey != "" {
		request.Header.Set("X-API-Key", w.APIKey)
	}
	w.etagMu.Lock()
	etag := w.etag
	w.etagMu.Unlock()
	if etag != "" && len(w.GetRawData()) > 0 {
		request.Header.Set("If-None-Match", etag)
	}

	client := w.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(request)
	if err != nil {
		logrus.Debug("error doing request")
		return err
	}
	defer func(Body io.ReadCloser) {
		err := Body.Close()
		if err != nil {
			logrus.WithError(err).Debug("error closing response body")
		}
	}(resp.Body)

	if resp.StatusCode == http.StatusNotModified {
		logrus.WithField("source", w.Name).Debug("not modified")
		return nil
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("fetching %s: unexpected status %s", w.URL.Redacted(), resp.Status)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		logrus.Debug("error reading file")
		return err
	}

	if err := w.load(data); err != nil {
		return err
	}
	w.etagMu.Lock()
	w.etag = resp.Header.Get("ETag")
	w.etagMu.Unlock()
	return nil
}
