// Package distance implements travel.Provider on top of the Google Distance
// Matrix API and on a static table of known durations.
package distance

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/kilianp07/blockplan/core/travel"
)

// DefaultGoogleURL is the Distance Matrix JSON endpoint.
const DefaultGoogleURL = "https://maps.googleapis.com/maps/api/distancematrix/json"

// GoogleConfig configures the Distance Matrix client.
type GoogleConfig struct {
	APIKey  string        `json:"api_key"`
	BaseURL string        `json:"base_url"`
	Timeout time.Duration `json:"timeout"`
}

// Option customises a Google client.
type Option func(*Google) error

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(g *Google) error {
		if c == nil {
			return fmt.Errorf("nil http client")
		}
		g.client = c
		return nil
	}
}

// WithBaseURL points the client at another endpoint.
func WithBaseURL(u string) Option {
	return func(g *Google) error {
		if _, err := url.Parse(u); err != nil {
			return fmt.Errorf("invalid base url: %w", err)
		}
		g.baseURL = u
		return nil
	}
}

// Google queries the Distance Matrix API for one origin and one destination.
type Google struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// NewGoogle builds a client. The API key is mandatory.
func NewGoogle(cfg GoogleConfig, opts ...Option) (*Google, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("distance: missing api key")
	}
	g := &Google{apiKey: cfg.APIKey, baseURL: DefaultGoogleURL, client: &http.Client{Timeout: cfg.Timeout}}
	if cfg.BaseURL != "" {
		opts = append([]Option{WithBaseURL(cfg.BaseURL)}, opts...)
	}
	for _, opt := range opts {
		if err := opt(g); err != nil {
			return nil, err
		}
	}
	return g, nil
}

type matrixResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message,omitempty"`
	Rows         []struct {
		Elements []struct {
			Status   string `json:"status"`
			Duration struct {
				Value int    `json:"value"`
				Text  string `json:"text"`
			} `json:"duration"`
		} `json:"elements"`
	} `json:"rows"`
}

// Duration implements travel.Provider. A non-OK top-level or element status
// is reported in the Response, not as an error.
func (g *Google) Duration(ctx context.Context, req travel.Request) (travel.Response, error) {
	q := url.Values{}
	q.Set("origins", req.Origin.Query())
	q.Set("destinations", req.Destination.Query())
	q.Set("mode", string(req.Mode))
	if req.Language != "" {
		q.Set("language", req.Language)
	}
	q.Set("key", g.apiKey)

	hreq, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return travel.Response{}, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := g.client.Do(hreq)
	if err != nil {
		return travel.Response{}, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return travel.Response{}, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return travel.Response{}, fmt.Errorf("unexpected status code: %d, body: %s", resp.StatusCode, body)
	}
	var m matrixResponse
	if err := json.Unmarshal(body, &m); err != nil {
		return travel.Response{}, fmt.Errorf("failed to decode response: %w", err)
	}
	if m.Status != travel.StatusOK {
		return travel.Response{Status: m.Status}, nil
	}
	if len(m.Rows) == 0 || len(m.Rows[0].Elements) == 0 {
		return travel.Response{Status: "ZERO_RESULTS"}, nil
	}
	el := m.Rows[0].Elements[0]
	return travel.Response{Status: el.Status, DurationSeconds: el.Duration.Value}, nil
}
