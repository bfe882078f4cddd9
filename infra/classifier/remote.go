// Package classifier implements a remote category classifier that posts
// source-group descriptions to an HTTP endpoint, typically a language model
// gateway, authenticated with OAuth2 client credentials.
package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/kilianp07/blockplan/core/factory"
	"github.com/kilianp07/blockplan/core/optimizer"
)

// Config configures the remote classifier.
type Config struct {
	URL     string        `json:"url"`
	Timeout time.Duration `json:"timeout"`
	Auth    AuthConfig    `json:"auth"`
}

type request struct {
	GroupID      string   `json:"group_id"`
	GroupTitle   string   `json:"group_title"`
	Titles       []string `json:"titles"`
	CategoryHint string   `json:"category_hint,omitempty"`
}

type response struct {
	Category string `json:"category"`
	Priority int    `json:"priority"`
}

// Remote classifies groups through an HTTP endpoint. Errors are returned to
// the optimizer, which falls back to the "other" category.
type Remote struct {
	url    string
	client *http.Client
	cred   *clientCred
}

// NewRemote builds a remote classifier.
func NewRemote(cfg Config) (*Remote, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("classifier: missing url")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	r := &Remote{url: cfg.URL, client: &http.Client{Timeout: cfg.Timeout}}
	if cfg.Auth.enabled() {
		r.cred = newClientCred(cfg.Auth)
	}
	return r, nil
}

// Classify implements optimizer.Classifier.
func (r *Remote) Classify(ctx context.Context, c optimizer.Candidate) (optimizer.Classification, error) {
	body, err := json.Marshal(request{GroupID: c.GroupID, GroupTitle: c.GroupTitle, Titles: c.Titles, CategoryHint: c.CategoryHint})
	if err != nil {
		return optimizer.Classification{}, err
	}
	out, status, err := r.post(ctx, body)
	if err == nil && status == http.StatusUnauthorized && r.cred != nil {
		r.cred.invalidate()
		out, status, err = r.post(ctx, body)
	}
	if err != nil {
		return optimizer.Classification{}, err
	}
	if status != http.StatusOK {
		return optimizer.Classification{}, fmt.Errorf("unexpected status code: %d, body: %s", status, out)
	}
	var resp response
	if err := json.Unmarshal(out, &resp); err != nil {
		return optimizer.Classification{}, fmt.Errorf("failed to decode response: %w", err)
	}
	return optimizer.Classification{Category: resp.Category, Priority: resp.Priority}, nil
}

func (r *Remote) post(ctx context.Context, body []byte) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url, bytes.NewReader(body))
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if r.cred != nil {
		if err := r.cred.setAuthHeader(ctx, req); err != nil {
			return nil, 0, fmt.Errorf("failed to set auth header: %w", err)
		}
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read response: %w", err)
	}
	return out, resp.StatusCode, nil
}

func init() {
	_ = optimizer.RegisterClassifier("remote", func(conf map[string]any) (optimizer.Classifier, error) {
		var c Config
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return NewRemote(c)
	})
}
