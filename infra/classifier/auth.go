package classifier

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// AuthConfig holds the OAuth2 client credentials of the classification
// endpoint. An empty TokenURL disables authentication.
type AuthConfig struct {
	ClientID     string   `json:"client_id"`
	ClientSecret string   `json:"client_secret"`
	TokenURL     string   `json:"token_url"`
	Scopes       []string `json:"scopes"`
}

func (c AuthConfig) enabled() bool { return c.TokenURL != "" }

func (c AuthConfig) oauth2() clientcredentials.Config {
	return clientcredentials.Config{
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		TokenURL:     c.TokenURL,
		Scopes:       c.Scopes,
	}
}

// clientCred caches a client-credentials token and refreshes it on expiry.
type clientCred struct {
	conf  clientcredentials.Config
	mu    sync.Mutex
	token *oauth2.Token
}

func newClientCred(c AuthConfig) *clientCred {
	return &clientCred{conf: c.oauth2()}
}

// Token returns a valid access token.
func (c *clientCred) Token(ctx context.Context) (*oauth2.Token, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token != nil && c.token.Valid() {
		return c.token, nil
	}
	tok, err := c.conf.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get token: %w", err)
	}
	c.token = tok
	return tok, nil
}

// invalidate drops the cached token so the next call fetches a new one.
func (c *clientCred) invalidate() {
	c.mu.Lock()
	c.token = nil
	c.mu.Unlock()
}

func (c *clientCred) setAuthHeader(ctx context.Context, r *http.Request) error {
	tok, err := c.Token(ctx)
	if err != nil {
		return err
	}
	tok.SetAuthHeader(r)
	return nil
}
