package classifier

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/blockplan/core/optimizer"
)

func tokenServer(t *testing.T, issued *int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		n := atomic.AddInt32(issued, 1)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "token" + string(rune('0'+n)), "token_type": "bearer", "expires_in": 3600,
		})
	}))
}

func TestRemoteClassify(t *testing.T) {
	var issued int32
	tokens := tokenServer(t, &issued)
	defer tokens.Close()

	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer token1", r.Header.Get("Authorization"))
		var req request
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "g1", req.GroupID)
		assert.Equal(t, []string{"Swimming"}, req.Titles)
		_, _ = w.Write([]byte(`{"category":"sports","priority":3}`))
	}))
	defer api.Close()

	c, err := optimizer.NewClassifier("remote", map[string]any{
		"url":  api.URL,
		"auth": map[string]any{"client_id": "id", "client_secret": "secret", "token_url": tokens.URL},
	})
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		got, err := c.Classify(context.Background(), optimizer.Candidate{GroupID: "g1", GroupTitle: "Pool", Titles: []string{"Swimming"}})
		require.NoError(t, err)
		assert.Equal(t, optimizer.Classification{Category: "sports", Priority: 3}, got)
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&issued), "token must be reused")
}

func TestRemoteRefreshesTokenOnUnauthorized(t *testing.T) {
	var issued int32
	tokens := tokenServer(t, &issued)
	defer tokens.Close()

	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "Bearer token1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"category":"school","priority":1}`))
	}))
	defer api.Close()

	r, err := NewRemote(Config{URL: api.URL, Auth: AuthConfig{ClientID: "id", TokenURL: tokens.URL}})
	require.NoError(t, err)
	got, err := r.Classify(context.Background(), optimizer.Candidate{GroupTitle: "Class"})
	require.NoError(t, err)
	assert.Equal(t, "school", got.Category)
	assert.Equal(t, int32(2), atomic.LoadInt32(&issued))
}

func TestRemoteErrors(t *testing.T) {
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer api.Close()

	r, err := NewRemote(Config{URL: api.URL})
	require.NoError(t, err)
	_, err = r.Classify(context.Background(), optimizer.Candidate{GroupTitle: "x"})
	assert.ErrorContains(t, err, "503")

	if _, err := NewRemote(Config{}); err == nil {
		t.Fatalf("expected missing url error")
	}
}
