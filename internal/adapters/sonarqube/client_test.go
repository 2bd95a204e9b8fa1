package sonarqube

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HamedShams/platform-ops-hub/internal/config"
)

func newServer(t *testing.T, measures string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/measures/component", func(w http.ResponseWriter, r *http.Request) {
		user, _, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "squ_token", user)
		assert.Equal(t, "platform-api", r.URL.Query().Get("component"))
		_, _ = w.Write([]byte(measures))
	})
	mux.HandleFunc("/api/issues/search", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "severities", r.URL.Query().Get("facets"))
		_, _ = w.Write([]byte(`{"facets":[{"property":"severities","values":[
			{"val":"BLOCKER","count":1},{"val":"CRITICAL","count":2},{"val":"MAJOR","count":5},{"val":"MINOR","count":8},{"val":"INFO","count":3}]}]}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestFetchProjectQualityMetrics(t *testing.T) {
	srv := newServer(t, `{"component":{"key":"platform-api","measures":[
		{"metric":"bugs","value":"10"},{"metric":"vulnerabilities","value":"4"},
		{"metric":"code_smells","value":"105"},{"metric":"coverage","value":"76.8"}]}}`)
	c := NewClient(config.Config{SonarBaseURL: srv.URL, SonarToken: "squ_token", HTTPTimeout: time.Second}, zerolog.Nop())

	m, err := c.FetchProjectQualityMetrics(context.Background(), "platform-api")
	require.NoError(t, err)
	assert.Equal(t, 10, m.Bugs)
	assert.Equal(t, 4, m.Vulnerabilities)
	assert.Equal(t, 105, m.CodeSmells)
	require.NotNil(t, m.Coverage)
	assert.InDelta(t, 76.8, *m.Coverage, 1e-9)
	assert.Equal(t, 3, m.Criticals)
	assert.Equal(t, 5, m.Highs)
	assert.Equal(t, 8, m.Mediums)
	assert.Equal(t, 3, m.Lows)
}

func TestCoverageAbsent(t *testing.T) {
	srv := newServer(t, `{"component":{"key":"platform-api","measures":[{"metric":"bugs","value":"0"}]}}`)
	c := NewClient(config.Config{SonarBaseURL: srv.URL, SonarToken: "squ_token", HTTPTimeout: time.Second}, zerolog.Nop())

	m, err := c.FetchProjectQualityMetrics(context.Background(), "platform-api")
	require.NoError(t, err)
	assert.Nil(t, m.Coverage)
	assert.Zero(t, m.Bugs)
}
