package webhook

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github-signals/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func scored(fullName string, total float64) *domain.ScoreResult {
	return &domain.ScoreResult{
		Repository: &domain.RepositoryRecord{
			FullName: fullName,
			URL:      "https://github.com/" + fullName,
		},
		Total:      total,
		Max:        10,
		Tier:       domain.TierHigh,
		WhyMatters: "Strong early traction.",
	}
}

func TestNotifySendsCard(t *testing.T) {
	var received map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(body, &received))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	n := NewNotifier(server.URL, zap.NewNop())
	err := n.Notify(context.Background(), "2026-08-25",
		[]*domain.ScoreResult{scored("acme/widget", 8.5)})
	require.NoError(t, err)

	require.NotNil(t, received)
	assert.Equal(t, "interactive", received["msg_type"])

	raw, err := json.Marshal(received)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "acme/widget")
	assert.Contains(t, string(raw), "2026-08-25")
}

func TestNotifyCapsDigestSize(t *testing.T) {
	var body string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		body = string(raw)
	}))
	defer server.Close()

	results := make([]*domain.ScoreResult, 0, digestSize+3)
	for i := 0; i < digestSize+3; i++ {
		results = append(results, scored("acme/widget", float64(10-i)))
	}
	results[digestSize].Repository.FullName = "acme/overflow"

	n := NewNotifier(server.URL, zap.NewNop())
	require.NoError(t, n.Notify(context.Background(), "2026-08-25", results))

	assert.NotContains(t, body, "acme/overflow")
}

func TestNotifyEmptyURL(t *testing.T) {
	n := NewNotifier("", zap.NewNop())
	err := n.Notify(context.Background(), "2026-08-25", nil)
	assert.Error(t, err)
}

func TestNotifyRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			http.Error(w, "busy", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	n := NewNotifier(server.URL, zap.NewNop())
	err := n.Notify(context.Background(), "2026-08-25",
		[]*domain.ScoreResult{scored("acme/widget", 8.5)})
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}
