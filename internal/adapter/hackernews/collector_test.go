package hackernews

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github-signals/internal/config"
	"github-signals/internal/port"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestResolveRepo(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want string
	}{
		{"plain repo", "https://github.com/acme/widget", "acme/widget"},
		{"with path", "https://github.com/acme/widget/tree/main/docs", "acme/widget"},
		{"git suffix", "https://github.com/acme/widget.git", "acme/widget"},
		{"dotted name", "https://github.com/acme/widget.js", "acme/widget.js"},
		{"topics page", "https://github.com/topics/devops", ""},
		{"orgs page", "https://github.com/orgs/acme/people", ""},
		{"non-github", "https://example.com/acme/widget", ""},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ResolveRepo(tt.url))
		})
	}
}

type hnFixture struct {
	top   []int
	new   []int
	show  []int
	items map[int]map[string]any
}

func newFixtureServer(t *testing.T, f hnFixture) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/topstories.json":
			json.NewEncoder(w).Encode(f.top)
		case r.URL.Path == "/newstories.json":
			json.NewEncoder(w).Encode(f.new)
		case r.URL.Path == "/showstories.json":
			json.NewEncoder(w).Encode(f.show)
		case strings.HasPrefix(r.URL.Path, "/item/"):
			idStr := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/item/"), ".json")
			id, err := strconv.Atoi(idStr)
			require.NoError(t, err)
			item, ok := f.items[id]
			if !ok {
				fmt.Fprint(w, "null")
				return
			}
			json.NewEncoder(w).Encode(item)
		default:
			http.NotFound(w, r)
		}
	}))
}

func story(id int, title, url string, score, comments int, age time.Duration) map[string]any {
	return map[string]any{
		"id": id, "type": "story", "title": title, "url": url,
		"score": score, "descendants": comments,
		"time": time.Now().Add(-age).Unix(),
	}
}

func newTestCollector(baseURL string, store port.Cache) *Collector {
	return NewCollector(config.HackerNewsConfig{BaseURL: baseURL}, store, time.Hour, zap.NewNop())
}

func TestCollectFiltersAndResolves(t *testing.T) {
	server := newFixtureServer(t, hnFixture{
		top: []int{1, 2, 3, 4},
		new: []int{4, 5},
		items: map[int]map[string]any{
			1: story(1, "Show HN: Widget", "https://github.com/acme/widget", 120, 40, 24*time.Hour),
			2: story(2, "Low scorer", "https://github.com/low/score", 3, 0, 24*time.Hour),
			3: story(3, "Ancient news", "https://github.com/old/repo", 500, 10, 90*24*time.Hour),
			4: story(4, "Not a repo link", "https://example.com/blog", 80, 5, 24*time.Hour),
			5: {"id": 5, "type": "comment", "time": time.Now().Unix()},
		},
	})
	defer server.Close()

	c := newTestCollector(server.URL, nil)
	records, err := c.Collect(context.Background(), port.DiscussionParams{
		LookbackDays:    30,
		PointsThreshold: 5,
		MaxStories:      100,
	})
	require.NoError(t, err)

	require.Len(t, records, 2)
	assert.Equal(t, "Show HN: Widget", records[0].Title)
	assert.Equal(t, "acme/widget", records[0].RepoFullName)
	assert.Equal(t, 120, records[0].Points)
	assert.Equal(t, 40, records[0].Comments)
	// A qualifying story without a GitHub link keeps an empty identifier.
	assert.Equal(t, "", records[1].RepoFullName)
}

// A Show HN launch that has already fallen off the new-stories horizon is
// still picked up through the show listing.
func TestCollectIncludesShowStories(t *testing.T) {
	server := newFixtureServer(t, hnFixture{
		top:  []int{1},
		new:  []int{1},
		show: []int{2},
		items: map[int]map[string]any{
			1: story(1, "Front page story", "https://github.com/acme/widget", 120, 40, 24*time.Hour),
			2: story(2, "Show HN: Sidecar", "https://github.com/dev/sidecar", 45, 8, 20*24*time.Hour),
		},
	})
	defer server.Close()

	c := newTestCollector(server.URL, nil)
	records, err := c.Collect(context.Background(), port.DiscussionParams{
		LookbackDays:    30,
		PointsThreshold: 5,
		MaxStories:      100,
	})
	require.NoError(t, err)

	require.Len(t, records, 2)
	assert.Equal(t, "Show HN: Sidecar", records[1].Title)
	assert.Equal(t, "dev/sidecar", records[1].RepoFullName)
}

func TestCollectCapsAtMaxStories(t *testing.T) {
	items := map[int]map[string]any{}
	var ids []int
	for i := 1; i <= 10; i++ {
		ids = append(ids, i)
		items[i] = story(i, fmt.Sprintf("Story %d", i), "", 50, 1, time.Hour)
	}
	server := newFixtureServer(t, hnFixture{top: ids, items: items})
	defer server.Close()

	c := newTestCollector(server.URL, nil)
	records, err := c.Collect(context.Background(), port.DiscussionParams{
		LookbackDays: 30, PointsThreshold: 5, MaxStories: 3,
	})
	require.NoError(t, err)
	assert.Len(t, records, 3)
}

func TestCollectListingFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusInternalServerError)
	}))
	defer server.Close()

	c := newTestCollector(server.URL, nil)
	_, err := c.Collect(context.Background(), port.DiscussionParams{
		LookbackDays: 30, PointsThreshold: 5, MaxStories: 10,
	})
	assert.Error(t, err)
}

type countingCache struct {
	store map[string][]byte
	gets  int
	hits  int
}

func newCountingCache() *countingCache { return &countingCache{store: map[string][]byte{}} }

func (c *countingCache) Get(key string) ([]byte, bool) {
	c.gets++
	v, ok := c.store[key]
	if ok {
		c.hits++
	}
	return v, ok
}
func (c *countingCache) Set(key string, value []byte, _ time.Duration) { c.store[key] = value }
func (c *countingCache) Clear() error                                  { c.store = map[string][]byte{}; return nil }

func TestCollectUsesItemCache(t *testing.T) {
	server := newFixtureServer(t, hnFixture{
		top: []int{1},
		items: map[int]map[string]any{
			1: story(1, "Cached story", "https://github.com/acme/widget", 50, 5, time.Hour),
		},
	})
	defer server.Close()

	store := newCountingCache()
	c := newTestCollector(server.URL, store)
	params := port.DiscussionParams{LookbackDays: 30, PointsThreshold: 5, MaxStories: 10}

	_, err := c.Collect(context.Background(), params)
	require.NoError(t, err)
	assert.Equal(t, 0, store.hits)

	_, err = c.Collect(context.Background(), params)
	require.NoError(t, err)
	assert.Equal(t, 1, store.hits)
}
