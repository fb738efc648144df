// Package hackernews implements the discussion collector on the official
// Firebase API.
package hackernews

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github-signals/internal/cache"
	"github-signals/internal/common"
	"github-signals/internal/config"
	"github-signals/internal/domain"
	"github-signals/internal/port"

	"go.uber.org/zap"
)

const collectorName = "hackernews"

// githubRepoPattern extracts "owner/name" from a github.com URL, dropping
// any trailing path segments.
var githubRepoPattern = regexp.MustCompile(`github\.com/([\w.-]+)/([\w.-]+)`)

// item is the Firebase story DTO. Only story fields we read are declared.
type item struct {
	ID          int    `json:"id"`
	Type        string `json:"type"`
	Title       string `json:"title"`
	URL         string `json:"url"`
	Score       int    `json:"score"`
	Descendants int    `json:"descendants"`
	Time        int64  `json:"time"`
	Dead        bool   `json:"dead"`
	Deleted     bool   `json:"deleted"`
}

// Collector fetches top and new story listings and keeps the stories that
// clear the points threshold inside the lookback window.
type Collector struct {
	baseURL string
	client  *http.Client
	cache   port.Cache
	ttl     time.Duration
	log     *zap.Logger
	nowFunc func() time.Time
}

func NewCollector(cfg config.HackerNewsConfig, store port.Cache, ttl time.Duration, log *zap.Logger) *Collector {
	return &Collector{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		client:  &http.Client{Timeout: 15 * time.Second},
		cache:   store,
		ttl:     ttl,
		log:     log,
		nowFunc: time.Now,
	}
}

func (c *Collector) Name() string { return collectorName }

// Collect walks the top and new story listings, fetching each item once.
// Individual item failures are skipped; a cancelled context returns the
// partial batch collected so far.
func (c *Collector) Collect(ctx context.Context, params port.DiscussionParams) ([]*domain.DiscussionRecord, error) {
	ids, err := c.storyIDs(ctx, params.MaxStories)
	if err != nil {
		return nil, err
	}

	cutoff := c.nowFunc().AddDate(0, 0, -params.LookbackDays).Unix()

	var records []*domain.DiscussionRecord
	for _, id := range ids {
		select {
		case <-ctx.Done():
			c.log.Warn("discussion collection aborted by run budget, keeping partial batch",
				zap.Int("collected", len(records)))
			return records, nil
		default:
		}

		story, err := c.fetchItem(ctx, id)
		if err != nil {
			c.log.Debug("skipping story", zap.Int("id", id), zap.Error(err))
			continue
		}
		if story == nil || story.Type != "story" || story.Dead || story.Deleted {
			continue
		}
		if story.Time < cutoff || story.Score < params.PointsThreshold {
			continue
		}

		records = append(records, &domain.DiscussionRecord{
			Title:        story.Title,
			URL:          story.URL,
			Points:       story.Score,
			Comments:     story.Descendants,
			CreatedAt:    time.Unix(story.Time, 0).UTC(),
			RepoFullName: ResolveRepo(story.URL),
		})
	}

	c.log.Info("collected discussions",
		zap.String("collector", collectorName), zap.Int("count", len(records)))
	return records, nil
}

// storyIDs merges the top, new, and Show HN listings, deduplicated, capped
// at limit. Show HN is its own listing because launches fall off the new
// horizon long before they stop mattering.
func (c *Collector) storyIDs(ctx context.Context, limit int) ([]int, error) {
	seen := map[int]bool{}
	var ids []int
	for _, listing := range []string{"topstories", "newstories", "showstories"} {
		var batch []int
		if err := c.getJSON(ctx, c.baseURL+"/"+listing+".json", &batch); err != nil {
			if len(ids) > 0 {
				c.log.Warn("listing fetch failed, continuing with partial id set",
					zap.String("listing", listing), zap.Error(err))
				continue
			}
			return nil, common.WrapError(common.ErrCodeHackerNews, "story listing fetch failed", err)
		}
		for _, id := range batch {
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}
	if len(ids) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}

func (c *Collector) fetchItem(ctx context.Context, id int) (*item, error) {
	key := cache.Key(collectorName, map[string]string{"item": strconv.Itoa(id)})
	if c.cache != nil {
		if raw, ok := c.cache.Get(key); ok {
			var cached item
			if err := json.Unmarshal(raw, &cached); err == nil {
				return &cached, nil
			}
		}
	}

	var story item
	url := fmt.Sprintf("%s/item/%d.json", c.baseURL, id)
	if err := c.getJSON(ctx, url, &story); err != nil {
		return nil, err
	}
	if story.ID == 0 {
		// The API returns literal null for pruned items.
		return nil, nil
	}

	if c.cache != nil {
		if raw, err := json.Marshal(&story); err == nil {
			c.cache.Set(key, raw, c.ttl)
		}
	}
	return &story, nil
}

func (c *Collector) getJSON(ctx context.Context, url string, out any) error {
	return common.Do(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		resp, err := c.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("unexpected status %d from %s", resp.StatusCode, url)
		}
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}
		return json.Unmarshal(body, out)
	},
		common.WithMaxRetries(2),
		common.WithInitialDelay(500*time.Millisecond),
		common.WithRetryIf(func(err error) bool {
			return !errors.Is(err, context.Canceled)
		}),
	)
}

// ResolveRepo extracts the "owner/name" identifier from a GitHub URL.
// Returns "" for non-GitHub URLs and for non-repository GitHub paths.
func ResolveRepo(url string) string {
	m := githubRepoPattern.FindStringSubmatch(url)
	if m == nil {
		return ""
	}
	owner, name := m[1], m[2]
	switch strings.ToLower(owner) {
	case "orgs", "topics", "collections", "features", "marketplace", "sponsors", "settings", "about", "blog":
		return ""
	}
	name = strings.TrimSuffix(name, ".git")
	return owner + "/" + name
}
