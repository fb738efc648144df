// Package github implements the code-host collector on the GitHub search
// API, with best-effort per-record enrichment.
package github

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github-signals/internal/cache"
	"github-signals/internal/common"
	"github-signals/internal/config"
	"github-signals/internal/domain"
	"github-signals/internal/port"

	gh "github.com/google/go-github/v53/github"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

const collectorName = "github"

var urlPattern = regexp.MustCompile(`https?://[-\w.]+(?:/[-\w./?%&=]*)?`)

var ciPaths = []string{
	".github/workflows",
	".travis.yml",
	".circleci/config.yml",
	"Jenkinsfile",
	".gitlab-ci.yml",
	"azure-pipelines.yml",
}

var testDirNames = map[string]bool{
	"test": true, "tests": true, "spec": true, "specs": true, "__tests__": true,
}

// activeContributorFloor: contributors with at least this many commits
// count as active.
const activeContributorFloor = 5

// Collector fetches and enriches repository records. Enrichment is
// sequential and throttled; every attachment is independently best-effort.
type Collector struct {
	client     *gh.Client
	cache      port.Cache
	cfg        config.GitHubConfig
	windowDays int
	cacheTTL   time.Duration
	log        *zap.Logger
	nowFunc    func() time.Time
}

// NewCollector builds the collector. An empty token means anonymous access
// with its much lower rate limit.
func NewCollector(cfg config.GitHubConfig, windowDays int, store port.Cache, cacheTTL time.Duration, log *zap.Logger) *Collector {
	var client *gh.Client
	if cfg.Token == "" {
		client = gh.NewClient(nil)
	} else {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token})
		client = gh.NewClient(oauth2.NewClient(context.Background(), ts))
	}
	return &Collector{
		client:     client,
		cache:      store,
		cfg:        cfg,
		windowDays: windowDays,
		cacheTTL:   cacheTTL,
		log:        log,
		nowFunc:    time.Now,
	}
}

func (c *Collector) Name() string { return collectorName }

// Collect searches for recently created repositories per language, then
// enriches each sequentially. A cancelled context aborts remaining fetches
// and returns the partial batch; a single record's failure degrades that
// record and the batch continues.
func (c *Collector) Collect(ctx context.Context, params port.CollectParams) ([]*domain.RepositoryRecord, error) {
	languages := params.Languages
	if len(languages) == 0 {
		languages = []string{""}
	}

	var basics []*domain.RepositoryRecord
	for _, lang := range languages {
		if len(basics) >= params.MaxRepos {
			break
		}
		records, err := c.search(ctx, lang, params)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				c.log.Warn("search aborted by run budget, keeping partial batch",
					zap.Int("collected", len(basics)))
				break
			}
			c.log.Warn("search failed for language, continuing",
				zap.String("language", lang), zap.Error(err))
			continue
		}
		basics = append(basics, records...)
	}
	if len(basics) > params.MaxRepos {
		basics = basics[:params.MaxRepos]
	}

	enriched := make([]*domain.RepositoryRecord, 0, len(basics))
	for i, record := range basics {
		select {
		case <-ctx.Done():
			// Budget exhausted: carry the rest un-enriched rather than drop.
			c.log.Warn("enrichment aborted by run budget, returning partial batch",
				zap.Int("enriched", len(enriched)), zap.Int("total", len(basics)))
			enriched = append(enriched, basics[i:]...)
			return enriched, nil
		default:
		}

		enriched = append(enriched, c.enrich(ctx, record))
		time.Sleep(c.cfg.EnrichDelay)
	}

	c.log.Info("collected repositories",
		zap.String("collector", collectorName), zap.Int("count", len(enriched)))
	return enriched, nil
}

func (c *Collector) search(ctx context.Context, language string, params port.CollectParams) ([]*domain.RepositoryRecord, error) {
	since := c.nowFunc().AddDate(0, 0, -params.LookbackDays).Format("2006-01-02")
	query := fmt.Sprintf("created:>=%s stars:>=%d", since, params.MinStars)
	if language != "" {
		query += " language:" + language
	}

	opts := &gh.SearchOptions{
		Sort:        "stars",
		Order:       "desc",
		ListOptions: gh.ListOptions{PerPage: 100},
	}

	var result *gh.RepositoriesSearchResult
	err := common.Do(ctx, func() error {
		var apiErr error
		result, _, apiErr = c.client.Search.Repositories(ctx, query, opts)
		return apiErr
	},
		common.WithMaxRetries(3),
		common.WithInitialDelay(time.Second),
		common.WithRetryIf(isTransient),
	)
	if err != nil {
		return nil, common.WrapError(common.ErrCodeGitHubAPI, "repository search failed", err)
	}

	records := make([]*domain.RepositoryRecord, 0, len(result.Repositories))
	for _, item := range result.Repositories {
		record := c.mapRepository(item)
		if record.FullName == "" {
			c.log.Warn("dropping search result without identifier")
			continue
		}
		records = append(records, record)
	}
	return records, nil
}

// mapRepository converts the API DTO into a domain record at the boundary.
func (c *Collector) mapRepository(item *gh.Repository) *domain.RepositoryRecord {
	kind := domain.OwnerIndividual
	if item.GetOwner().GetType() == "Organization" {
		kind = domain.OwnerOrganization
	}

	record := &domain.RepositoryRecord{
		FullName:    item.GetFullName(),
		Name:        item.GetName(),
		URL:         item.GetHTMLURL(),
		Description: item.GetDescription(),
		Language:    item.GetLanguage(),
		CreatedAt:   item.GetCreatedAt().Time,
		PushedAt:    item.GetPushedAt().Time,
		Stars:       item.GetStargazersCount(),
		Forks:       item.GetForksCount(),
		OpenIssues:  item.GetOpenIssuesCount(),
		Topics:      item.Topics,
		OwnerKind:   kind,
	}
	record.StarsGained = c.estimateStarsGained(record)
	return record
}

// estimateStarsGained approximates the trailing-window star gain from the
// lifetime average. Search has no per-window counter; for repositories
// younger than the window it is exact.
func (c *Collector) estimateStarsGained(record *domain.RepositoryRecord) int {
	age := record.AgeDays(c.nowFunc())
	if age < 1 {
		age = 1
	}
	if age <= c.windowDays {
		return record.Stars
	}
	return record.Stars * c.windowDays / age
}

// enrich attaches organization data, contributors, commit activity, README
// quality, and CI/tests presence. Each attachment fails independently; the
// record degrades to its pre-enrichment state for that field only. A cache
// hit skips the round-trips entirely.
func (c *Collector) enrich(ctx context.Context, record *domain.RepositoryRecord) *domain.RepositoryRecord {
	key := cache.Key(collectorName, map[string]string{"repo": record.FullName})
	if c.cache != nil {
		if raw, ok := c.cache.Get(key); ok {
			var cached domain.RepositoryRecord
			if err := json.Unmarshal(raw, &cached); err == nil {
				c.log.Debug("enrichment cache hit", zap.String("repo", record.FullName))
				return &cached
			}
		}
	}

	owner, name, ok := splitFullName(record.FullName)
	if !ok {
		return record
	}

	out := *record

	if out.OwnerKind == domain.OwnerOrganization {
		if org, err := c.fetchOrganization(ctx, owner); err != nil {
			c.log.Debug("organization enrichment failed", zap.String("repo", record.FullName), zap.Error(err))
		} else {
			out.Organization = org
		}
	}

	if contrib, err := c.fetchContributors(ctx, owner, name); err != nil {
		c.log.Debug("contributor enrichment failed", zap.String("repo", record.FullName), zap.Error(err))
	} else {
		out.Contributors = contrib
	}

	if activity, err := c.fetchCommitActivity(ctx, owner, name); err != nil {
		c.log.Debug("commit enrichment failed", zap.String("repo", record.FullName), zap.Error(err))
	} else {
		out.CommitActivity = activity
	}

	if readme, err := c.fetchReadmeQuality(ctx, owner, name); err != nil {
		c.log.Debug("readme enrichment failed", zap.String("repo", record.FullName), zap.Error(err))
	} else {
		out.Readme = readme
	}

	out.HasCI = c.hasCISetup(ctx, owner, name)
	out.HasTests = c.hasTests(ctx, owner, name)
	out.ExternalWebsite = externalWebsite(record.Description, record.URL)

	if c.cache != nil {
		if raw, err := json.Marshal(&out); err == nil {
			c.cache.Set(key, raw, c.cacheTTL)
		}
	}
	return &out
}

func (c *Collector) fetchOrganization(ctx context.Context, login string) (*domain.OrganizationRecord, error) {
	var org *gh.Organization
	err := common.Do(ctx, func() error {
		var apiErr error
		org, _, apiErr = c.client.Organizations.Get(ctx, login)
		return apiErr
	}, common.WithMaxRetries(2), common.WithInitialDelay(500*time.Millisecond), common.WithRetryIf(isTransient))
	if err != nil {
		return nil, err
	}

	record := &domain.OrganizationRecord{
		Login:       org.GetLogin(),
		Name:        org.GetName(),
		Bio:         org.GetDescription(),
		Email:       org.GetEmail(),
		Location:    org.GetLocation(),
		CreatedAt:   org.GetCreatedAt().Time,
		PublicRepos: org.GetPublicRepos(),
		HasWebsite:  org.GetBlog() != "",
		Hiring:      hasHiringIndicator(org.GetDescription()),
	}

	members, _, err := c.client.Organizations.ListMembers(ctx, login, &gh.ListMembersOptions{
		ListOptions: gh.ListOptions{PerPage: 100},
	})
	if err == nil {
		record.TeamSize = len(members)
	}
	return record, nil
}

func (c *Collector) fetchContributors(ctx context.Context, owner, name string) (*domain.ContributorSummary, error) {
	var contributors []*gh.Contributor
	err := common.Do(ctx, func() error {
		var apiErr error
		contributors, _, apiErr = c.client.Repositories.ListContributors(ctx, owner, name, &gh.ListContributorsOptions{
			ListOptions: gh.ListOptions{PerPage: 100},
		})
		return apiErr
	}, common.WithMaxRetries(2), common.WithInitialDelay(500*time.Millisecond), common.WithRetryIf(isTransient))
	if err != nil {
		return nil, err
	}

	summary := &domain.ContributorSummary{Total: len(contributors)}
	for _, contrib := range contributors {
		if contrib.GetContributions() >= activeContributorFloor {
			summary.Active++
		}
		if !strings.EqualFold(contrib.GetLogin(), owner) {
			summary.External++
		}
	}
	return summary, nil
}

func (c *Collector) fetchCommitActivity(ctx context.Context, owner, name string) (*domain.CommitActivitySummary, error) {
	since := c.nowFunc().AddDate(0, 0, -c.windowDays)

	var commits []*gh.RepositoryCommit
	err := common.Do(ctx, func() error {
		var apiErr error
		commits, _, apiErr = c.client.Repositories.ListCommits(ctx, owner, name, &gh.CommitsListOptions{
			Since:       since,
			ListOptions: gh.ListOptions{PerPage: 100},
		})
		return apiErr
	}, common.WithMaxRetries(2), common.WithInitialDelay(500*time.Millisecond), common.WithRetryIf(isTransient))
	if err != nil {
		return nil, err
	}

	summary := &domain.CommitActivitySummary{Commits: len(commits)}
	authors := map[string]bool{}
	for _, commit := range commits {
		if login := commit.GetAuthor().GetLogin(); login != "" {
			authors[login] = true
		}
		msg := strings.ToLower(commit.GetCommit().GetMessage())
		if strings.Contains(msg, "feat:") || strings.Contains(msg, "add ") {
			summary.FeatureCommits++
		}
	}
	summary.DistinctAuthors = len(authors)
	return summary, nil
}

func (c *Collector) fetchReadmeQuality(ctx context.Context, owner, name string) (*domain.ReadmeQuality, error) {
	readme, _, err := c.client.Repositories.GetReadme(ctx, owner, name, nil)
	if err != nil {
		if isNotFound(err) {
			return &domain.ReadmeQuality{}, nil
		}
		return nil, err
	}
	content, err := readme.GetContent()
	if err != nil {
		return nil, err
	}

	quality := &domain.ReadmeQuality{
		Exists:    true,
		Length:    len(content),
		HasImages: strings.Contains(content, "![") || strings.Contains(content, "<img"),
		HasCode:   strings.Contains(content, "```"),
		Sections:  strings.Count(content, "#"),
	}

	score := 0.0
	if quality.Length > 500 {
		score += 1
	}
	if quality.Length > 2000 {
		score += 1
	}
	if quality.HasImages {
		score += 1
	}
	if quality.HasCode {
		score += 1
	}
	if quality.Sections > 3 {
		score += 1
	}
	quality.Score = score
	return quality, nil
}

func (c *Collector) hasCISetup(ctx context.Context, owner, name string) bool {
	for _, path := range ciPaths {
		file, dir, _, err := c.client.Repositories.GetContents(ctx, owner, name, path, nil)
		if err == nil && (file != nil || len(dir) > 0) {
			return true
		}
	}
	return false
}

func (c *Collector) hasTests(ctx context.Context, owner, name string) bool {
	_, entries, _, err := c.client.Repositories.GetContents(ctx, owner, name, "", nil)
	if err != nil {
		return false
	}
	for _, entry := range entries {
		if entry.GetType() == "dir" && testDirNames[strings.ToLower(entry.GetName())] {
			return true
		}
	}
	return false
}

func externalWebsite(description, repoURL string) string {
	for _, match := range urlPattern.FindAllString(description, -1) {
		if match != repoURL && !strings.Contains(match, "github.com") {
			return match
		}
	}
	return ""
}

func hasHiringIndicator(bio string) bool {
	lower := strings.ToLower(bio)
	for _, kw := range []string{"hiring", "careers", "jobs", "join us", "join our team", "open positions"} {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

func splitFullName(fullName string) (owner, name string, ok bool) {
	parts := strings.SplitN(fullName, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	return parts[0], parts[1], true
}

// isTransient keeps retries to rate limits, abuse throttles, timeouts and
// server errors; everything else fails fast.
func isTransient(err error) bool {
	var rateErr *gh.RateLimitError
	if errors.As(err, &rateErr) {
		return true
	}
	var abuseErr *gh.AbuseRateLimitError
	if errors.As(err, &abuseErr) {
		return true
	}
	var respErr *gh.ErrorResponse
	if errors.As(err, &respErr) && respErr.Response != nil {
		return respErr.Response.StatusCode >= http.StatusInternalServerError ||
			respErr.Response.StatusCode == http.StatusTooManyRequests
	}
	return errors.Is(err, context.DeadlineExceeded)
}

func isNotFound(err error) bool {
	var respErr *gh.ErrorResponse
	return errors.As(err, &respErr) && respErr.Response != nil &&
		respErr.Response.StatusCode == http.StatusNotFound
}
