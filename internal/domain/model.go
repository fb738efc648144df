package domain

import (
	"strings"
	"time"
)

// OwnerKind distinguishes personal accounts from organizations.
type OwnerKind string

const (
	OwnerIndividual   OwnerKind = "Individual"
	OwnerOrganization OwnerKind = "Organization"
)

// RepositoryRecord is one observed repository at fetch time.
//
// FullName ("owner/name") is the stable identifier: it joins a repository
// across collector sources and across score-history snapshots. Records are
// built fresh on every collection run and never mutated in place; enrichment
// copies the basic record and fills the optional parts.
type RepositoryRecord struct {
	FullName    string    `json:"full_name"`
	Name        string    `json:"name"`
	URL         string    `json:"url"`
	Description string    `json:"description,omitempty"`
	Language    string    `json:"language,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	PushedAt    time.Time `json:"pushed_at"`
	Stars       int       `json:"stars"`
	Forks       int       `json:"forks"`
	OpenIssues  int       `json:"open_issues"`
	Topics      []string  `json:"topics,omitempty"`
	OwnerKind   OwnerKind `json:"owner_kind"`

	// Stars gained over the trailing velocity window. Collectors fill this
	// from trending data when available, otherwise estimate from age.
	StarsGained int `json:"stars_gained"`

	// Optional enrichment. Nil means the attachment was not fetched; the
	// scorer treats absence as zero-valued, never as an error.
	Organization   *OrganizationRecord    `json:"organization,omitempty"`
	Contributors   *ContributorSummary    `json:"contributors,omitempty"`
	CommitActivity *CommitActivitySummary `json:"commit_activity,omitempty"`
	Readme         *ReadmeQuality         `json:"readme,omitempty"`

	HasTests        bool   `json:"has_tests"`
	HasCI           bool   `json:"has_ci"`
	ExternalWebsite string `json:"external_website,omitempty"`
}

// AgeDays returns the repository age in whole days at the given time,
// never less than zero.
func (r *RepositoryRecord) AgeDays(now time.Time) int {
	d := int(now.Sub(r.CreatedAt).Hours() / 24)
	if d < 0 {
		return 0
	}
	return d
}

// OrganizationRecord is the owner's organization profile, attached when
// OwnerKind is Organization.
type OrganizationRecord struct {
	Login       string    `json:"login"`
	Name        string    `json:"name,omitempty"`
	Bio         string    `json:"bio,omitempty"`
	Email       string    `json:"email,omitempty"`
	Location    string    `json:"location,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	TeamSize    int       `json:"team_size"`
	PublicRepos int       `json:"public_repos"`
	HasWebsite  bool      `json:"has_website"`
	Hiring      bool      `json:"hiring"`
}

// ProfileCompleteness counts the populated optional profile fields
// (name, bio, email, location, website), 0..5.
func (o *OrganizationRecord) ProfileCompleteness() int {
	n := 0
	for _, ok := range []bool{
		o.Name != "", o.Bio != "", o.Email != "", o.Location != "", o.HasWebsite,
	} {
		if ok {
			n++
		}
	}
	return n
}

// ContributorSummary aggregates contributor counts for a repository.
type ContributorSummary struct {
	Total    int `json:"total"`
	Active   int `json:"active"`
	External int `json:"external"`
}

// CommitActivitySummary covers the trailing velocity window.
type CommitActivitySummary struct {
	Commits         int `json:"commits"`
	DistinctAuthors int `json:"distinct_authors"`
	FeatureCommits  int `json:"feature_commits"`
}

// ReadmeQuality captures a crude documentation heuristic, scored 0-5.
type ReadmeQuality struct {
	Exists    bool    `json:"exists"`
	Length    int     `json:"length"`
	HasImages bool    `json:"has_images"`
	HasCode   bool    `json:"has_code"`
	Sections  int     `json:"sections"`
	Score     float64 `json:"score"`
}

// DiscussionRecord is a forum post possibly referencing a repository.
// RepoFullName is derived by matching the post URL or title against known
// repository identifiers; empty when no repository was resolved.
type DiscussionRecord struct {
	Title        string    `json:"title"`
	URL          string    `json:"url"`
	Points       int       `json:"points"`
	Comments     int       `json:"comments"`
	CreatedAt    time.Time `json:"created_at"`
	RepoFullName string    `json:"repo_full_name,omitempty"`
}

// Matches reports whether the discussion refers to the given repository,
// by resolved identifier or by URL substring.
func (d *DiscussionRecord) Matches(repo *RepositoryRecord) bool {
	if d.RepoFullName != "" && strings.EqualFold(d.RepoFullName, repo.FullName) {
		return true
	}
	return repo.URL != "" && strings.Contains(d.URL, repo.URL)
}

// SignalScore is one named contribution to a total score.
type SignalScore struct {
	Points        float64 `json:"points"`
	Max           float64 `json:"max"`
	Justification string  `json:"justification,omitempty"`
}

// MetricsSnapshot records the numeric inputs a score was computed from,
// kept on the result for auditability.
type MetricsSnapshot struct {
	AgeDays            int `json:"age_days"`
	Stars              int `json:"stars"`
	StarsGained        int `json:"stars_gained"`
	Forks              int `json:"forks"`
	Commits            int `json:"commits"`
	FeatureCommits     int `json:"feature_commits"`
	ActiveContributors int `json:"active_contributors"`
	TotalContributors  int `json:"total_contributors"`
	DiscussionPoints   int `json:"discussion_points"`
}

// Tier buckets a total score via fixed cutoffs.
type Tier string

const (
	TierHigh   Tier = "high"
	TierMedium Tier = "medium"
	TierLow    Tier = "low"
)

// ScoreResult is the output of a scorer applied to one repository
// (plus zero or one matched discussion).
type ScoreResult struct {
	Repository *RepositoryRecord      `json:"repository"`
	Discussion *DiscussionRecord      `json:"discussion,omitempty"`
	Total      float64                `json:"total"`
	Max        float64                `json:"max"`
	Breakdown  map[string]SignalScore `json:"breakdown"`
	Tier       Tier                   `json:"tier"`
	Metrics    MetricsSnapshot        `json:"metrics"`
	ScoredAt   time.Time              `json:"scored_at"`

	// WhyMatters is the short narrative attached after scoring, either
	// heuristic or AI-generated.
	WhyMatters string `json:"why_matters,omitempty"`
}

// ScoreDistribution summarizes a batch of totals.
type ScoreDistribution struct {
	Min         float64            `json:"min"`
	Max         float64            `json:"max"`
	Mean        float64            `json:"mean"`
	Median      float64            `json:"median"`
	StdDev      float64            `json:"stddev"`
	Percentiles map[string]float64 `json:"percentiles"`
}

// StarMover is one entry of the top-movers list, ranked by star velocity.
type StarMover struct {
	FullName    string  `json:"full_name"`
	Stars       int     `json:"stars"`
	AgeDays     int     `json:"age_days"`
	StarsPerDay float64 `json:"stars_per_day"`
	Total       float64 `json:"total"`
}

// TrendSummary aggregates a batch of score results.
type TrendSummary struct {
	RepositoryCount int               `json:"repository_count"`
	Languages       map[string]int    `json:"languages"`
	Topics          map[string]int    `json:"topics"`
	Scores          ScoreDistribution `json:"scores"`
	AgeBrackets     map[string]int    `json:"age_brackets"`
	Tiers           map[Tier]int      `json:"tiers"`
	TopMovers       []StarMover       `json:"top_movers"`
	AnalyzedAt      time.Time         `json:"analyzed_at"`
}
