// Package scorer implements the canonical momentum scorer: a fixed,
// ordered table of weighted signal rules summed into a bounded total.
package scorer

import (
	"fmt"
	"strings"
	"time"

	"github-signals/internal/common"
	"github-signals/internal/config"
	"github-signals/internal/domain"
)

const (
	SignalRecency   = "recency"
	SignalCommits   = "commit_surge"
	SignalStars     = "star_velocity"
	SignalTeam      = "team_traction"
	SignalEcosystem = "ecosystem_fit"
	SignalOrg       = "org_quality"
	SignalBuzz      = "community_buzz"
)

// signalRule evaluates one signal. It returns the awarded fraction of the
// signal weight (0..1) and a justification for the breakdown.
type signalRule struct {
	name   string
	weight func(cfg config.ScoringConfig) float64
	eval   func(s *Momentum, in scoreInput) (float64, string)
}

type scoreInput struct {
	repo       *domain.RepositoryRecord
	discussion *domain.DiscussionRecord
	now        time.Time
}

// Momentum scores repositories on the configured 0-10 scale. Weights and
// thresholds are data (config.ScoringConfig), not code.
type Momentum struct {
	cfg     config.ScoringConfig
	rules   []signalRule
	nowFunc func() time.Time
}

// NewMomentum builds the scorer. The rule order fixes breakdown iteration
// for deterministic logging; the total is order-independent.
func NewMomentum(cfg config.ScoringConfig) *Momentum {
	return &Momentum{
		cfg:     cfg,
		rules:   ruleTable(),
		nowFunc: time.Now,
	}
}

// MaxScore is the declared maximum total.
func (s *Momentum) MaxScore() float64 {
	return s.cfg.MaxScore()
}

// Score applies the rule table to one repository and its optional matched
// discussion. Missing optional data contributes zero; the only error is a
// missing join key.
func (s *Momentum) Score(repo *domain.RepositoryRecord, discussion *domain.DiscussionRecord) (*domain.ScoreResult, error) {
	if repo == nil || repo.FullName == "" {
		return nil, common.NewError(common.ErrCodeInvalidInput, "repository record has no identifier")
	}

	now := s.nowFunc()
	in := scoreInput{repo: repo, discussion: discussion, now: now}

	breakdown := make(map[string]domain.SignalScore, len(s.rules))
	total := 0.0
	for _, rule := range s.rules {
		weight := rule.weight(s.cfg)
		fraction, why := rule.eval(s, in)
		if fraction < 0 {
			fraction = 0
		}
		if fraction > 1 {
			fraction = 1
		}
		points := fraction * weight
		breakdown[rule.name] = domain.SignalScore{
			Points:        points,
			Max:           weight,
			Justification: why,
		}
		total += points
	}

	max := s.MaxScore()
	if total > max {
		total = max
	}
	if total < 0 {
		total = 0
	}

	return &domain.ScoreResult{
		Repository: repo,
		Discussion: discussion,
		Total:      total,
		Max:        max,
		Breakdown:  breakdown,
		Tier:       s.tierFor(total),
		Metrics:    s.metrics(in),
		ScoredAt:   now,
	}, nil
}

// tierFor maps a total to its confidence tier. Pure function of the total.
func (s *Momentum) tierFor(total float64) domain.Tier {
	max := s.MaxScore()
	switch {
	case total >= s.cfg.HighTierFraction*max:
		return domain.TierHigh
	case total >= s.cfg.MediumTierFraction*max:
		return domain.TierMedium
	default:
		return domain.TierLow
	}
}

func (s *Momentum) metrics(in scoreInput) domain.MetricsSnapshot {
	m := domain.MetricsSnapshot{
		AgeDays:     in.repo.AgeDays(in.now),
		Stars:       in.repo.Stars,
		StarsGained: in.repo.StarsGained,
		Forks:       in.repo.Forks,
	}
	if ca := in.repo.CommitActivity; ca != nil {
		m.Commits = ca.Commits
		m.FeatureCommits = ca.FeatureCommits
	}
	if c := in.repo.Contributors; c != nil {
		m.ActiveContributors = c.Active
		m.TotalContributors = c.Total
	}
	if in.discussion != nil {
		m.DiscussionPoints = in.discussion.Points
	}
	return m
}

func ruleTable() []signalRule {
	return []signalRule{
		{
			name:   SignalRecency,
			weight: func(c config.ScoringConfig) float64 { return c.RecencyWeight },
			eval:   (*Momentum).scoreRecency,
		},
		{
			name:   SignalCommits,
			weight: func(c config.ScoringConfig) float64 { return c.CommitWeight },
			eval:   (*Momentum).scoreCommitSurge,
		},
		{
			name:   SignalStars,
			weight: func(c config.ScoringConfig) float64 { return c.StarWeight },
			eval:   (*Momentum).scoreStarVelocity,
		},
		{
			name:   SignalTeam,
			weight: func(c config.ScoringConfig) float64 { return c.TeamWeight },
			eval:   (*Momentum).scoreTeamTraction,
		},
		{
			name:   SignalEcosystem,
			weight: func(c config.ScoringConfig) float64 { return c.EcosystemWeight },
			eval:   (*Momentum).scoreEcosystemFit,
		},
		{
			name:   SignalOrg,
			weight: func(c config.ScoringConfig) float64 { return c.OrgWeight },
			eval:   (*Momentum).scoreOrgQuality,
		},
		{
			name:   SignalBuzz,
			weight: func(c config.ScoringConfig) float64 { return c.BuzzWeight },
			eval:   (*Momentum).scoreCommunityBuzz,
		},
	}
}

// scoreRecency awards by age in days from creation to evaluation time.
func (s *Momentum) scoreRecency(in scoreInput) (float64, string) {
	age := in.repo.AgeDays(in.now)
	switch {
	case age <= s.cfg.AgeFullDays:
		return 1.0, fmt.Sprintf("created %d days ago", age)
	case age <= s.cfg.AgePartialDays:
		return 0.5, fmt.Sprintf("created %d days ago", age)
	default:
		return 0, ""
	}
}

// scoreCommitSurge stacks commit-count tiers plus a feature-commit bonus.
func (s *Momentum) scoreCommitSurge(in scoreInput) (float64, string) {
	ca := in.repo.CommitActivity
	if ca == nil {
		return 0, ""
	}
	fraction := 0.0
	if ca.Commits >= s.cfg.CommitTier1 {
		fraction += 0.5
	}
	if ca.Commits >= s.cfg.CommitTier2 {
		fraction += 0.25
	}
	if ca.FeatureCommits >= s.cfg.FeatureCommitFloor {
		fraction += 0.25
	}
	if fraction == 0 {
		return 0, ""
	}
	why := fmt.Sprintf("%d commits in last %d days", ca.Commits, s.cfg.WindowDays)
	if ca.FeatureCommits > 0 {
		why += fmt.Sprintf(" (%d feature commits)", ca.FeatureCommits)
	}
	return fraction, why
}

// scoreStarVelocity stacks gained-star tiers; tiers add, they never replace.
func (s *Momentum) scoreStarVelocity(in scoreInput) (float64, string) {
	gained := in.repo.StarsGained
	fraction := 0.0
	if gained >= s.cfg.StarTier1 {
		fraction += 0.4
	}
	if gained >= s.cfg.StarTier2 {
		fraction += 0.3
	}
	if gained >= s.cfg.StarTier3 {
		fraction += 0.3
	}
	if fraction == 0 {
		return 0, ""
	}
	return fraction, fmt.Sprintf("%d stars gained in last %d days", gained, s.cfg.WindowDays)
}

// scoreTeamTraction is the one deliberately non-monotonic rule: a closed
// sweet-spot interval carries most of the weight, with a smaller cohesion
// bonus when every contributor is active.
func (s *Momentum) scoreTeamTraction(in scoreInput) (float64, string) {
	c := in.repo.Contributors
	if c == nil {
		return 0, ""
	}
	fraction := 0.0
	if c.Active >= s.cfg.TeamMin && c.Active <= s.cfg.TeamMax {
		fraction += 0.75
	}
	if c.Active >= s.cfg.TeamMin && c.Active == c.Total {
		fraction += 0.25
	}
	if fraction == 0 {
		return 0, ""
	}
	why := fmt.Sprintf("%d active contributors", c.Active)
	if c.Active != c.Total {
		why += fmt.Sprintf(" out of %d total", c.Total)
	}
	return fraction, why
}

// scoreEcosystemFit runs the configured allow-lists: language, topics, and
// startup/accelerator keywords, all case-insensitive.
func (s *Momentum) scoreEcosystemFit(in scoreInput) (float64, string) {
	fraction := 0.0
	var parts []string

	lang := strings.ToLower(in.repo.Language)
	if lang != "" && containsFold(s.cfg.Languages, lang) {
		fraction += 0.4
		parts = append(parts, lang+" language")
	}

	var matched []string
	for _, topic := range in.repo.Topics {
		if containsFold(s.cfg.Topics, topic) {
			matched = append(matched, strings.ToLower(topic))
		}
	}
	if len(matched) > 0 {
		fraction += 0.3
		parts = append(parts, strings.Join(matched, ", ")+" topics")
	}

	if s.hasStartupKeyword(in.repo) {
		fraction += 0.3
		parts = append(parts, "startup keywords")
	}

	if fraction == 0 {
		return 0, ""
	}
	return fraction, strings.Join(parts, ", ")
}

func (s *Momentum) hasStartupKeyword(repo *domain.RepositoryRecord) bool {
	desc := strings.ToLower(repo.Description)
	for _, kw := range s.cfg.StartupKeywords {
		kw = strings.ToLower(kw)
		if kw == "" {
			continue
		}
		if strings.Contains(desc, kw) {
			return true
		}
		for _, topic := range repo.Topics {
			if strings.Contains(strings.ToLower(topic), kw) {
				return true
			}
		}
	}
	return false
}

// scoreOrgQuality buckets organization profile completeness.
func (s *Momentum) scoreOrgQuality(in scoreInput) (float64, string) {
	if in.repo.OwnerKind != domain.OwnerOrganization || in.repo.Organization == nil {
		return 0, ""
	}
	complete := in.repo.Organization.ProfileCompleteness()
	switch {
	case complete >= s.cfg.OrgFullProfile:
		return 1.0, fmt.Sprintf("org profile %d/5 complete", complete)
	case complete >= s.cfg.OrgPartialProfile:
		return 0.5, fmt.Sprintf("org profile %d/5 complete", complete)
	default:
		return 0, ""
	}
}

// scoreCommunityBuzz scales with discussion points. No matched discussion
// contributes zero, never an error.
func (s *Momentum) scoreCommunityBuzz(in scoreInput) (float64, string) {
	if in.discussion == nil || in.discussion.Points <= 0 {
		return 0, ""
	}
	scale := s.cfg.BuzzPointsScale
	if scale < 1 {
		scale = 1
	}
	fraction := float64(in.discussion.Points) / float64(scale)
	if fraction > 1 {
		fraction = 1
	}
	return fraction, fmt.Sprintf("%d points, %d comments on Hacker News", in.discussion.Points, in.discussion.Comments)
}

func containsFold(list []string, s string) bool {
	for _, item := range list {
		if strings.EqualFold(item, s) {
			return true
		}
	}
	return false
}
