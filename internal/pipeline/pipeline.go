// internal/pipeline/pipeline.go
package pipeline

import (
	"context"
	"time"

	"github.com/hhamzie/toolplug/internal/catalog"
	"github.com/hhamzie/toolplug/internal/classify"
	"github.com/hhamzie/toolplug/internal/common/config"
	"github.com/hhamzie/toolplug/internal/common/logger"
	"github.com/hhamzie/toolplug/internal/common/metrics"
	"github.com/hhamzie/toolplug/internal/editorial"
	"github.com/hhamzie/toolplug/internal/models"
	"github.com/hhamzie/toolplug/pkg/period"
)

// windowGrace trims a rolling window so a run started right at the boundary
// does not pull in the prior period's tail.
const windowGrace = 15 * time.Minute

// Fetcher pages candidate items out of the launch catalog.
type Fetcher interface {
	FetchWindow(ctx context.Context, start, end time.Time, maxPages, pageSize int, policy catalog.RateLimitPolicy) ([]models.CandidateItem, error)
}

// Generator produces newsletter copy for one item.
type Generator interface {
	Generate(ctx context.Context, item models.CandidateItem, category models.Category, mode editorial.Mode) (*editorial.Copy, error)
}

// PickStore persists generated picks.
type PickStore interface {
	Replace(ctx context.Context, periodKey string, category models.Category, pick *models.Pick) error
	ReplaceAll(ctx context.Context, periodKey string, picks map[models.Category]*models.Pick) error
	Read(ctx context.Context, periodKey string, category models.Category) (*models.Pick, error)
	List(ctx context.Context, periodKey string) ([]*models.Pick, error)
}

// WeeklyResult reports one weekly generation run.
type WeeklyResult struct {
	PeriodKey string                     `json:"periodKey"`
	Skipped   bool                       `json:"skipped,omitempty"`
	Products  map[models.Category]string `json:"products,omitempty"`
}

// SingleResult reports one single-pick generation run (daily or monthly).
// Source is "fresh" when new content was generated, "cached" when an existing
// pick stood in for a failed or empty fetch, "empty" when there was nothing
// to send at all.
type SingleResult struct {
	PeriodKey string `json:"periodKey"`
	Source    string `json:"source"`
	Product   string `json:"product,omitempty"`
}

// Pipeline orchestrates the generation phase: window, fetch, classify,
// generate, persist. Dispatch is a separate phase.
type Pipeline struct {
	fetcher   Fetcher
	generator Generator
	store     PickStore
	cfg       *config.Config
	logger    logger.Logger

	now func() time.Time
}

func New(f Fetcher, g Generator, s PickStore, cfg *config.Config, log logger.Logger) *Pipeline {
	return &Pipeline{
		fetcher:   f,
		generator: g,
		store:     s,
		cfg:       cfg,
		logger: log.WithFields(map[string]interface{}{
			"component": "pipeline",
		}),
		now: time.Now,
	}
}

// GenerateWeekly produces the week's per-category picks. Generation is
// strict: every blurb must validate, and the batch is persisted in one
// transaction, so a failure anywhere leaves the prior week's content
// untouched. An existing batch for the week short-circuits unless force.
func (p *Pipeline) GenerateWeekly(ctx context.Context, force bool) (*WeeklyResult, error) {
	now := p.now()
	periodKey := period.WeekKey(now)
	result := &WeeklyResult{PeriodKey: periodKey}

	timer := time.Now()
	defer func() {
		metrics.GenerationDuration.WithLabelValues("weekly").Observe(time.Since(timer).Seconds())
	}()

	if !force {
		existing, err := p.store.List(ctx, periodKey)
		if err == nil && len(existing) > 0 {
			p.logger.Info("weekly picks already present, skipping", map[string]interface{}{
				"periodKey": periodKey,
			})
			result.Skipped = true
			metrics.GenerationRuns.WithLabelValues("weekly", "cached").Inc()
			return result, nil
		}
	}

	start, end := period.RollingWindow(now, 7, windowGrace)
	items, err := p.fetcher.FetchWindow(ctx, start, end,
		p.cfg.Catalog.WeeklyPages, p.cfg.Catalog.WeeklyPageSize, catalog.RateLimitRetry)
	if err != nil {
		metrics.GenerationRuns.WithLabelValues("weekly", "error").Inc()
		return nil, err
	}
	if len(items) == 0 {
		p.logger.Warn("weekly window returned no items", map[string]interface{}{
			"periodKey": periodKey,
		})
		metrics.GenerationRuns.WithLabelValues("weekly", "empty").Inc()
		return result, nil
	}

	chosen := classify.Classify(items)
	p.logger.Info("weekly candidates classified", map[string]interface{}{
		"periodKey":  periodKey,
		"items":      len(items),
		"categories": len(chosen),
	})

	// All copy is generated before anything is written; a strict-mode
	// failure mid-batch must not leave a half-replaced week.
	picks := make(map[models.Category]*models.Pick, len(chosen))
	result.Products = make(map[models.Category]string, len(chosen))
	first := true
	for _, category := range models.Categories {
		item, ok := chosen[category]
		if !ok {
			continue
		}
		if !first {
			p.pace(ctx)
		}
		first = false

		blurb, err := p.generator.Generate(ctx, item, category, editorial.Strict)
		if err != nil {
			metrics.GenerationRuns.WithLabelValues("weekly", "error").Inc()
			p.logger.WithError(err).Error("weekly generation aborted", map[string]interface{}{
				"periodKey": periodKey,
				"category":  string(category),
				"product":   item.Name,
				"done":      len(picks),
			})
			return result, err
		}
		picks[category] = &models.Pick{
			PeriodKey:   periodKey,
			Category:    category,
			Subject:     blurb.Subject,
			BodyHTML:    blurb.BodyHTML,
			Link:        blurb.Link,
			ProductName: item.Name,
		}
		result.Products[category] = item.Name
	}

	if err := p.store.ReplaceAll(ctx, periodKey, picks); err != nil {
		metrics.GenerationRuns.WithLabelValues("weekly", "error").Inc()
		return result, err
	}

	metrics.GenerationRuns.WithLabelValues("weekly", "fresh").Inc()
	return result, nil
}

// GenerateDaily produces the day's single pick. Generation is lenient: a
// failed or junk blurb falls back to fixed copy, and a failed or empty fetch
// falls back to the day's cached pick when one exists. It never propagates a
// fetch error while cached content can still be served.
func (p *Pipeline) GenerateDaily(ctx context.Context, force bool) (*SingleResult, error) {
	now := p.now()
	periodKey := period.DayKey(now)
	result := &SingleResult{PeriodKey: periodKey}

	timer := time.Now()
	defer func() {
		metrics.GenerationDuration.WithLabelValues("daily").Observe(time.Since(timer).Seconds())
	}()

	cached, _ := p.store.Read(ctx, periodKey, models.Category(""))
	if cached != nil && !force {
		result.Source = "cached"
		result.Product = cached.ProductName
		metrics.GenerationRuns.WithLabelValues("daily", "cached").Inc()
		return result, nil
	}

	start, end := period.Prev24h(now)
	items, err := p.fetcher.FetchWindow(ctx, start, end,
		p.cfg.Catalog.DailyPages, p.cfg.Catalog.DailyPageSize, catalog.RateLimitStop)
	if err != nil || len(items) == 0 {
		if err != nil {
			p.logger.WithError(err).Warn("daily fetch failed", map[string]interface{}{
				"periodKey": periodKey,
			})
		}
		if cached != nil {
			result.Source = "cached"
			result.Product = cached.ProductName
			metrics.GenerationRuns.WithLabelValues("daily", "cached").Inc()
			return result, nil
		}
		result.Source = "empty"
		metrics.GenerationRuns.WithLabelValues("daily", "empty").Inc()
		return result, nil
	}

	top := topVoted(items)

	blurb, err := p.generator.Generate(ctx, top, models.Category(""), editorial.Lenient)
	if err != nil {
		// Lenient mode only fails on hard transport errors; cached content
		// still beats nothing.
		if cached != nil {
			result.Source = "cached"
			result.Product = cached.ProductName
			metrics.GenerationRuns.WithLabelValues("daily", "cached").Inc()
			return result, nil
		}
		metrics.GenerationRuns.WithLabelValues("daily", "error").Inc()
		return nil, err
	}

	pick := &models.Pick{
		PeriodKey:   periodKey,
		Subject:     blurb.Subject,
		BodyHTML:    blurb.BodyHTML,
		Link:        blurb.Link,
		ProductName: top.Name,
	}
	if err := p.store.Replace(ctx, periodKey, models.Category(""), pick); err != nil {
		metrics.GenerationRuns.WithLabelValues("daily", "error").Inc()
		return nil, err
	}

	result.Source = "fresh"
	result.Product = top.Name
	metrics.GenerationRuns.WithLabelValues("daily", "fresh").Inc()
	return result, nil
}

// GenerateMonthly produces the month's single pick, lenient like the daily
// edition. The fetch widens until something turns up: yesterday's launches,
// then the past week, then the past 30 days.
func (p *Pipeline) GenerateMonthly(ctx context.Context, force bool) (*SingleResult, error) {
	now := p.now()
	periodKey := period.MonthKey(now)
	result := &SingleResult{PeriodKey: periodKey}

	timer := time.Now()
	defer func() {
		metrics.GenerationDuration.WithLabelValues("monthly").Observe(time.Since(timer).Seconds())
	}()

	cached, _ := p.store.Read(ctx, periodKey, models.Category(""))
	if cached != nil && !force {
		result.Source = "cached"
		result.Product = cached.ProductName
		metrics.GenerationRuns.WithLabelValues("monthly", "cached").Inc()
		return result, nil
	}

	items, err := p.fetchWidening(ctx)
	if err != nil || len(items) == 0 {
		if err != nil {
			p.logger.WithError(err).Warn("monthly fetch failed", map[string]interface{}{
				"periodKey": periodKey,
			})
		}
		if cached != nil {
			result.Source = "cached"
			result.Product = cached.ProductName
			metrics.GenerationRuns.WithLabelValues("monthly", "cached").Inc()
			return result, nil
		}
		result.Source = "empty"
		metrics.GenerationRuns.WithLabelValues("monthly", "empty").Inc()
		return result, nil
	}

	top := topVoted(items)

	blurb, err := p.generator.Generate(ctx, top, models.Category(""), editorial.Lenient)
	if err != nil {
		if cached != nil {
			result.Source = "cached"
			result.Product = cached.ProductName
			metrics.GenerationRuns.WithLabelValues("monthly", "cached").Inc()
			return result, nil
		}
		metrics.GenerationRuns.WithLabelValues("monthly", "error").Inc()
		return nil, err
	}

	pick := &models.Pick{
		PeriodKey:   periodKey,
		Subject:     blurb.Subject,
		BodyHTML:    blurb.BodyHTML,
		Link:        blurb.Link,
		ProductName: top.Name,
	}
	if err := p.store.Replace(ctx, periodKey, models.Category(""), pick); err != nil {
		metrics.GenerationRuns.WithLabelValues("monthly", "error").Inc()
		return nil, err
	}

	result.Source = "fresh"
	result.Product = top.Name
	metrics.GenerationRuns.WithLabelValues("monthly", "fresh").Inc()
	return result, nil
}

// fetchWidening tries progressively larger windows so a quiet day still
// yields a monthly pick. The 30-day pass gets twice the page budget.
func (p *Pipeline) fetchWidening(ctx context.Context) ([]models.CandidateItem, error) {
	windows := []struct {
		days     int
		maxPages int
	}{
		{1, p.cfg.Catalog.DailyPages},
		{7, p.cfg.Catalog.DailyPages},
		{30, p.cfg.Catalog.DailyPages * 2},
	}

	var lastErr error
	for _, w := range windows {
		start, end := period.RollingWindow(p.now(), w.days, windowGrace)
		items, err := p.fetcher.FetchWindow(ctx, start, end,
			w.maxPages, p.cfg.Catalog.DailyPageSize, catalog.RateLimitStop)
		if err != nil {
			lastErr = err
			continue
		}
		if len(items) > 0 {
			return items, nil
		}
	}
	return nil, lastErr
}

func topVoted(items []models.CandidateItem) models.CandidateItem {
	top := items[0]
	for _, item := range items[1:] {
		if item.VoteScore > top.VoteScore ||
			(item.VoteScore == top.VoteScore && item.CreatedAt.After(top.CreatedAt)) {
			top = item
		}
	}
	return top
}

func (p *Pipeline) pace(ctx context.Context) {
	if p.cfg.GenAI.PacingDelay <= 0 {
		return
	}
	select {
	case <-time.After(time.Duration(p.cfg.GenAI.PacingDelay) * time.Millisecond):
	case <-ctx.Done():
	}
}
