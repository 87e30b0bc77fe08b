// internal/dispatch/engine.go
package dispatch

import (
	"context"
	"database/sql"
	"encoding/base64"
	"fmt"
	"math/rand"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/hhamzie/toolplug/internal/common/config"
	"github.com/hhamzie/toolplug/internal/common/errors"
	"github.com/hhamzie/toolplug/internal/common/logger"
	"github.com/hhamzie/toolplug/internal/common/metrics"
	"github.com/hhamzie/toolplug/internal/mailer"
	"github.com/hhamzie/toolplug/internal/models"
	"github.com/hhamzie/toolplug/pkg/period"
)

// PickSource supplies a period's picks. Status is bookkeeping only: a sent
// pick stays dispatchable for the rest of its period so later weekday cohorts
// still receive it, and the send log alone prevents duplicate deliveries.
type PickSource interface {
	List(ctx context.Context, periodKey string) ([]*models.Pick, error)
	MarkSent(ctx context.Context, pick *models.Pick) error
}

// SubscriberSource supplies the confirmed recipient list.
type SubscriberSource interface {
	ListConfirmed(ctx context.Context) ([]models.Subscriber, error)
}

// Report summarizes one dispatch invocation. Per-recipient failures are
// counted, never fatal.
type Report struct {
	PeriodKey          string `json:"periodKey"`
	Total              int    `json:"totalSubscribers"`
	Sent               int    `json:"sent"`
	Failed             int    `json:"failed"`
	SkippedAlreadySent int    `json:"skippedAlreadySent"`
	SkippedNoMatch     int    `json:"skippedNoMatch"`
}

// Engine fans a period's picks out to the confirmed subscriber list with a
// bounded worker pool. The send_log uniqueness constraint on
// (email, period_key) makes delivery at-most-once per subscriber per period,
// across retried and overlapping invocations.
type Engine struct {
	db     *sql.DB
	picks  PickSource
	subs   SubscriberSource
	mailer mailer.Mailer
	cfg    *config.Config
	logger logger.Logger

	// now and intn are swapped in tests.
	now  func() time.Time
	intn func(n int) int
}

func New(db *sql.DB, picks PickSource, subs SubscriberSource, m mailer.Mailer, cfg *config.Config, log logger.Logger) *Engine {
	return &Engine{
		db:     db,
		picks:  picks,
		subs:   subs,
		mailer: m,
		cfg:    cfg,
		logger: log.WithFields(map[string]interface{}{
			"component": "dispatch",
		}),
		now:  time.Now,
		intn: rand.Intn,
	}
}

// Dispatch sends the period's picks. With respectSendDay, only subscribers
// whose chosen weekday matches the current reference-timezone weekday
// receive mail. Running it repeatedly within a period is how the weekly
// edition reaches each weekday cohort in turn; per-recipient dedupe is the
// send log, never the pick status.
func (e *Engine) Dispatch(ctx context.Context, periodKey string, respectSendDay bool) (*Report, error) {
	report := &Report{PeriodKey: periodKey}

	picks, err := e.picks.List(ctx, periodKey)
	if err != nil {
		return nil, err
	}
	if len(picks) == 0 {
		e.logger.Info("no picks, nothing to dispatch", map[string]interface{}{
			"periodKey": periodKey,
		})
		return report, nil
	}

	subscribers, err := e.subs.ListConfirmed(ctx)
	if err != nil {
		return nil, err
	}
	if respectSendDay {
		today := period.Weekday(e.now())
		filtered := subscribers[:0]
		for _, sub := range subscribers {
			if sub.SendDay == today {
				filtered = append(filtered, sub)
			}
		}
		subscribers = filtered
	}
	report.Total = len(subscribers)
	if len(subscribers) == 0 {
		return report, nil
	}

	byCategory := make(map[models.Category]*models.Pick, len(picks))
	for _, pick := range picks {
		byCategory[pick.Category] = pick
	}

	workers := e.cfg.Mail.Workers
	if workers <= 0 {
		workers = 4
	}

	var mu sync.Mutex
	var wg sync.WaitGroup
	jobs := make(chan models.Subscriber)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for sub := range jobs {
				outcome := e.dispatchOne(ctx, periodKey, sub, byCategory)
				metrics.DispatchOutcomes.WithLabelValues(string(outcome)).Inc()
				mu.Lock()
				switch outcome {
				case outcomeSent:
					report.Sent++
				case outcomeFailed:
					report.Failed++
				case outcomeSkippedAlreadySent:
					report.SkippedAlreadySent++
				case outcomeSkippedNoMatch:
					report.SkippedNoMatch++
				}
				mu.Unlock()
			}
		}()
	}

	for _, sub := range subscribers {
		jobs <- sub
	}
	close(jobs)
	wg.Wait()

	if report.Sent > 0 {
		for _, pick := range picks {
			if pick.Status != models.PickStatusQueued {
				continue
			}
			if err := e.picks.MarkSent(ctx, pick); err != nil {
				e.logger.WithError(err).Warn("failed to mark pick sent", map[string]interface{}{
					"pickId": pick.ID,
				})
			}
		}
	}

	e.logger.Info("dispatch complete", map[string]interface{}{
		"periodKey":          periodKey,
		"total":              report.Total,
		"sent":               report.Sent,
		"failed":             report.Failed,
		"skippedAlreadySent": report.SkippedAlreadySent,
		"skippedNoMatch":     report.SkippedNoMatch,
	})
	return report, nil
}

type outcome string

const (
	outcomeSent               outcome = "sent"
	outcomeFailed             outcome = "failed"
	outcomeSkippedAlreadySent outcome = "skipped_already_sent"
	outcomeSkippedNoMatch     outcome = "skipped_no_match"
)

func (e *Engine) dispatchOne(ctx context.Context, periodKey string, sub models.Subscriber, byCategory map[models.Category]*models.Pick) outcome {
	prior, err := e.alreadySent(ctx, sub.Email, periodKey)
	if err != nil {
		e.logger.WithError(err).Error("send-log lookup failed", map[string]interface{}{
			"periodKey": periodKey,
		})
		return outcomeFailed
	}
	if prior {
		return outcomeSkippedAlreadySent
	}

	pick := e.choosePick(sub, byCategory)
	if pick == nil {
		return outcomeSkippedNoMatch
	}

	html := pick.BodyHTML +
		feedbackBlock(e.cfg.App.Domain, pick.ProductName, sub.Email) +
		unsubscribeFooter(e.cfg.App.Domain, e.cfg.App.Name, sub.UnsubToken)

	msg := mailer.Message{
		Recipient:   sub.Email,
		Subject:     pick.Subject,
		HTMLContent: html,
		TextContent: mailer.HTMLToText(html),
	}

	sendCtx := ctx
	if e.cfg.Mail.Timeout > 0 {
		var cancel context.CancelFunc
		sendCtx, cancel = context.WithTimeout(ctx, time.Duration(e.cfg.Mail.Timeout)*time.Millisecond)
		defer cancel()
	}
	if err := e.mailer.Send(sendCtx, msg); err != nil {
		e.logger.WithError(errors.NewDeliveryFailedError(sub.Email, err)).Error("send failed", map[string]interface{}{
			"periodKey": periodKey,
		})
		return outcomeFailed
	}

	// Recorded only after a confirmed delivery; the unique constraint absorbs
	// races between overlapping invocations.
	if _, err := e.db.ExecContext(ctx,
		`INSERT INTO send_log (email, period_key) VALUES ($1, $2)
		 ON CONFLICT (email, period_key) DO NOTHING`,
		sub.Email, periodKey); err != nil {
		e.logger.WithError(err).Warn("send-log insert failed", map[string]interface{}{
			"periodKey": periodKey,
		})
	}
	return outcomeSent
}

func (e *Engine) alreadySent(ctx context.Context, email, periodKey string) (bool, error) {
	var one int
	err := e.db.QueryRowContext(ctx,
		`SELECT 1 FROM send_log WHERE email = $1 AND period_key = $2 LIMIT 1`,
		email, periodKey).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// choosePick matches a subscriber's category preferences against the
// period's picks. One match is deterministic; several matches pick uniformly
// at random so multi-category subscribers see variety across weeks. A pick
// with no category (daily edition) matches everyone.
func (e *Engine) choosePick(sub models.Subscriber, byCategory map[models.Category]*models.Pick) *models.Pick {
	if pick, ok := byCategory[models.Category("")]; ok {
		return pick
	}

	var matched []*models.Pick
	for _, cat := range sub.Categories {
		if pick, ok := byCategory[cat]; ok {
			matched = append(matched, pick)
		}
	}
	if len(matched) == 0 {
		return nil
	}
	if len(matched) == 1 {
		return matched[0]
	}
	return matched[e.intn(len(matched))]
}

func b64url(s string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(s))
}

func feedbackBlock(domain, productName, email string) string {
	base := fmt.Sprintf("https://%s/api/feedback?src=weekly&pid=%s",
		domain, url.QueryEscape(productName))
	suffix := ""
	if email != "" {
		suffix = "&e=" + url.QueryEscape(b64url(strings.ToLower(email)))
	}
	up := base + "&v=up" + suffix
	dn := base + "&v=down" + suffix

	return fmt.Sprintf(`<div style="margin-top:18px;padding:12px 14px;border:1px solid #eee;border-radius:12px">
<div style="font-weight:600;margin-bottom:8px">Did you enjoy this article?</div>
<div>
<a href="%s" style="display:inline-block;margin-right:10px;padding:.5rem .8rem;border-radius:10px;background:#16a34a;color:#fff;text-decoration:none">👍 Loved it</a>
<a href="%s" style="display:inline-block;padding:.5rem .8rem;border-radius:10px;background:#ef4444;color:#fff;text-decoration:none">👎 Needs work</a>
</div>
<div style="margin-top:8px;font-size:12px;color:#666">Tap to vote, then leave an optional note.</div>
</div>
`, up, dn)
}

func unsubscribeFooter(domain, appName, unsubToken string) string {
	unsubURL := fmt.Sprintf("https://%s/api/unsubscribe?token=%s",
		domain, url.QueryEscape(unsubToken))
	return fmt.Sprintf(`<hr style="margin:24px 0;border:none;border-top:1px solid #eee">`+
		`<p style="font-size:12px;color:#666">You're receiving this because you subscribed to %s.<br>`+
		`<a href="%s">Unsubscribe</a></p>`, appName, unsubURL)
}
