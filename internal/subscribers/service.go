// internal/subscribers/service.go
package subscribers

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/hhamzie/toolplug/internal/common/config"
	"github.com/hhamzie/toolplug/internal/common/errors"
	"github.com/hhamzie/toolplug/internal/common/logger"
	"github.com/hhamzie/toolplug/internal/mailer"
	"github.com/hhamzie/toolplug/internal/models"
)

var emailPattern = regexp.MustCompile(`^\S+@\S+\.\S+$`)

// ConfirmOutcome distinguishes a first confirmation from a repeat click.
type ConfirmOutcome int

const (
	OutcomeConfirmed ConfirmOutcome = iota
	OutcomeAlreadyConfirmed
)

type ConfirmResult struct {
	Outcome ConfirmOutcome
	Email   string
}

// Service implements the double-opt-in subscription lifecycle: signup
// creates a pending row and mails a confirmation link, confirm promotes it
// to the subscribers table, unsubscribe removes it by durable token.
type Service struct {
	db     *sql.DB
	mailer mailer.Mailer
	cfg    *config.Config
	logger logger.Logger
}

func New(db *sql.DB, m mailer.Mailer, cfg *config.Config, log logger.Logger) *Service {
	return &Service{
		db:     db,
		mailer: m,
		cfg:    cfg,
		logger: log.WithFields(map[string]interface{}{
			"component": "subscribers",
		}),
	}
}

// normEmail is applied at every write and every lookup so that casing and
// stray whitespace can never split one address into two identities.
func normEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Signup validates the request, stores a pending subscription and sends the
// confirmation email. Returns the confirm token.
func (s *Service) Signup(ctx context.Context, email string, sendDay int, categories []models.Category) (string, error) {
	email = normEmail(email)
	if !emailPattern.MatchString(email) {
		return "", errors.NewSignupInvalidError("invalid email")
	}
	if sendDay < 0 || sendDay > 6 {
		return "", errors.NewSignupInvalidError("send_day must be 0-6")
	}
	if len(categories) == 0 {
		return "", errors.NewSignupInvalidError("pick at least one category")
	}
	for _, c := range categories {
		if !c.Valid() {
			return "", errors.NewSignupInvalidError(fmt.Sprintf("unknown category %q", c))
		}
	}

	token := uuid.NewString()
	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO subscribers_pending (email, send_day, categories, token)
		VALUES ($1, $2, $3, $4)`,
		email, sendDay, models.JoinCategories(categories), token); err != nil {
		return "", errors.NewStoreError("signup", err)
	}

	if err := s.sendConfirmation(ctx, email, token); err != nil {
		return "", err
	}

	s.logger.Info("signup pending", map[string]interface{}{
		"sendDay":    sendDay,
		"categories": models.JoinCategories(categories),
	})
	return token, nil
}

func (s *Service) sendConfirmation(ctx context.Context, email, token string) error {
	confirmURL := fmt.Sprintf("https://%s/api/confirm?token=%s",
		s.cfg.App.Domain, url.QueryEscape(token))

	text := fmt.Sprintf(`Hey Friend!

You asked to receive a weekly tool pick from %s!

Confirm here: %s

If you didn't request this, you can ignore this email, and you'll never hear from us again.`,
		s.cfg.App.Name, confirmURL)

	html := fmt.Sprintf(`<div style="font-family:system-ui,-apple-system,Segoe UI,Roboto,Arial,sans-serif;line-height:1.6;padding:24px;text-align:center;">
  <div style="max-width:400px;margin:auto;background:#fff;padding:24px;border-radius:16px;border:1px solid rgba(155,107,158,0.25);">
    <h2>Welcome to <span style="color:#9B6B9E;">%s</span>!</h2>
    <p>Hi <b>tool lover</b>!<br>You're one click away from <b>weekly drops</b>.</p>
    <p style="margin:30px 0;">
      <a href="%s" style="display:inline-block;padding:12px 26px;background:#9B6B9E;color:#fff;font-size:18px;border-radius:8px;font-weight:bold;text-decoration:none;">Confirm &amp; Get Started ✅</a>
    </p>
    <p style="font-size:12px;color:#6B7280;">Didn't request this? Just ignore!</p>
  </div>
</div>`, s.cfg.App.Name, confirmURL)

	msg := mailer.Message{
		Recipient:   email,
		Subject:     fmt.Sprintf("Confirm your %s subscription", s.cfg.App.Name),
		HTMLContent: html,
		TextContent: text,
	}
	if err := s.mailer.Send(ctx, msg); err != nil {
		return errors.NewDeliveryFailedError(email, err)
	}
	return nil
}

// Confirm promotes a pending signup. Repeat clicks on the same link and
// clicks on a stale link for an already-confirmed address both resolve to
// OutcomeAlreadyConfirmed; the pending row is consumed either way.
func (s *Service) Confirm(ctx context.Context, token string) (*ConfirmResult, error) {
	var pending models.PendingSubscriber
	var categories string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, email, send_day, categories FROM subscribers_pending WHERE token = $1`,
		token).Scan(&pending.ID, &pending.Email, &pending.SendDay, &categories)
	if err == sql.ErrNoRows {
		return nil, errors.NewTokenNotFoundError()
	}
	if err != nil {
		return nil, errors.NewStoreError("confirm", err)
	}

	email := normEmail(pending.Email)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.NewStoreError("confirm", err)
	}
	defer tx.Rollback()

	// The unique constraint on email is the arbiter: concurrent confirmations
	// for the same address race to the insert, and the loser sees zero rows
	// instead of a constraint violation.
	unsubToken := uuid.NewString()
	res, err := tx.ExecContext(ctx, `
		INSERT INTO subscribers (email, send_day, categories, unsub_token)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (email) DO NOTHING`,
		email, pending.SendDay, categories, unsubToken)
	if err != nil {
		return nil, errors.NewStoreError("confirm", err)
	}
	inserted, err := res.RowsAffected()
	if err != nil {
		return nil, errors.NewStoreError("confirm", err)
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM subscribers_pending WHERE id = $1`, pending.ID); err != nil {
		return nil, errors.NewStoreError("confirm", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, errors.NewStoreError("confirm", err)
	}

	if inserted == 0 {
		return &ConfirmResult{Outcome: OutcomeAlreadyConfirmed, Email: email}, nil
	}

	s.logger.Info("subscriber confirmed", map[string]interface{}{
		"sendDay": pending.SendDay,
	})
	return &ConfirmResult{Outcome: OutcomeConfirmed, Email: email}, nil
}

// Unsubscribe removes a subscriber by unsubscribe token. Returns false when
// the token matches nothing, which covers both bad tokens and repeat clicks.
func (s *Service) Unsubscribe(ctx context.Context, token string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM subscribers WHERE unsub_token = $1`, token)
	if err != nil {
		return false, errors.NewStoreError("unsubscribe", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, errors.NewStoreError("unsubscribe", err)
	}
	if n == 0 {
		return false, nil
	}
	s.logger.Info("subscriber removed", nil)
	return true, nil
}

// Status reports whether an address is a confirmed subscriber. It backs the
// polling endpoint the signup page uses, so confirmation done in another tab
// or on another device is still observed.
func (s *Service) Status(ctx context.Context, email string) (bool, error) {
	var exists int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM subscribers WHERE email = $1 LIMIT 1`,
		normEmail(email)).Scan(&exists)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, errors.NewStoreError("status", err)
	}
	return true, nil
}

// ListConfirmed returns every confirmed subscriber; dispatch filters by
// weekday and category preferences on top of this.
func (s *Service) ListConfirmed(ctx context.Context) ([]models.Subscriber, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, email, send_day, categories, unsub_token, created_at FROM subscribers`)
	if err != nil {
		return nil, errors.NewStoreError("list_confirmed", err)
	}
	defer rows.Close()

	var out []models.Subscriber
	for rows.Next() {
		var sub models.Subscriber
		var categories string
		if err := rows.Scan(&sub.ID, &sub.Email, &sub.SendDay, &categories,
			&sub.UnsubToken, &sub.CreatedAt); err != nil {
			return nil, errors.NewStoreError("list_confirmed", err)
		}
		cats, err := models.ParseCategoryList(categories)
		if err != nil {
			// Rows written before a category rename keep their raw value;
			// skip unknown entries rather than dropping the subscriber.
			cats = nil
			for _, part := range strings.Split(categories, ",") {
				if c := models.Category(strings.TrimSpace(part)); c.Valid() {
					cats = append(cats, c)
				}
			}
		}
		sub.Categories = cats
		sub.Email = normEmail(sub.Email)
		out = append(out, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewStoreError("list_confirmed", err)
	}
	return out, nil
}
