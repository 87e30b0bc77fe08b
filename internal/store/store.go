// internal/store/store.go
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/hhamzie/toolplug/internal/common/errors"
	"github.com/hhamzie/toolplug/internal/common/logger"
	"github.com/hhamzie/toolplug/internal/models"
)

// ErrNoPick reports that no pick exists for the requested period and
// category. Callers treat it as an empty result, not a failure.
var ErrNoPick = &errors.StandardError{
	Code:      errors.ErrCodePickMissing,
	Message:   "No pick stored for period",
	Retryable: false,
	Timestamp: time.Now().UTC(),
}

const cacheTTL = 12 * time.Hour

// Store persists generated picks in Postgres with a Redis read-through
// cache per (period, category) slot.
type Store struct {
	db     *sql.DB
	redis  *redis.Client
	logger logger.Logger
}

func New(db *sql.DB, rdb *redis.Client, log logger.Logger) *Store {
	return &Store{
		db:     db,
		redis:  rdb,
		logger: log.WithFields(map[string]interface{}{
			"component": "store",
		}),
	}
}

func cacheKey(periodKey string, category models.Category) string {
	return fmt.Sprintf("pick:%s:%s", periodKey, category)
}

// Replace swaps the pick for one (period, category) slot in a single
// transaction and refreshes the cache afterwards.
func (s *Store) Replace(ctx context.Context, periodKey string, category models.Category, pick *models.Pick) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.NewStoreError("replace", err)
	}
	defer tx.Rollback()

	if err := replaceInTx(ctx, tx, periodKey, category, pick); err != nil {
		return errors.NewStoreError("replace", err)
	}
	if err := tx.Commit(); err != nil {
		return errors.NewStoreError("replace", err)
	}

	s.refreshCache(ctx, periodKey, category, pick)
	return nil
}

// ReplaceAll swaps an entire period's picks in one transaction. If any row
// fails, the transaction rolls back and previously stored content for the
// period is untouched.
func (s *Store) ReplaceAll(ctx context.Context, periodKey string, picks map[models.Category]*models.Pick) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.NewStoreError("replace_all", err)
	}
	defer tx.Rollback()

	for _, category := range models.Categories {
		pick, ok := picks[category]
		if !ok {
			continue
		}
		if err := replaceInTx(ctx, tx, periodKey, category, pick); err != nil {
			return errors.NewStoreError("replace_all", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return errors.NewStoreError("replace_all", err)
	}

	for category, pick := range picks {
		s.refreshCache(ctx, periodKey, category, pick)
	}
	s.logger.Info("period content replaced", map[string]interface{}{
		"periodKey": periodKey,
		"picks":     len(picks),
	})
	return nil
}

func replaceInTx(ctx context.Context, tx *sql.Tx, periodKey string, category models.Category, pick *models.Pick) error {
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM picks WHERE period_key = $1 AND category = $2`,
		periodKey, string(category)); err != nil {
		return err
	}
	return tx.QueryRowContext(ctx, `
		INSERT INTO picks (period_key, category, subject, body_html, link, product_name, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`,
		periodKey, string(category), pick.Subject, pick.BodyHTML,
		pick.Link, pick.ProductName, models.PickStatusQueued,
	).Scan(&pick.ID)
}

// Read returns the pick for one slot, consulting Redis first and falling
// back to Postgres on a miss. A missing row maps to ErrNoPick.
func (s *Store) Read(ctx context.Context, periodKey string, category models.Category) (*models.Pick, error) {
	key := cacheKey(periodKey, category)
	if val, err := s.redis.Get(ctx, key).Result(); err == nil {
		var pick models.Pick
		if err := json.Unmarshal([]byte(val), &pick); err == nil {
			return &pick, nil
		}
	}

	pick, err := s.readRow(ctx, periodKey, category)
	if err != nil {
		return nil, err
	}

	s.refreshCache(ctx, periodKey, category, pick)
	return pick, nil
}

func (s *Store) readRow(ctx context.Context, periodKey string, category models.Category) (*models.Pick, error) {
	var pick models.Pick
	var cat string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, period_key, category, subject, body_html, link, product_name, status, created_at
		FROM picks
		WHERE period_key = $1 AND category = $2`,
		periodKey, string(category)).Scan(
		&pick.ID, &pick.PeriodKey, &cat, &pick.Subject, &pick.BodyHTML,
		&pick.Link, &pick.ProductName, &pick.Status, &pick.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNoPick
	}
	if err != nil {
		return nil, errors.NewStoreError("read", err)
	}
	pick.Category = models.Category(cat)
	return &pick, nil
}

// List returns all picks for a period ordered by the category enum order,
// with any uncategorized pick (daily edition) last.
func (s *Store) List(ctx context.Context, periodKey string) ([]*models.Pick, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, period_key, category, subject, body_html, link, product_name, status, created_at
		FROM picks
		WHERE period_key = $1`,
		periodKey)
	if err != nil {
		return nil, errors.NewStoreError("list", err)
	}
	defer rows.Close()

	byCategory := make(map[models.Category]*models.Pick)
	var uncategorized []*models.Pick
	for rows.Next() {
		var pick models.Pick
		var cat string
		if err := rows.Scan(
			&pick.ID, &pick.PeriodKey, &cat, &pick.Subject, &pick.BodyHTML,
			&pick.Link, &pick.ProductName, &pick.Status, &pick.CreatedAt,
		); err != nil {
			return nil, errors.NewStoreError("list", err)
		}
		pick.Category = models.Category(cat)
		if cat == "" {
			uncategorized = append(uncategorized, &pick)
			continue
		}
		byCategory[pick.Category] = &pick
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewStoreError("list", err)
	}

	out := make([]*models.Pick, 0, len(byCategory)+len(uncategorized))
	for _, category := range models.Categories {
		if pick, ok := byCategory[category]; ok {
			out = append(out, pick)
		}
	}
	out = append(out, uncategorized...)
	return out, nil
}

// MarkSent records that a pick has been dispatched at least once and
// refreshes its cache entry. A sent pick remains in List output; dispatch
// deduplicates per recipient through the send log, not through status.
func (s *Store) MarkSent(ctx context.Context, pick *models.Pick) error {
	if _, err := s.db.ExecContext(ctx,
		`UPDATE picks SET status = $1 WHERE id = $2`,
		models.PickStatusSent, pick.ID); err != nil {
		return errors.NewStoreError("mark_sent", err)
	}
	pick.Status = models.PickStatusSent
	s.refreshCache(ctx, pick.PeriodKey, pick.Category, pick)
	return nil
}

// refreshCache is best-effort; a cache write failure never fails the
// operation, the next Read just falls through to Postgres.
func (s *Store) refreshCache(ctx context.Context, periodKey string, category models.Category, pick *models.Pick) {
	data, err := json.Marshal(pick)
	if err != nil {
		return
	}
	if err := s.redis.Set(ctx, cacheKey(periodKey, category), data, cacheTTL).Err(); err != nil {
		s.logger.WithError(err).Warn("cache refresh failed", map[string]interface{}{
			"periodKey": periodKey,
		})
	}
}
