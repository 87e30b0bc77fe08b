// internal/feedback/service.go
package feedback

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/base64"
	"encoding/hex"
	"strings"

	"github.com/hhamzie/toolplug/internal/common/logger"
)

// Event is one feedback interaction: a vote click from an email, an
// optional followup comment, or both. Votes other than up/down are kept as
// generic clicks with a NULL vote.
type Event struct {
	Source     string
	Product    string
	Vote       string // "up" | "down" | ""
	Comment    string
	EmailB64   string // base64url of the address, as embedded in email links
	UserAgent  string
	RemoteAddr string
}

// Service records feedback events. Recording is best-effort by design: the
// reader always gets a thanks page, so Record errors are logged and dropped
// at the handler.
type Service struct {
	db     *sql.DB
	logger logger.Logger
}

func New(db *sql.DB, log logger.Logger) *Service {
	return &Service{
		db: db,
		logger: log.WithFields(map[string]interface{}{
			"component": "feedback",
		}),
	}
}

// Record stores one event. The raw address never lands in the table as-is:
// the base64url form is kept for correlation with outbound links, alongside
// a sha256 of the lowercased address.
func (s *Service) Record(ctx context.Context, ev Event) error {
	vote := strings.ToLower(ev.Vote)
	var voteVal, commentVal, emailB64Val interface{}
	if vote == "up" || vote == "down" {
		voteVal = vote
	}
	if ev.Comment != "" {
		commentVal = ev.Comment
	}

	var hashVal interface{}
	if ev.EmailB64 != "" {
		emailB64Val = ev.EmailB64
		if email := decodeEmail(ev.EmailB64); email != "" {
			sum := sha256.Sum256([]byte(email))
			hashVal = hex.EncodeToString(sum[:])
		}
	}

	src := ev.Source
	if src == "" {
		src = "unknown"
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO feedback_events (src, product, vote, comment, email_b64, email_hash, ua, ip)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		src, ev.Product, voteVal, commentVal, emailB64Val, hashVal, ev.UserAgent, ev.RemoteAddr)
	if err != nil {
		s.logger.WithError(err).Warn("feedback insert failed", map[string]interface{}{
			"src": src,
		})
		return err
	}
	return nil
}

func decodeEmail(b64 string) string {
	raw, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(b64, "="))
	if err != nil {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(string(raw)))
}
