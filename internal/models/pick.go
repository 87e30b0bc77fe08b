// internal/models/pick.go
package models

import "time"

// Pick status values. Dispatch reads picks and flips status; only the
// generation phase writes pick content.
const (
	PickStatusQueued = "queued"
	PickStatusSent   = "sent"
)

// Pick is one piece of generated editorial content tied to a period and,
// for weekly batches, a category. Daily/monthly single-pick modes leave
// Category empty. At most one active pick exists per (PeriodKey, Category).
type Pick struct {
	ID          int64     `json:"id"`
	PeriodKey   string    `json:"periodKey"`
	Category    Category  `json:"category,omitempty"`
	Subject     string    `json:"subject"`
	BodyHTML    string    `json:"bodyHtml"`
	Link        string    `json:"link"`
	ProductName string    `json:"productName"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"createdAt"`
}
