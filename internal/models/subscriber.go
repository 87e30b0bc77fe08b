// internal/models/subscriber.go
package models

import "time"

// PendingSubscriber is a signup awaiting token confirmation. It exists only
// until confirmed or abandoned.
type PendingSubscriber struct {
	ID           int64      `json:"id"`
	Email        string     `json:"email"`
	SendDay      int        `json:"sendDay"` // 0 (Sunday) .. 6 (Saturday)
	Categories   []Category `json:"categories"`
	ConfirmToken string     `json:"-"`
	CreatedAt    time.Time  `json:"createdAt"`
}

// Subscriber is a confirmed recipient eligible for dispatch. The unsubscribe
// token is durable for the subscriber's lifetime.
type Subscriber struct {
	ID         int64      `json:"id"`
	Email      string     `json:"email"`
	SendDay    int        `json:"sendDay"`
	Categories []Category `json:"categories"`
	UnsubToken string     `json:"-"`
	CreatedAt  time.Time  `json:"createdAt"`
}

// SendRecord proves a (subscriber email, period) pair has been dispatched to.
// A uniqueness constraint on (email, period_key) enforces at-most-once
// delivery across retried and overlapping invocations.
type SendRecord struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	PeriodKey string    `json:"periodKey"`
	SentAt    time.Time `json:"sentAt"`
}
