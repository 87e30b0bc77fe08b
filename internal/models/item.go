// internal/models/item.go
package models

import "time"

// CandidateItem is one externally sourced launch entry. Items are immutable
// once fetched, scoped to a single fetch call and never persisted directly.
type CandidateItem struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Tagline      string    `json:"tagline"`
	Description  string    `json:"description"`
	SiteURL      string    `json:"siteUrl"`
	CreatedAt    time.Time `json:"createdAt"`
	VoteScore    int       `json:"voteScore"` // absent upstream is treated as 0
	Topics       []string  `json:"topics"`
	ThumbnailURL string    `json:"thumbnailUrl,omitempty"`
}
