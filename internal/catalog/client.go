// internal/catalog/client.go
package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	stderrors "github.com/hhamzie/toolplug/internal/common/errors"
	"github.com/hhamzie/toolplug/internal/common/logger"
	"github.com/hhamzie/toolplug/internal/common/metrics"
	"github.com/hhamzie/toolplug/internal/models"
)

// RateLimitPolicy selects how FetchWindow reacts to an upstream rate-limit
// signal. Both policies return whatever was already collected; they differ in
// whether the offending page is retried once first.
type RateLimitPolicy int

const (
	// RateLimitStop waits the advised reset (capped) and stops paging.
	RateLimitStop RateLimitPolicy = iota
	// RateLimitRetry retries the rate-limited page once before stopping.
	RateLimitRetry
)

type Config struct {
	URL              string
	Token            string
	PageDelay        time.Duration
	MaxRateLimitWait time.Duration
	Timeout          time.Duration
}

// Client pages through the external launch catalog. Page requests are
// strictly sequential: each page depends on the prior page's cursor.
type Client struct {
	cfg    *Config
	client *http.Client
	logger logger.Logger
}

func NewClient(cfg *Config, log logger.Logger) *Client {
	return &Client{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: log.WithFields(map[string]interface{}{"component": "catalog"}),
	}
}

const postsQuery = `
  query Window($first: Int!, $after: String, $topicsFirst: Int!) {
    posts(first: $first, order: NEWEST, after: $after) {
      pageInfo { endCursor hasNextPage }
      edges {
        node {
          id
          name
          tagline
          description
          url
          website
          createdAt
          votesCount
          thumbnail { url }
          topics(first: $topicsFirst) { edges { node { slug name } } }
        }
      }
    }
  }
`

type gqlResponse struct {
	Data struct {
		Posts struct {
			PageInfo struct {
				EndCursor   string `json:"endCursor"`
				HasNextPage bool   `json:"hasNextPage"`
			} `json:"pageInfo"`
			Edges []struct {
				Node postNode `json:"node"`
			} `json:"edges"`
		} `json:"posts"`
	} `json:"data"`
	Errors []gqlError `json:"errors"`
}

type gqlError struct {
	Message string `json:"message"`
	Error   string `json:"error"`
	Details struct {
		ResetIn float64 `json:"reset_in"`
	} `json:"details"`
}

type postNode struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Tagline     string `json:"tagline"`
	Description string `json:"description"`
	URL         string `json:"url"`
	Website     string `json:"website"`
	CreatedAt   string `json:"createdAt"`
	VotesCount  *int   `json:"votesCount"`
	Thumbnail   *struct {
		URL string `json:"url"`
	} `json:"thumbnail"`
	Topics struct {
		Edges []struct {
			Node struct {
				Slug string `json:"slug"`
				Name string `json:"name"`
			} `json:"node"`
		} `json:"edges"`
	} `json:"topics"`
}

// FetchWindow retrieves candidate items whose createdAt falls in [start, end).
// Pages are assumed ordered newest-first, so paging stops early once the last
// item on a page is older than start. Output ordering is not guaranteed;
// callers sort explicitly.
func (c *Client) FetchWindow(ctx context.Context, start, end time.Time, maxPages, pageSize int, policy RateLimitPolicy) ([]models.CandidateItem, error) {
	token := strings.TrimSpace(c.cfg.Token)
	if token == "" {
		return nil, stderrors.NewMissingCredentialError("catalog token")
	}

	var all []models.CandidateItem
	var after string
	retried := false

	for page := 0; page < maxPages; page++ {
		if page > 0 {
			select {
			case <-time.After(c.cfg.PageDelay):
			case <-ctx.Done():
				return all, ctx.Err()
			}
		}

		resp, err := c.fetchPage(ctx, token, after, pageSize)
		if err != nil {
			return nil, err
		}

		if wait, limited := rateLimitSignal(resp); limited {
			metrics.FeedRateLimited.Inc()
			capped := wait
			if capped > c.cfg.MaxRateLimitWait {
				capped = c.cfg.MaxRateLimitWait
			}
			c.logger.Warn("feed rate limited", map[string]interface{}{
				"advisedWait": wait.String(),
				"wait":        capped.String(),
				"collected":   len(all),
			})

			if policy == RateLimitRetry && !retried {
				retried = true
				select {
				case <-time.After(capped):
				case <-ctx.Done():
					return all, ctx.Err()
				}
				page-- // replay the same cursor
				continue
			}

			// Stop paging with what we have. Rate limiting alone is only an
			// error when not a single page succeeded.
			if len(all) == 0 && page == 0 {
				if capped > 0 {
					select {
					case <-time.After(capped):
					case <-ctx.Done():
						return nil, ctx.Err()
					}
				}
				return nil, stderrors.NewRateLimitedError(wait)
			}
			break
		}

		if len(resp.Errors) > 0 {
			return nil, stderrors.NewFeedFetchError(fmt.Errorf("catalog API error: %s", resp.Errors[0].Message))
		}

		metrics.FeedPagesFetched.Inc()

		nodes := resp.Data.Posts.Edges
		if len(nodes) == 0 {
			break
		}

		var lastWhen time.Time
		for _, edge := range nodes {
			item, when, ok := toItem(edge.Node)
			if !ok {
				continue
			}
			lastWhen = when
			if !when.Before(start) && when.Before(end) {
				all = append(all, item)
			}
		}

		after = resp.Data.Posts.PageInfo.EndCursor
		if !resp.Data.Posts.PageInfo.HasNextPage {
			break
		}
		if !lastWhen.IsZero() && lastWhen.Before(start) {
			break
		}
	}

	return all, nil
}

func (c *Client) fetchPage(ctx context.Context, token, after string, pageSize int) (*gqlResponse, error) {
	vars := map[string]interface{}{
		"first":       pageSize,
		"topicsFirst": 6,
	}
	if after != "" {
		vars["after"] = after
	}
	body, _ := json.Marshal(map[string]interface{}{
		"query":     postsQuery,
		"variables": vars,
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.URL, bytes.NewBuffer(body))
	if err != nil {
		return nil, stderrors.NewFeedFetchError(err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "toolplug (+https://toolplug.xyz)")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, stderrors.NewFeedFetchError(err)
	}
	defer resp.Body.Close()

	var out gqlResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, stderrors.NewFeedFetchError(fmt.Errorf("decode catalog response: %w", err))
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		out.Errors = append(out.Errors, gqlError{Error: "rate_limit_reached"})
	} else if resp.StatusCode != http.StatusOK && len(out.Errors) == 0 {
		return nil, stderrors.NewFeedFetchError(fmt.Errorf("catalog status %d", resp.StatusCode))
	}

	return &out, nil
}

// rateLimitSignal inspects a response for the upstream rate-limit marker and
// returns the server-advised reset duration.
func rateLimitSignal(resp *gqlResponse) (time.Duration, bool) {
	for _, e := range resp.Errors {
		if strings.Contains(e.Error, "rate_limit_reached") || strings.Contains(e.Message, "rate_limit_reached") {
			return time.Duration(e.Details.ResetIn * float64(time.Second)), true
		}
	}
	return 0, false
}

func toItem(n postNode) (models.CandidateItem, time.Time, bool) {
	when, err := time.Parse(time.RFC3339, n.CreatedAt)
	if err != nil {
		return models.CandidateItem{}, time.Time{}, false
	}

	votes := 0
	if n.VotesCount != nil {
		votes = *n.VotesCount
	}

	site := n.Website
	if site == "" {
		site = n.URL
	}

	var topics []string
	for _, t := range n.Topics.Edges {
		if t.Node.Slug != "" {
			topics = append(topics, strings.ToLower(t.Node.Slug))
		}
	}

	item := models.CandidateItem{
		ID:          n.ID,
		Name:        n.Name,
		Tagline:     n.Tagline,
		Description: n.Description,
		SiteURL:     site,
		CreatedAt:   when,
		VoteScore:   votes,
		Topics:      topics,
	}
	if n.Thumbnail != nil {
		item.ThumbnailURL = n.Thumbnail.URL
	}
	return item, when, true
}
