// internal/editorial/generator.go
package editorial

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hhamzie/toolplug/internal/common/config"
	"github.com/hhamzie/toolplug/internal/common/errors"
	"github.com/hhamzie/toolplug/internal/common/logger"
	"github.com/hhamzie/toolplug/internal/models"
)

// Mode selects how generation failures are handled.
type Mode int

const (
	// Strict surfaces any parse or validation failure to the caller.
	Strict Mode = iota
	// Lenient substitutes fixed copy when the service fails or returns junk.
	Lenient
)

func (m Mode) String() string {
	if m == Lenient {
		return "lenient"
	}
	return "strict"
}

// Copy is a fully rendered newsletter blurb for one product.
type Copy struct {
	Subject  string
	BodyHTML string
	Link     string
}

// Generator produces newsletter copy by calling the generative text service
// and rendering the result into the fixed email layout.
type Generator struct {
	cfg    *config.GenAIConfig
	client *http.Client
	logger logger.Logger
}

func NewGenerator(cfg *config.GenAIConfig, log logger.Logger) *Generator {
	return &Generator{
		cfg: cfg,
		client: &http.Client{
			// No client timeout; the per-call context bounds each request.
		},
		logger: log.WithFields(map[string]interface{}{
			"component": "editorial",
		}),
	}
}

// Generate produces the blurb for one product. The heading and subject differ
// between the weekly and daily editions; weekly copy carries a category pill,
// daily copy does not (categoryLabel left empty by the caller).
func (g *Generator) Generate(ctx context.Context, item models.CandidateItem, category models.Category, mode Mode) (*Copy, error) {
	ctx, cancel := context.WithTimeout(ctx, time.Duration(g.cfg.Timeout)*time.Millisecond)
	defer cancel()

	b, err := g.requestBlurb(ctx, item)
	if err != nil {
		if mode == Strict {
			return nil, err
		}
		g.logger.WithError(err).Warn("falling back to default copy", map[string]interface{}{
			"product": item.Name,
		})
		b = defaultBlurb(item)
	}

	heading := "Weekly Product Highlight"
	subject := fmt.Sprintf("Weekly Product Launch Highlight - %s", item.Name)
	categoryLabel := category.Label()
	if mode == Lenient {
		heading = "Daily Favorite"
		subject = fmt.Sprintf("Daily Launch Favorite - %s", item.Name)
		categoryLabel = ""
	}

	return &Copy{
		Subject:  subject,
		BodyHTML: renderHTML(item, heading, categoryLabel, b),
		Link:     item.SiteURL,
	}, nil
}

func (g *Generator) requestBlurb(ctx context.Context, item models.CandidateItem) (*blurb, error) {
	requestBody := map[string]interface{}{
		"prompt":      buildPrompt(item),
		"max_tokens":  g.cfg.MaxTokens,
		"temperature": g.cfg.Temperature,
	}

	body, _ := json.Marshal(requestBody)
	req, err := http.NewRequestWithContext(ctx, "POST", g.cfg.BaseURL+"/api/ai/generate", bytes.NewBuffer(body))
	if err != nil {
		return nil, errors.NewGenerationFailedError(err)
	}
	req.Header.Set("Content-Type", "application/json")
	if g.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+g.cfg.APIKey)
	}

	var resp *http.Response
	var lastErr error

	for attempt := 0; attempt <= g.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(100*(1<<(attempt-1))) * time.Millisecond
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, errors.NewGenerationTimeoutError(time.Duration(g.cfg.Timeout) * time.Millisecond)
			}
			req.Body = io.NopCloser(bytes.NewReader(body))
		}

		resp, lastErr = g.client.Do(req)
		if lastErr == nil {
			if resp.StatusCode == http.StatusOK {
				break
			}
			resp.Body.Close()
			lastErr = fmt.Errorf("status %d", resp.StatusCode)
			resp = nil
		}

		if ctx.Err() != nil {
			return nil, errors.NewGenerationTimeoutError(time.Duration(g.cfg.Timeout) * time.Millisecond)
		}
	}

	if lastErr != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, errors.NewGenerationTimeoutError(time.Duration(g.cfg.Timeout) * time.Millisecond)
		}
		return nil, errors.NewGenerationFailedError(lastErr)
	}
	if resp == nil {
		return nil, errors.NewGenerationFailedError(fmt.Errorf("no successful response after retries"))
	}
	defer resp.Body.Close()

	var apiResponse struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResponse); err != nil {
		return nil, errors.NewGenerationFailedError(fmt.Errorf("decode error: %v", err))
	}

	b, err := parseBlurb(apiResponse.Text)
	if err != nil {
		return nil, errors.NewContentInvalidError(item.Name, err.Error())
	}

	g.logger.Debug("blurb generated", map[string]interface{}{
		"product": item.Name,
	})
	return b, nil
}

func buildPrompt(item models.CandidateItem) string {
	var parts []string

	parts = append(parts, "You help write newsletter blurbs for new tech products.")
	parts = append(parts, "Output as raw JSON with exactly three fields only:")
	parts = append(parts, `{`)
	parts = append(parts, `  "summary": "<your 1-2 sentence summary of the product, must include at least one emoji, and must be simple but brief.>",`)
	parts = append(parts, `  "why_bullets": ["...","...","..."],    // 3 bullets, all energetic w/ emojis, each <= 13 words`)
	parts = append(parts, `  "best_bullets": ["...","...","..."]    // 3 bullets, each with at least one emoji`)
	parts = append(parts, `}`)
	parts = append(parts, "No prose, no markdown, no commentary, just the JSON.")
	parts = append(parts, "")
	parts = append(parts, fmt.Sprintf("Product: %s", item.Name))
	parts = append(parts, fmt.Sprintf("Tagline: %s", item.Tagline))
	parts = append(parts, fmt.Sprintf("Description: %s", item.Description))
	parts = append(parts, fmt.Sprintf("Site: %s", item.SiteURL))

	return strings.Join(parts, "\n")
}

// defaultBlurb is the lenient-mode substitute copy.
func defaultBlurb(item models.CandidateItem) *blurb {
	summary := "A fresh tech launch."
	if item.Tagline != "" {
		summary = item.Tagline
	}
	return &blurb{
		Summary:     summary + " 🚀",
		WhyBullets:  []string{"Useful out of the box ✨", "Focused workflow improvements ✅", "Simple setup 🛠️"},
		BestBullets: []string{"Solo builders 🧑‍💻", "Small teams 👥", "Anyone trying new tools 🚀"},
	}
}
