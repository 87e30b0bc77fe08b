// internal/editorial/schema.go
package editorial

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// blurb is the fixed JSON shape the generative service must return.
type blurb struct {
	Summary     string   `json:"summary"`
	WhyBullets  []string `json:"why_bullets"`
	BestBullets []string `json:"best_bullets"`
}

const blurbSchema = `{
  "type": "object",
  "required": ["summary", "why_bullets", "best_bullets"],
  "properties": {
    "summary": { "type": "string", "minLength": 1 },
    "why_bullets": {
      "type": "array",
      "minItems": 3,
      "maxItems": 3,
      "items": { "type": "string", "minLength": 1 }
    },
    "best_bullets": {
      "type": "array",
      "minItems": 3,
      "maxItems": 3,
      "items": { "type": "string", "minLength": 1 }
    }
  }
}`

var blurbSchemaLoader = gojsonschema.NewStringLoader(blurbSchema)

// parseBlurb decodes and validates raw generative output against the blurb
// schema with field-by-field checks on top (the schema cannot reject
// whitespace-only strings).
func parseBlurb(raw string) (*blurb, error) {
	raw = strings.TrimSpace(raw)
	// Models occasionally wrap the JSON in a markdown fence.
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")
	raw = strings.TrimSpace(raw)

	result, err := gojsonschema.Validate(blurbSchemaLoader, gojsonschema.NewStringLoader(raw))
	if err != nil {
		return nil, fmt.Errorf("parse blurb: %w", err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return nil, fmt.Errorf("blurb schema violation: %s", strings.Join(msgs, "; "))
	}

	var b blurb
	if err := json.Unmarshal([]byte(raw), &b); err != nil {
		return nil, fmt.Errorf("decode blurb: %w", err)
	}

	b.Summary = strings.TrimSpace(b.Summary)
	if b.Summary == "" {
		return nil, fmt.Errorf("blurb summary is empty")
	}
	for i, set := range [][]string{b.WhyBullets, b.BestBullets} {
		name := "why_bullets"
		if i == 1 {
			name = "best_bullets"
		}
		for j, s := range set {
			s = strings.TrimSpace(s)
			if s == "" {
				return nil, fmt.Errorf("%s[%d] is empty", name, j)
			}
			set[j] = s
		}
	}
	return &b, nil
}
