// internal/mailer/mailer.go
package mailer

import (
	"context"
	"regexp"
	"strings"
)

// Message is one outbound transactional email.
type Message struct {
	Recipient   string
	Subject     string
	HTMLContent string
	TextContent string
}

// Mailer sends transactional email. Implementations report success/failure
// per send; the caller owns retry policy.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

var tagRe = regexp.MustCompile(`<[^>]+>`)
var spaceRe = regexp.MustCompile(`\s+`)
var styleRe = regexp.MustCompile(`(?is)<style.*?</style>`)
var scriptRe = regexp.MustCompile(`(?is)<script.*?</script>`)

// HTMLToText produces the plain-text alternative for an HTML body.
func HTMLToText(html string) string {
	s := styleRe.ReplaceAllString(html, " ")
	s = scriptRe.ReplaceAllString(s, " ")
	s = tagRe.ReplaceAllString(s, " ")
	s = spaceRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}
