// internal/server/pages.go
package server

import (
	"fmt"
	"html"
)

// Outcome pages for links clicked from email clients. Kept server-rendered
// and dependency-free so the links work in any context.

const pageStyle = `<style>
:root { color-scheme: light dark; }
body { font-family: system-ui,-apple-system,Segoe UI,Roboto,Arial,sans-serif; display:grid; place-items:center; min-height:100dvh; margin:0; background:#f8fafc; }
.card { background:#fff; padding:28px 32px; border-radius:16px; box-shadow:0 6px 24px rgba(0,0,0,.08); max-width:520px; text-align:center; }
h1 { margin:0 0 10px; font-size:26px; color:#7c3aed; }
p { margin:8px 0; color:#111827; }
</style>`

const confirmedPage = `<!doctype html>
<meta charset="utf-8">
<title>Confirmed</title>
` + pageStyle + `
<body>
<div class="card">
<h1>You're confirmed 🎉</h1>
<p>You can return to your previous tab, it has been updated.</p>
</div>
</body>`

const alreadyConfirmedPage = `<!doctype html>
<meta charset="utf-8">
<title>Already Subscribed</title>
` + pageStyle + `
<body>
<div class="card">
<h1>You've already subscribed!</h1>
<p>Wait for the Magic! ✨ Check your inbox soon.</p>
</div>
</body>`

const unsubscribedPage = `<!doctype html>
<meta charset="utf-8">
<title>Unsubscribed</title>
` + pageStyle + `
<body>
<div class="card">
<h1>Unsubscribed</h1>
<p>You've been removed from the list.</p>
</div>
</body>`

const invalidLinkPage = `<!doctype html>
<meta charset="utf-8">
<title>Invalid Link</title>
` + pageStyle + `
<body>
<div class="card">
<h1>Invalid or expired link</h1>
<p>This link has already been used or never existed. If you were trying to subscribe, just sign up again.</p>
</div>
</body>`

const feedbackFinalPage = `<!doctype html>
<meta charset="utf-8">
<title>Thanks for your feedback</title>
` + pageStyle + `
<body>
<div class="card">
<h1>🙏 Thanks for the feedback!</h1>
<p>We read every note. You can close this tab.</p>
</div>
</body>`

// feedbackThanksPage renders the vote acknowledgement with an optional
// comment form that posts back to the same endpoint.
func feedbackThanksPage(vote, src, pid, emailB64 string) string {
	headline := "Thanks for your feedback!"
	switch vote {
	case "up":
		headline = "👍 Thanks — noted!"
	case "down":
		headline = "👎 Thanks — we'll improve!"
	}

	return fmt.Sprintf(`<!doctype html>
<meta charset="utf-8">
<title>Thanks for your feedback</title>
%s
<body>
<div class="card">
<h1>%s</h1>
<p>Optional: a quick note helps us tune the newsletter.</p>
<form method="POST" action="/api/feedback">
<input type="hidden" name="src" value="%s">
<input type="hidden" name="pid" value="%s">
<input type="hidden" name="v" value="%s">
<input type="hidden" name="e" value="%s">
<textarea name="comment" rows="5" style="width:100%%;box-sizing:border-box;" placeholder="What should we change or improve? (optional)"></textarea>
<p><button type="submit">Send feedback</button></p>
</form>
</div>
</body>`,
		pageStyle,
		headline,
		html.EscapeString(src),
		html.EscapeString(pid),
		html.EscapeString(vote),
		html.EscapeString(emailB64),
	)
}
