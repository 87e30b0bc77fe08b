// internal/editorial/template.go
package editorial

import (
	"fmt"
	"strings"

	"github.com/hhamzie/toolplug/internal/models"
)

// renderHTML assembles the fixed blurb layout: heading, optional category
// pill, optional thumbnail, summary, the two bullet lists and the call to
// action. Unsubscribe/feedback furniture is appended by the dispatcher, not
// here.
func renderHTML(item models.CandidateItem, heading string, categoryLabel string, b *blurb) string {
	var sb strings.Builder

	sb.WriteString(`<div style="color:#000;">` + "\n")
	fmt.Fprintf(&sb, `<h2 style="font-size:1.5em;margin-bottom:0.3em;color:#000 !important;">📅 %s: %s 🚀</h2>`+"\n", heading, item.Name)

	if categoryLabel != "" {
		fmt.Fprintf(&sb, `<span style="display:inline-block;margin:8px 0 12px;padding:6px 10px;border-radius:999px;background:#f1f5f9;color:#0f172a;font-size:12px;font-weight:600;">Category: %s</span>`+"\n", categoryLabel)
	}
	if item.ThumbnailURL != "" {
		fmt.Fprintf(&sb, `<img src="%s" alt="%s logo" width="72" height="72" style="display:block;margin-bottom:18px;border-radius:14px;">`+"\n", item.ThumbnailURL, item.Name)
	}

	fmt.Fprintf(&sb, `<h3 style="margin-bottom:0.4em;color:#000 !important;">What is it?</h3>`+"\n")
	fmt.Fprintf(&sb, `<p style="font-size:1.05em;margin-top:0;margin-bottom:1.1em;color:#000 !important;">%s</p>`+"\n", b.Summary)

	writeBullets := func(title string, bullets []string) {
		fmt.Fprintf(&sb, `<h3 style="margin-bottom:0.4em;color:#000 !important;">%s</h3>`+"\n", title)
		sb.WriteString(`<ul style="margin-top:0.1em;margin-bottom:1.1em;color:#000 !important;">` + "\n")
		for _, bullet := range bullets {
			fmt.Fprintf(&sb, `<li style="color:#000 !important;">%s</li>`+"\n", bullet)
		}
		sb.WriteString("</ul>\n")
	}
	writeBullets("Why you'll love it:", b.WhyBullets)
	writeBullets("Best for:", b.BestBullets)

	fmt.Fprintf(&sb, `<p style="margin-top:1.2em;">`+"\n")
	fmt.Fprintf(&sb, `👉 <a href="%s" target="_blank" style="font-weight:bold;text-decoration:none;color:#3366cc;">Try %s</a>`+"\n", item.SiteURL, item.Name)
	sb.WriteString("</p>\n</div>\n")

	return sb.String()
}
