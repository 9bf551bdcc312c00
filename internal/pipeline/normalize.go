package pipeline

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
	"unicode/utf8"

	xhtml "golang.org/x/net/html"

	"feedbot/internal/feed"
	"feedbot/pkg/tgui"
)

const (
	// defaultSummaryLimit is the displayed summary budget in runes.
	defaultSummaryLimit = 280

	// fingerprintSummaryPrefix bounds the hash input while still telling
	// superficially different summaries apart.
	fingerprintSummaryPrefix = 600

	// fingerprintSep joins fingerprint fields. The unit separator never
	// survives whitespace collapsing, so field boundaries stay unambiguous.
	fingerprintSep = "\x1f"
)

// Message is a candidate item reduced to what dispatch needs: rendered
// HTML-safe text plus the content fingerprint identifying it across runs.
type Message struct {
	Text        string
	Fingerprint string
	SourceName  string
	Link        string
	Published   time.Time

	// degenerate marks items with no title, summary or link. They still
	// carry a defined fingerprint but the planner filters them as noise.
	degenerate bool
}

// Normalize is a pure function of the candidate item. Two items that
// agree after HTML stripping, whitespace collapsing and lowercasing (in
// title, summary prefix, link, and source name) produce the same
// fingerprint regardless of markup or casing differences between fetches.
func Normalize(it feed.Item, summaryLimit int) Message {
	if summaryLimit <= 0 {
		summaryLimit = defaultSummaryLimit
	}

	title := collapseSpace(stripHTML(it.Title))
	summary := collapseSpace(stripHTML(it.Summary))
	link := strings.TrimSpace(it.Link)
	source := collapseSpace(it.Source.Name)

	display := summary
	if utf8.RuneCountInString(display) > summaryLimit {
		display = tgui.TruncRunes(display, summaryLimit-1)
	}

	parts := make([]tgui.H, 0, 4)
	if title != "" {
		parts = append(parts, tgui.B(title))
	}
	if display != "" {
		parts = append(parts, tgui.Esc(display))
	}
	if link != "" {
		parts = append(parts, tgui.Link(link, link))
	}
	if source != "" {
		parts = append(parts, tgui.I(source))
	}

	return Message{
		Text:        tgui.JoinH("\n", parts...).String(),
		Fingerprint: fingerprint(source, title, summary, link),
		SourceName:  source,
		Link:        link,
		Published:   it.Published,
		degenerate:  title == "" && summary == "" && link == "",
	}
}

// fingerprint hashes the canonical form of the item. Field order is
// fixed and load-bearing: source name, title, summary prefix, link.
func fingerprint(source, title, summary, link string) string {
	canon := strings.Join([]string{
		strings.ToLower(source),
		strings.ToLower(title),
		strings.ToLower(prefixRunes(summary, fingerprintSummaryPrefix)),
		strings.ToLower(link),
	}, fingerprintSep)
	sum := sha256.Sum256([]byte(canon))
	return hex.EncodeToString(sum[:])
}

func prefixRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}

// stripHTML drops markup and decodes entities, emitting a newline for
// block and line-break tags so adjacent fragments don't fuse into one
// word. Plain text passes through unchanged apart from entity decoding.
func stripHTML(s string) string {
	if s == "" || !strings.ContainsAny(s, "<&") {
		return s
	}
	var b strings.Builder
	z := xhtml.NewTokenizer(strings.NewReader(s))
	skip := 0
	for {
		tt := z.Next()
		switch tt {
		case xhtml.ErrorToken:
			return b.String()
		case xhtml.TextToken:
			if skip == 0 {
				b.Write(z.Text())
			}
		case xhtml.StartTagToken, xhtml.SelfClosingTagToken, xhtml.EndTagToken:
			name, _ := z.TagName()
			switch string(name) {
			case "br", "p", "div", "li":
				b.WriteByte('\n')
			case "script", "style":
				// Invisible content; never part of the rendered summary.
				if tt == xhtml.StartTagToken {
					skip++
				} else if tt == xhtml.EndTagToken && skip > 0 {
					skip--
				}
			}
		}
	}
}

// collapseSpace squeezes whitespace runs (including the newlines
// stripHTML introduces) to single spaces and trims both ends.
func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
