package feed

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
)

// fallbackSourceName labels feeds that declare no title and whose
// entries carry no parseable link.
const fallbackSourceName = "feed"

// Fetcher retrieves and parses one feed document per call.
type Fetcher struct {
	parser *gofeed.Parser
}

func NewFetcher(timeout time.Duration, userAgent string) *Fetcher {
	p := gofeed.NewParser()
	if strings.TrimSpace(userAgent) != "" {
		p.UserAgent = userAgent
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	p.Client = &http.Client{Timeout: timeout}
	return &Fetcher{parser: p}
}

// Fetch retrieves feedURL and converts its entries into Items tagged
// with the resolved Source. A network or parse failure returns an error
// carrying the URL and no items.
func (f *Fetcher) Fetch(ctx context.Context, feedURL string) (Source, []Item, error) {
	parsed, err := f.parser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return Source{}, nil, fmt.Errorf("fetch %s: %w", feedURL, err)
	}
	src, items := itemsFromFeed(parsed, feedURL)
	return src, items, nil
}

// itemsFromFeed is the pure conversion half of Fetch, split out so the
// naming and timestamp rules are testable without a network.
func itemsFromFeed(parsed *gofeed.Feed, feedURL string) (Source, []Item) {
	src := Source{Name: sourceName(parsed), URL: feedURL}
	items := make([]Item, 0, len(parsed.Items))
	for _, entry := range parsed.Items {
		if entry == nil {
			continue
		}
		summary := entry.Description
		if summary == "" {
			summary = entry.Content
		}
		items = append(items, Item{
			Title:     entry.Title,
			Summary:   summary,
			Link:      entry.Link,
			Published: entryTime(entry),
			Source:    src,
		})
	}
	return src, items
}

// sourceName prefers the feed's self-declared title, then the host of
// the first entry's link (lowercased, leading "www." removed), then a
// literal fallback.
func sourceName(parsed *gofeed.Feed) string {
	if t := strings.TrimSpace(parsed.Title); t != "" {
		return t
	}
	for _, entry := range parsed.Items {
		if entry == nil || entry.Link == "" {
			continue
		}
		if h := linkHost(entry.Link); h != "" {
			return h
		}
		break
	}
	return fallbackSourceName
}

func linkHost(link string) string {
	u, err := url.Parse(strings.TrimSpace(link))
	if err != nil {
		return ""
	}
	host := strings.ToLower(u.Hostname())
	host = strings.TrimPrefix(host, "www.")
	return host
}

// entryTime picks the ordering timestamp: published, else updated,
// else zero. It is never used for filtering.
func entryTime(entry *gofeed.Item) time.Time {
	if entry.PublishedParsed != nil {
		return *entry.PublishedParsed
	}
	if entry.UpdatedParsed != nil {
		return *entry.UpdatedParsed
	}
	return time.Time{}
}
