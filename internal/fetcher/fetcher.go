// Package fetcher opens and releases the per-symbol browser sessions the
// collector reads feeds through.
package fetcher

import (
	"net/url"
	"strings"

	"github.com/IshaanNene/stockpulse/internal/feed"
	"github.com/IshaanNene/stockpulse/internal/scroll"
)

// FeedURL returns <base>/<symbol>.
func FeedURL(base, symbol string) string {
	return strings.TrimRight(base, "/") + "/" + url.PathEscape(strings.TrimSpace(symbol))
}

// Reader returns the page reader bound to the session's page.
func (s *Session) Reader() feed.PageReader { return s.reader }

// Scroller returns the automation used to advance the feed.
func (s *Session) Scroller() scroll.Scroller { return s.Automation }

// Snapshot returns the HTML captured by the last page read.
func (s *Session) Snapshot() string {
	if s.reader == nil {
		return ""
	}
	return s.reader.LastSnapshot()
}
