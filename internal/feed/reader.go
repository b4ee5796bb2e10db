package feed

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// HTMLSource returns the rendered document of a live feed.
type HTMLSource interface {
	HTML() (string, error)
}

// SnapshotReader reads a feed by taking an HTML snapshot of the rendered page
// and querying it offline. Nodes stay valid after the live page scrolls.
type SnapshotReader struct {
	src    HTMLSource
	mode   string
	logger *slog.Logger

	mu   sync.Mutex
	last string
}

// NewSnapshotReader creates a reader. mode is "xpath" or "css".
func NewSnapshotReader(src HTMLSource, mode string, logger *slog.Logger) *SnapshotReader {
	return &SnapshotReader{
		src:    src,
		mode:   mode,
		logger: logger.With("component", "page_reader"),
	}
}

// ReadPage implements PageReader.
func (r *SnapshotReader) ReadPage(ctx context.Context) (RawPage, error) {
	if err := ctx.Err(); err != nil {
		return RawPage{}, err
	}
	html, err := r.src.HTML()
	if err != nil {
		return RawPage{}, fmt.Errorf("snapshot feed: %w", err)
	}

	r.mu.Lock()
	r.last = html
	r.mu.Unlock()

	page, err := Parse(html, r.mode)
	if err != nil {
		return RawPage{}, err
	}
	r.logger.Debug("page read",
		"timestamps", len(page.Timestamps),
		"bodies", len(page.Bodies),
		"bytes", len(html),
	)
	return page, nil
}

// LastSnapshot returns the HTML captured by the most recent ReadPage.
func (r *SnapshotReader) LastSnapshot() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last
}
