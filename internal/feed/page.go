package feed

import (
	"context"
	"fmt"
)

// TimestampNode is one message timestamp element.
type TimestampNode interface {
	// DateTime returns the raw ISO-8601-like datetime attribute.
	DateTime() (string, error)
}

// BodyNode is one message body element plus the lookups that hang off it.
// Each lookup reports its own failure so the aligner can apply a per-field
// fallback instead of dropping the page.
type BodyNode interface {
	// Text returns the body text.
	Text() (string, error)

	// SentimentTag returns the label next to the body. ok is false when the
	// message carries no label.
	SentimentTag() (tag string, ok bool, err error)

	// EngagementCounts returns the raw text of every engagement badge in the
	// enclosing message container.
	EngagementCounts() ([]string, error)
}

// RawPage is the positional element lists captured from one feed snapshot.
// Timestamps and Bodies are queried independently and are only paired by the
// aligner.
type RawPage struct {
	Timestamps []TimestampNode
	Bodies     []BodyNode
}

// PageReader captures the current state of a feed.
type PageReader interface {
	ReadPage(ctx context.Context) (RawPage, error)
}

// Parse builds a RawPage from an HTML snapshot using the given selector mode.
func Parse(html, mode string) (RawPage, error) {
	switch mode {
	case "xpath", "":
		return ParseXPath(html, XPathSelectors)
	case "css":
		return ParseCSS(html, CSSSelectors)
	default:
		return RawPage{}, fmt.Errorf("unknown selector mode %q", mode)
	}
}
