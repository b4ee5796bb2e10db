package feed

import (
	"fmt"
	"strings"

	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"

	"github.com/IshaanNene/stockpulse/internal/types"
)

// ParseXPath builds a RawPage from an HTML snapshot using XPath selectors.
func ParseXPath(src string, sel Selectors) (RawPage, error) {
	doc, err := html.Parse(strings.NewReader(src))
	if err != nil {
		return RawPage{}, fmt.Errorf("parse snapshot: %w", err)
	}

	timeNodes, err := htmlquery.QueryAll(doc, sel.Timestamp)
	if err != nil {
		return RawPage{}, fmt.Errorf("invalid xpath %q: %w", sel.Timestamp, err)
	}
	bodyNodes, err := htmlquery.QueryAll(doc, sel.Body)
	if err != nil {
		return RawPage{}, fmt.Errorf("invalid xpath %q: %w", sel.Body, err)
	}

	page := RawPage{
		Timestamps: make([]TimestampNode, 0, len(timeNodes)),
		Bodies:     make([]BodyNode, 0, len(bodyNodes)),
	}
	for _, n := range timeNodes {
		page.Timestamps = append(page.Timestamps, xpathTimestamp{node: n})
	}
	for _, n := range bodyNodes {
		page.Bodies = append(page.Bodies, xpathBody{node: n, sel: sel})
	}
	return page, nil
}

type xpathTimestamp struct {
	node *html.Node
}

func (t xpathTimestamp) DateTime() (string, error) {
	for _, a := range t.node.Attr {
		if a.Key == "datetime" {
			return a.Val, nil
		}
	}
	return "", &types.LookupError{Field: "comment_time", Err: types.ErrElementNotFound}
}

type xpathBody struct {
	node *html.Node
	sel  Selectors
}

func (b xpathBody) Text() (string, error) {
	return nodeText(b.node), nil
}

func (b xpathBody) SentimentTag() (string, bool, error) {
	parent := b.node.Parent
	if parent == nil {
		return "", false, nil
	}
	n, err := htmlquery.Query(parent, b.sel.Sentiment)
	if err != nil {
		return "", false, &types.LookupError{Field: "sentiment_tag", Err: err}
	}
	if n == nil {
		return "", false, nil
	}
	return nodeText(n), true, nil
}

func (b xpathBody) EngagementCounts() ([]string, error) {
	container, err := htmlquery.Query(b.node, b.sel.Container)
	if err != nil {
		return nil, &types.LookupError{Field: "influence", Err: err}
	}
	if container == nil {
		return nil, &types.LookupError{Field: "influence", Err: types.ErrElementNotFound}
	}
	nodes, err := htmlquery.QueryAll(container, b.sel.Counter)
	if err != nil {
		return nil, &types.LookupError{Field: "influence", Err: err}
	}
	counts := make([]string, len(nodes))
	for i, n := range nodes {
		counts[i] = htmlquery.InnerText(n)
	}
	return counts, nil
}
