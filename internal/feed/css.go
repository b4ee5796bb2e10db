package feed

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/IshaanNene/stockpulse/internal/types"
)

// ParseCSS builds a RawPage from an HTML snapshot using CSS selectors via goquery.
func ParseCSS(src string, sel Selectors) (RawPage, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(src))
	if err != nil {
		return RawPage{}, fmt.Errorf("parse snapshot: %w", err)
	}

	var page RawPage
	doc.Find(sel.Timestamp).Each(func(i int, s *goquery.Selection) {
		page.Timestamps = append(page.Timestamps, cssTimestamp{s: s})
	})
	doc.Find(sel.Body).Each(func(i int, s *goquery.Selection) {
		page.Bodies = append(page.Bodies, cssBody{s: s, sel: sel})
	})
	return page, nil
}

type cssTimestamp struct {
	s *goquery.Selection
}

func (t cssTimestamp) DateTime() (string, error) {
	v, ok := t.s.Attr("datetime")
	if !ok {
		return "", &types.LookupError{Field: "comment_time", Err: types.ErrElementNotFound}
	}
	return v, nil
}

type cssBody struct {
	s   *goquery.Selection
	sel Selectors
}

func (b cssBody) Text() (string, error) {
	return selectionText(b.s.Nodes), nil
}

func (b cssBody) SentimentTag() (string, bool, error) {
	label := b.s.Parent().Find(b.sel.Sentiment).First()
	if label.Length() == 0 {
		return "", false, nil
	}
	return selectionText(label.Nodes), true, nil
}

func (b cssBody) EngagementCounts() ([]string, error) {
	container := b.s.Closest(b.sel.Container)
	if container.Length() == 0 {
		return nil, &types.LookupError{Field: "influence", Err: types.ErrElementNotFound}
	}
	var counts []string
	container.Find(b.sel.Counter).Each(func(i int, s *goquery.Selection) {
		counts = append(counts, s.Text())
	})
	return counts, nil
}
