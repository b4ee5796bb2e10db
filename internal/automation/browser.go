package automation

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"
	"github.com/go-rod/rod/lib/proto"
)

// FeedAutomation drives a rendered symbol feed: scrolling, snapshots and login.
// It satisfies scroll.Scroller and feed.HTMLSource.
type FeedAutomation struct {
	page           *rod.Page
	elementTimeout time.Duration
	actionPause    time.Duration
	logger         *slog.Logger
}

// NewFeedAutomation wraps a Rod page with feed helpers.
func NewFeedAutomation(page *rod.Page, elementTimeout time.Duration, logger *slog.Logger) *FeedAutomation {
	return &FeedAutomation{
		page:           page,
		elementTimeout: elementTimeout,
		actionPause:    500 * time.Millisecond,
		logger:         logger.With("component", "feed_automation"),
	}
}

// --- Elements ---

func (fa *FeedAutomation) element(selector string) (*rod.Element, error) {
	el, err := fa.page.Timeout(fa.elementTimeout).Element(selector)
	if err != nil {
		return nil, fmt.Errorf("element not found: %s: %w", selector, err)
	}
	return el, nil
}

// Click clicks an element matched by the CSS selector.
func (fa *FeedAutomation) Click(selector string) error {
	el, err := fa.element(selector)
	if err != nil {
		return err
	}
	return el.Click(proto.InputMouseButtonLeft, 1)
}

// TypeText replaces the content of an input field.
func (fa *FeedAutomation) TypeText(selector, text string) error {
	el, err := fa.element(selector)
	if err != nil {
		return err
	}
	if err := el.SelectAllText(); err != nil {
		return fmt.Errorf("select %s: %w", selector, err)
	}
	return el.Input(text)
}

// WaitFor blocks until selector is present or timeout elapses.
func (fa *FeedAutomation) WaitFor(selector string, timeout time.Duration) error {
	if _, err := fa.page.Timeout(timeout).Element(selector); err != nil {
		return fmt.Errorf("wait for %s: %w", selector, err)
	}
	return nil
}

// --- Scrolling ---

// ScrollBy scrolls the window down by y pixels.
func (fa *FeedAutomation) ScrollBy(y int) error {
	_, err := fa.page.Eval(fmt.Sprintf(`() => window.scrollBy(0, %d)`, y))
	return err
}

// ScrollToBottom scrolls to the bottom of the page.
func (fa *FeedAutomation) ScrollToBottom() error {
	_, err := fa.page.Eval(`() => window.scrollTo(0, document.body.scrollHeight)`)
	return err
}

// ContentHeight returns the current document scroll height.
func (fa *FeedAutomation) ContentHeight() (int, error) {
	result, err := fa.page.Eval(`() => document.body.scrollHeight`)
	if err != nil {
		return 0, err
	}
	return result.Value.Int(), nil
}

// --- Snapshot ---

// HTML returns the rendered document.
func (fa *FeedAutomation) HTML() (string, error) {
	return fa.page.HTML()
}

// --- Login ---

// LoginCredentials holds the feed login form data.
type LoginCredentials struct {
	LinkSelector     string
	UsernameSelector string
	PasswordSelector string
	SubmitSelector   string
	Username         string
	Password         string
	// Settle is waited after submitting so the session cookie lands.
	Settle time.Duration
}

// Login opens the login dialog and submits the credentials.
func (fa *FeedAutomation) Login(creds LoginCredentials) error {
	if creds.LinkSelector != "" {
		if err := fa.Click(creds.LinkSelector); err != nil {
			return fmt.Errorf("open login: %w", err)
		}
		time.Sleep(fa.actionPause)
	}

	if err := fa.TypeText(creds.UsernameSelector, creds.Username); err != nil {
		return fmt.Errorf("type username: %w", err)
	}
	time.Sleep(fa.actionPause)

	if err := fa.TypeText(creds.PasswordSelector, creds.Password); err != nil {
		return fmt.Errorf("type password: %w", err)
	}
	time.Sleep(fa.actionPause)

	if creds.SubmitSelector != "" {
		if err := fa.Click(creds.SubmitSelector); err != nil {
			return fmt.Errorf("submit: %w", err)
		}
	} else {
		// press Enter as fallback
		passField, err := fa.element(creds.PasswordSelector)
		if err != nil {
			return err
		}
		_ = passField.Focus()
		if err := fa.page.Keyboard.Press(input.Enter); err != nil {
			return fmt.Errorf("submit: %w", err)
		}
	}

	fa.logger.Debug("login submitted", "username", creds.Username)
	time.Sleep(creds.Settle)
	return nil
}
