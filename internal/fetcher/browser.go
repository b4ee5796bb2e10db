package fetcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"github.com/IshaanNene/stockpulse/internal/automation"
	"github.com/IshaanNene/stockpulse/internal/config"
	"github.com/IshaanNene/stockpulse/internal/feed"
	"github.com/IshaanNene/stockpulse/internal/types"
)

// Launcher opens a fresh headless browser per symbol.
type Launcher struct {
	cfg    config.FeedConfig
	logger *slog.Logger
}

// NewLauncher creates a launcher for the given feed configuration.
func NewLauncher(cfg config.FeedConfig, logger *slog.Logger) *Launcher {
	return &Launcher{
		cfg:    cfg,
		logger: logger.With("component", "feed_launcher"),
	}
}

// Session is one symbol's browser, page and automation helpers. Close must be
// called on every exit path.
type Session struct {
	Symbol     string
	Automation *automation.FeedAutomation

	reader  *feed.SnapshotReader
	browser *rod.Browser
	page    *rod.Page
	launch  *launcher.Launcher
	// cleanup removes the launcher's temporary profile. Never set for a
	// configured user data dir.
	cleanup bool
	logger  *slog.Logger
}

// Open launches a browser, navigates to the symbol's feed and logs in when
// credentials are configured. Failures are returned as *types.SessionError.
func (l *Launcher) Open(ctx context.Context, symbol string) (*Session, error) {
	s := &Session{
		Symbol: symbol,
		logger: l.logger.With("symbol", symbol),
	}

	controlURL, lnch, err := l.launchBrowser()
	if err != nil {
		return nil, &types.SessionError{Symbol: symbol, Stage: "launch", Err: err}
	}
	s.launch = lnch
	s.cleanup = l.cfg.UserDataDir == ""

	// Shutdown is observed by the collector between iterations; the browser
	// must outlive cancellation so the current iteration and Close still work.
	browser := rod.New().ControlURL(controlURL).Context(context.WithoutCancel(ctx))
	if err := browser.Connect(); err != nil {
		s.Close()
		return nil, &types.SessionError{Symbol: symbol, Stage: "launch", Err: fmt.Errorf("connect browser: %w", err)}
	}
	s.browser = browser

	page, err := l.newPage(browser)
	if err != nil {
		s.Close()
		return nil, &types.SessionError{Symbol: symbol, Stage: "launch", Err: err}
	}
	s.page = page
	s.Automation = automation.NewFeedAutomation(page, l.cfg.ElementTimeout, l.logger)
	s.reader = feed.NewSnapshotReader(s.Automation, l.cfg.SelectorMode, s.logger)

	target := FeedURL(l.cfg.BaseURL, symbol)
	if err := page.Timeout(l.cfg.NavigationTimeout).Navigate(target); err != nil {
		s.Close()
		return nil, &types.SessionError{Symbol: symbol, Stage: "navigate", Err: err}
	}
	if err := page.Timeout(l.cfg.NavigationTimeout).WaitLoad(); err != nil {
		s.logger.Warn("page load timeout, continuing", "url", target, "error", err)
	}

	if l.cfg.Username != "" {
		if err := s.Automation.Login(automation.LoginCredentials{
			LinkSelector:     feed.LoginLink,
			UsernameSelector: feed.LoginUsername,
			PasswordSelector: feed.LoginPassword,
			SubmitSelector:   feed.LoginSubmit,
			Username:         l.cfg.Username,
			Password:         l.cfg.Password,
			Settle:           5 * time.Second,
		}); err != nil {
			s.Close()
			return nil, &types.SessionError{Symbol: symbol, Stage: "login", Err: errors.Join(types.ErrLoginFailed, err)}
		}
	}

	if err := s.Automation.WaitFor(feed.WaitForMessages, l.cfg.ElementTimeout); err != nil {
		// An empty feed is not fatal; the collector records zero-length reads.
		s.logger.Warn("no messages rendered yet", "error", err)
	}

	s.logger.Info("feed session ready", "url", target, "stealth", l.cfg.Stealth, "logged_in", l.cfg.Username != "")
	return s, nil
}

// launchBrowser starts a Chromium instance with the feed's launch flags.
func (l *Launcher) launchBrowser() (string, *launcher.Launcher, error) {
	lnch := launcher.New().
		Headless(l.cfg.Headless).
		NoSandbox(true).
		Set("disable-gpu").
		Set("disable-dev-shm-usage").
		Set("ignore-certificate-errors").
		Set("blink-settings", "imagesEnabled=false").
		Set("disable-blink-features", "AutomationControlled").
		Delete("enable-automation")

	if l.cfg.WindowSize != "" {
		lnch = lnch.Set("window-size", l.cfg.WindowSize)
	}
	if l.cfg.UserDataDir != "" {
		lnch = lnch.UserDataDir(l.cfg.UserDataDir)
	}

	controlURL, err := lnch.Launch()
	if err != nil {
		return "", nil, fmt.Errorf("launch browser: %w", err)
	}
	return controlURL, lnch, nil
}

func (l *Launcher) newPage(browser *rod.Browser) (*rod.Page, error) {
	if l.cfg.Stealth {
		page, err := stealth.Page(browser)
		if err != nil {
			return nil, fmt.Errorf("stealth page: %w", err)
		}
		return page, nil
	}
	page, err := browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		return nil, fmt.Errorf("open page: %w", err)
	}
	return page, nil
}

// Close releases the page, the browser and the launched process. Safe to call
// more than once.
func (s *Session) Close() {
	if s.page != nil {
		_ = s.page.Close()
		s.page = nil
	}
	if s.browser != nil {
		if err := s.browser.Close(); err != nil {
			s.logger.Debug("browser close", "error", err)
		}
		s.browser = nil
	}
	if s.launch != nil {
		s.launch.Kill()
		if s.cleanup {
			s.launch.Cleanup()
		}
		s.launch = nil
	}
}
