// Package chrome implements browser sessions on a headless Chrome driven
// through the DevTools protocol.
package chrome

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/chromedp"

	"screener/internal/browser"
)

const defaultActionTimeout = 30 * time.Second

// Launcher starts a fresh Chrome process per session so sessions never
// share cookies or storage.
type Launcher struct {
	identity browser.Identity
	headless bool
	execPath string
	logger   *slog.Logger
}

type Option func(*Launcher)

func WithHeadless(headless bool) Option {
	return func(l *Launcher) {
		l.headless = headless
	}
}

// WithExecPath points at a specific Chrome or Chromium binary.
func WithExecPath(path string) Option {
	return func(l *Launcher) {
		l.execPath = path
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(l *Launcher) {
		l.logger = logger
	}
}

func NewLauncher(identity browser.Identity, opts ...Option) *Launcher {
	l := &Launcher{
		identity: identity,
		headless: true,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Launcher) Open(ctx context.Context) (browser.Session, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", l.headless),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.UserAgent(l.identity.UserAgent),
		chromedp.WindowSize(l.identity.ViewportWidth, l.identity.ViewportHeight),
	)
	if l.execPath != "" {
		opts = append(opts, chromedp.ExecPath(l.execPath))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.WithoutCancel(ctx), opts...)
	tabCtx, cancelTab := chromedp.NewContext(allocCtx)

	// The first Run starts the browser; it must not carry a deadline or the
	// process dies with it.
	err := chromedp.Run(tabCtx,
		emulation.SetTimezoneOverride(l.identity.Timezone),
		emulation.SetLocaleOverride().WithLocale(l.identity.Locale),
		emulation.SetDeviceMetricsOverride(int64(l.identity.ViewportWidth), int64(l.identity.ViewportHeight), 1, false),
	)
	if err != nil {
		cancelTab()
		cancelAlloc()
		return nil, fmt.Errorf("start browser: %w", err)
	}

	return &session{
		tab:    tabCtx,
		cancel: func() { cancelTab(); cancelAlloc() },
		logger: l.logger,
	}, nil
}

type session struct {
	tab       context.Context
	cancel    func()
	closeOnce sync.Once
	logger    *slog.Logger
}

// run executes actions on the tab, bounded by timeout and by the caller's ctx.
func (s *session) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithTimeout(s.tab, timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	err := chromedp.Run(runCtx, actions...)
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		return browser.ErrTimeout
	}
	return err
}

func (s *session) Navigate(ctx context.Context, url string, timeout time.Duration) error {
	return s.run(ctx, timeout,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
}

func (s *session) WaitVisible(ctx context.Context, selector string, timeout time.Duration) (bool, error) {
	err := s.run(ctx, timeout, chromedp.WaitVisible(selector, chromedp.ByQuery))
	if errors.Is(err, browser.ErrTimeout) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *session) Click(ctx context.Context, selector string) error {
	return s.run(ctx, defaultActionTimeout, chromedp.Click(selector, chromedp.ByQuery))
}

func (s *session) Fill(ctx context.Context, selector, value string) error {
	return s.run(ctx, defaultActionTimeout,
		chromedp.Clear(selector, chromedp.ByQuery),
		chromedp.SendKeys(selector, value, chromedp.ByQuery),
	)
}

func (s *session) Evaluate(ctx context.Context, expression string, out any) error {
	return s.run(ctx, defaultActionTimeout, chromedp.Evaluate(expression, out))
}

func (s *session) Content(ctx context.Context) (string, error) {
	var html string
	if err := s.run(ctx, defaultActionTimeout, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", err
	}
	return html, nil
}

func (s *session) Close() error {
	s.closeOnce.Do(func() {
		if err := chromedp.Cancel(s.tab); err != nil {
			s.logger.Debug("browser close", "error", err)
		}
		s.cancel()
	})
	return nil
}
