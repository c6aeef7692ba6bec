// Package offshore walks the ICIJ Offshore Leaks search results page by page.
package offshore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"screener/internal/browser"
	"screener/internal/pacing"
	"screener/internal/screening/metrics"
	"screener/internal/screening/models"
)

// DefaultMaxPages applies when Extract is called without a page limit.
const DefaultMaxPages = 5

const (
	selectorConsent = `input[type="checkbox"]#accept`
	selectorSubmit  = `button[type="submit"]`
)

// State is a step of the extraction state machine.
type State int

const (
	StateInit State = iota
	StateConsentGate
	StateReading
	StateExtracting
	StateNextPage
	StateChallenged
	StateExhausted
	StateDone
	StateFaulted
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateConsentGate:
		return "consent_gate"
	case StateReading:
		return "reading"
	case StateExtracting:
		return "extracting"
	case StateNextPage:
		return "next_page"
	case StateChallenged:
		return "challenged"
	case StateExhausted:
		return "exhausted"
	case StateDone:
		return "done"
	case StateFaulted:
		return "faulted"
	default:
		return "unknown"
	}
}

// Terminal reports whether the machine stops in s.
func (s State) Terminal() bool {
	switch s {
	case StateChallenged, StateExhausted, StateDone, StateFaulted:
		return true
	}
	return false
}

// Run is the result of one extraction. Entities collected before a
// challenge or fault are kept.
type Run struct {
	Entities          []models.Entity
	ChallengeDetected bool
	Pages             int
	Final             State
	Fault             error
}

type Config struct {
	BaseURL           string
	MinDelay          time.Duration
	MaxDelay          time.Duration
	NavigationTimeout time.Duration
	ConsentTimeout    time.Duration
	// DebugDir receives the markup of pages that yielded no rows. Empty
	// disables the dump.
	DebugDir string
}

// Extractor drives one isolated browser session per call to Extract.
type Extractor struct {
	launcher browser.Launcher
	cfg      Config
	base     *url.URL
	detector *ChallengeDetector
	pacer    pacing.Pacer
	logger   *slog.Logger
	metrics  *metrics.Metrics
	now      func() time.Time
}

type ExtractorOption func(*Extractor)

func WithPacer(p pacing.Pacer) ExtractorOption {
	return func(e *Extractor) {
		e.pacer = p
	}
}

func WithLogger(logger *slog.Logger) ExtractorOption {
	return func(e *Extractor) {
		e.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) ExtractorOption {
	return func(e *Extractor) {
		e.metrics = m
	}
}

func WithClock(now func() time.Time) ExtractorOption {
	return func(e *Extractor) {
		e.now = now
	}
}

func WithChallengeDetector(d *ChallengeDetector) ExtractorOption {
	return func(e *Extractor) {
		e.detector = d
	}
}

func NewExtractor(launcher browser.Launcher, cfg Config, opts ...ExtractorOption) (*Extractor, error) {
	base, err := url.Parse(cfg.BaseURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("offshore: invalid base url %q", cfg.BaseURL)
	}
	if cfg.MinDelay > cfg.MaxDelay {
		return nil, fmt.Errorf("offshore: min delay %s exceeds max delay %s", cfg.MinDelay, cfg.MaxDelay)
	}
	e := &Extractor{
		launcher: launcher,
		cfg:      cfg,
		base:     base,
		detector: NewChallengeDetector(),
		pacer:    pacing.NewRandom(),
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// scrapeSession is the mutable state of one Extract call.
type scrapeSession struct {
	sess      browser.Session
	query     string
	url       string
	page      int
	maxPages  int
	state     State
	collected []models.Entity
	challenge bool
	fault     error
}

// Extract searches for query and follows "more results" links until
// maxPages pages were read, the results run out, or a challenge page
// appears. maxPages <= 0 means DefaultMaxPages. The returned error is only
// set when no browser session could be opened.
func (e *Extractor) Extract(ctx context.Context, query string, maxPages int) (*Run, error) {
	if maxPages <= 0 {
		maxPages = DefaultMaxPages
	}

	sess, err := e.launcher.Open(ctx)
	if err != nil {
		return nil, fmt.Errorf("open browser session: %w", err)
	}
	defer func() {
		if cerr := sess.Close(); cerr != nil {
			e.logger.WarnContext(ctx, "closing browser session", "error", cerr)
		}
	}()

	s := &scrapeSession{
		sess:     sess,
		query:    query,
		url:      e.searchURL(query),
		maxPages: maxPages,
		state:    StateInit,
	}
	for !s.state.Terminal() {
		prev := s.state
		e.step(ctx, s)
		e.logger.DebugContext(ctx, "extractor transition",
			"query", query,
			"page", s.page,
			"from", prev.String(),
			"state", s.state.String(),
		)
	}

	e.metrics.AddExtractorPages(s.state.String(), s.page)
	e.logger.InfoContext(ctx, "offshore extraction finished",
		"query", query,
		"state", s.state.String(),
		"pages", s.page,
		"entities", len(s.collected),
		"challenge", s.challenge,
	)

	return &Run{
		Entities:          s.collected,
		ChallengeDetected: s.challenge,
		Pages:             s.page,
		Final:             s.state,
		Fault:             s.fault,
	}, nil
}

func (e *Extractor) step(ctx context.Context, s *scrapeSession) {
	var err error
	switch s.state {
	case StateInit:
		if err = e.load(ctx, s); err == nil {
			s.state = StateConsentGate
		}
	case StateConsentGate:
		if err = e.acceptConsent(ctx, s); err == nil {
			err = e.pacer.Pause(ctx, pacing.Between(3*time.Second, 6*time.Second))
		}
		if err == nil {
			s.state = StateReading
		}
	case StateReading:
		if err = e.read(ctx, s); err == nil {
			s.state = StateExtracting
		}
	case StateExtracting:
		err = e.extract(ctx, s)
	case StateNextPage:
		if err = e.pacer.Pause(ctx, pacing.Between(e.cfg.MinDelay, e.cfg.MaxDelay)); err == nil {
			err = e.load(ctx, s)
		}
		if err == nil {
			s.state = StateReading
		}
	}
	if err != nil {
		s.fault = err
		s.state = StateFaulted
	}
}

// load navigates to s.url. A navigation timeout is tolerated: whatever
// rendered so far is read after a short pause.
func (e *Extractor) load(ctx context.Context, s *scrapeSession) error {
	s.page++
	err := s.sess.Navigate(ctx, s.url, e.cfg.NavigationTimeout)
	if errors.Is(err, browser.ErrTimeout) {
		e.logger.WarnContext(ctx, "offshore navigation timed out, continuing",
			"query", s.query,
			"page", s.page,
		)
		return e.pacer.Pause(ctx, pacing.Fixed(3*time.Second))
	}
	if err != nil {
		return fmt.Errorf("navigate page %d: %w", s.page, err)
	}
	return nil
}

func (e *Extractor) acceptConsent(ctx context.Context, s *scrapeSession) error {
	visible, err := s.sess.WaitVisible(ctx, selectorConsent, e.cfg.ConsentTimeout)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		e.logger.WarnContext(ctx, "consent gate check failed", "query", s.query, "error", err)
		return nil
	}
	if !visible {
		return nil
	}

	if err := e.pacer.Pause(ctx, pacing.Between(time.Second, 2*time.Second)); err != nil {
		return err
	}
	if err := s.sess.Click(ctx, selectorConsent); err != nil {
		e.logger.WarnContext(ctx, "consent checkbox click failed", "query", s.query, "error", err)
	}
	if err := e.pacer.Pause(ctx, pacing.Between(500*time.Millisecond, 1500*time.Millisecond)); err != nil {
		return err
	}
	if err := s.sess.Click(ctx, selectorSubmit); err != nil {
		e.logger.WarnContext(ctx, "consent submit click failed", "query", s.query, "error", err)
	}
	return e.pacer.Pause(ctx, pacing.Between(2*time.Second, 4*time.Second))
}

var scrollSteps = []struct {
	fraction float64
	pause    pacing.Interval
}{
	{0.3, pacing.Between(500*time.Millisecond, 1500*time.Millisecond)},
	{0.6, pacing.Between(500*time.Millisecond, 1500*time.Millisecond)},
	{0.9, pacing.Between(500*time.Millisecond, time.Second)},
	{0, pacing.Between(300*time.Millisecond, 800*time.Millisecond)},
}

// read scrolls through the page the way a person skims it.
func (e *Extractor) read(ctx context.Context, s *scrapeSession) error {
	for _, st := range scrollSteps {
		expr := fmt.Sprintf("window.scrollTo(0, document.body.scrollHeight * %g); document.body.scrollHeight", st.fraction)
		var height float64
		if err := s.sess.Evaluate(ctx, expr, &height); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			e.logger.WarnContext(ctx, "scroll failed", "query", s.query, "page", s.page, "error", err)
		}
		if err := e.pacer.Pause(ctx, st.pause); err != nil {
			return err
		}
	}
	return nil
}

func (e *Extractor) extract(ctx context.Context, s *scrapeSession) error {
	html, err := s.sess.Content(ctx)
	if err != nil {
		return fmt.Errorf("read page %d: %w", s.page, err)
	}

	if phrase, ok := e.detector.Detect(html); ok {
		e.logger.WarnContext(ctx, "offshore challenge page detected",
			"query", s.query,
			"page", s.page,
			"phrase", phrase,
		)
		s.challenge = true
		s.state = StateChallenged
		return nil
	}

	entities, next, err := parsePage(html, e.base, s.query, e.now())
	if err != nil {
		return fmt.Errorf("parse page %d: %w", s.page, err)
	}
	if len(entities) == 0 {
		e.dump(ctx, s.page, html)
		s.state = StateExhausted
		return nil
	}
	s.collected = append(s.collected, entities...)

	if next != "" && s.page < s.maxPages {
		s.url = next
		s.state = StateNextPage
		return nil
	}
	s.state = StateDone
	return nil
}

func (e *Extractor) dump(ctx context.Context, page int, html string) {
	if e.cfg.DebugDir == "" {
		return
	}
	if err := os.MkdirAll(e.cfg.DebugDir, 0o755); err != nil {
		e.logger.WarnContext(ctx, "debug dump failed", "error", err)
		return
	}
	path := filepath.Join(e.cfg.DebugDir, fmt.Sprintf("debug_page_%d.html", page))
	if err := os.WriteFile(path, []byte(html), 0o600); err != nil {
		e.logger.WarnContext(ctx, "debug dump failed", "error", err)
		return
	}
	e.logger.InfoContext(ctx, "page without results dumped", "page", page, "path", path)
}

func (e *Extractor) searchURL(query string) string {
	u := e.base.JoinPath("search")
	u.RawQuery = url.Values{"q": {query}}.Encode()
	return u.String()
}
