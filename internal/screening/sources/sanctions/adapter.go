// Package sanctions searches the OFAC sanctions list through its web form.
package sanctions

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"screener/internal/browser"
	"screener/internal/pacing"
	"screener/internal/screening/models"
	"screener/internal/screening/sources"
)

const (
	SelectorNameInput = "#ctl00_MainContent_txtLastName"
	SelectorSearch    = "#ctl00_MainContent_btnSearch"
	SelectorResults   = "#gvSearchResults"
)

type Config struct {
	URL               string
	NavigationTimeout time.Duration
	FormTimeout       time.Duration
	ResultsTimeout    time.Duration
}

// Adapter drives one browser session per search.
type Adapter struct {
	launcher browser.Launcher
	pacer    pacing.Pacer
	cfg      Config
	logger   *slog.Logger
	now      func() time.Time
}

type Option func(*Adapter)

func WithPacer(p pacing.Pacer) Option {
	return func(a *Adapter) {
		a.pacer = p
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(a *Adapter) {
		a.logger = logger
	}
}

func WithClock(now func() time.Time) Option {
	return func(a *Adapter) {
		a.now = now
	}
}

func New(launcher browser.Launcher, cfg Config, opts ...Option) *Adapter {
	a := &Adapter{
		launcher: launcher,
		pacer:    pacing.NewRandom(),
		cfg:      cfg,
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *Adapter) Name() models.SourceName {
	return models.SourceSanctions
}

func (a *Adapter) Search(ctx context.Context, query string) models.SearchResult {
	outcome := a.search(ctx, query)
	if outcome.Kind == models.OutcomeFailure {
		a.logger.WarnContext(ctx, "sanctions search failed",
			"source", models.SourceSanctions,
			"query", query,
			"error", outcome.Err,
		)
	}
	return outcome.Result(models.SourceSanctions, query, a.now())
}

func (a *Adapter) search(ctx context.Context, query string) models.Outcome {
	sess, err := a.launcher.Open(ctx)
	if err != nil {
		return models.Failure(sources.NewSourceError(sources.ErrorInternal, models.SourceSanctions, "browser unavailable", err))
	}
	defer sess.Close()

	if err := sess.Navigate(ctx, a.cfg.URL, a.cfg.NavigationTimeout); err != nil {
		return models.Failure(classify(err, "search page did not load"))
	}
	if err := a.pacer.Pause(ctx, pacing.Between(2*time.Second, 4*time.Second)); err != nil {
		return models.Failure(classify(err, "cancelled"))
	}

	visible, err := sess.WaitVisible(ctx, SelectorNameInput, a.cfg.FormTimeout)
	if err != nil {
		return models.Failure(classify(err, "search form unavailable"))
	}
	if !visible {
		return models.Failure(sources.NewSourceError(sources.ErrorTimeout, models.SourceSanctions, "search form never appeared", browser.ErrTimeout))
	}

	steps := []func() error{
		func() error { return a.pacer.Pause(ctx, pacing.Between(time.Second, 2*time.Second)) },
		func() error { return sess.Fill(ctx, SelectorNameInput, query) },
		func() error { return a.pacer.Pause(ctx, pacing.Between(time.Second, 2*time.Second)) },
		func() error { return sess.Click(ctx, SelectorSearch) },
		func() error { return a.pacer.Pause(ctx, pacing.Between(3*time.Second, 5*time.Second)) },
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return models.Failure(classify(err, "search form interaction failed"))
		}
	}

	visible, err = sess.WaitVisible(ctx, SelectorResults, a.cfg.ResultsTimeout)
	if err != nil {
		return models.Failure(classify(err, "results unavailable"))
	}
	if !visible {
		// The grid is not rendered at all when nothing matches.
		return models.Found(nil)
	}
	if err := a.pacer.Pause(ctx, pacing.Between(2*time.Second, 3*time.Second)); err != nil {
		return models.Failure(classify(err, "cancelled"))
	}

	html, err := sess.Content(ctx)
	if err != nil {
		return models.Failure(classify(err, "could not read results page"))
	}
	hits, err := ParseResults(html, a.cfg.URL)
	if err != nil {
		return models.Failure(sources.NewSourceError(sources.ErrorBadData, models.SourceSanctions, "results page unreadable", err))
	}
	return models.Found(hits)
}

// ParseResults reads every #gvSearchResults row with at least six cells:
// name, address, type, programs, list and score.
func ParseResults(html, baseURL string) ([]models.Record, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse results markup: %w", err)
	}

	var hits []models.Record
	doc.Find(SelectorResults + " tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < 6 {
			return
		}
		cell := func(i int) string { return strings.TrimSpace(cells.Eq(i).Text()) }

		hit := models.SanctionsHit{
			Name:     cell(0),
			Address:  cell(1),
			Type:     cell(2),
			Programs: cell(3),
			List:     cell(4),
			Score:    cell(5),
		}
		if link := cells.Eq(0).Find("a").First(); link.Length() > 0 {
			hit.Name = strings.TrimSpace(link.Text())
			if href, ok := link.Attr("href"); ok && href != "" {
				u := strings.TrimRight(baseURL, "/") + "/" + strings.TrimLeft(href, "/")
				hit.NameURL = &u
			}
		}
		hits = append(hits, hit)
	})
	return hits, nil
}

func classify(err error, message string) error {
	switch {
	case errors.Is(err, browser.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return sources.NewSourceError(sources.ErrorTimeout, models.SourceSanctions, message, err)
	case errors.Is(err, context.Canceled):
		return sources.NewSourceError(sources.ErrorInternal, models.SourceSanctions, message, err)
	default:
		return sources.NewSourceError(sources.ErrorProviderOutage, models.SourceSanctions, message, err)
	}
}
