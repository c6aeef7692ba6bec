// Package setup builds the three screening sources from configuration. The
// server and the CLI share it so both drive the sites identically.
package setup

import (
	"log/slog"

	"screener/internal/browser"
	"screener/internal/browser/chrome"
	"screener/internal/pacing"
	"screener/internal/platform/config"
	"screener/internal/platform/redis"
	"screener/internal/screening/aggregator"
	"screener/internal/screening/metrics"
	"screener/internal/screening/sources/debarment"
	"screener/internal/screening/sources/offshore"
	"screener/internal/screening/sources/sanctions"
)

type Sources struct {
	Sanctions *sanctions.Adapter
	Offshore  *offshore.Adapter
	Registry  *debarment.Adapter
}

// Aggregated returns the sources in aggregator form.
func (s Sources) Aggregated() aggregator.Sources {
	return aggregator.Sources{
		Sanctions: s.Sanctions,
		Offshore:  s.Offshore,
		Registry:  s.Registry,
	}
}

// NewSources wires the browser-backed and API-backed adapters. rdb and m may
// be nil; without rdb the registry snapshot is cached in memory.
func NewSources(cfg config.Config, log *slog.Logger, m *metrics.Metrics, rdb *redis.Client) (Sources, error) {
	launcher := chrome.NewLauncher(browser.Identity{
		UserAgent:      cfg.Browser.UserAgent,
		ViewportWidth:  cfg.Browser.ViewportWidth,
		ViewportHeight: cfg.Browser.ViewportHeight,
		Locale:         cfg.Browser.Locale,
		Timezone:       cfg.Browser.Timezone,
	},
		chrome.WithHeadless(cfg.Browser.Headless),
		chrome.WithExecPath(cfg.Browser.ExecPath),
		chrome.WithLogger(log),
	)

	sanctionsSrc := sanctions.New(launcher, sanctions.Config{
		URL:               cfg.Sanctions.URL,
		NavigationTimeout: cfg.Sanctions.NavTimeout,
		FormTimeout:       cfg.Sanctions.FormTimeout,
		ResultsTimeout:    cfg.Sanctions.ResultsTimeout,
	}, sanctions.WithPacer(pacing.NewRandom()), sanctions.WithLogger(log))

	extractor, err := offshore.NewExtractor(launcher, offshore.Config{
		BaseURL:           cfg.Offshore.BaseURL,
		MinDelay:          cfg.Offshore.MinDelay,
		MaxDelay:          cfg.Offshore.MaxDelay,
		NavigationTimeout: cfg.Offshore.NavigationTimeout,
		ConsentTimeout:    cfg.Offshore.ConsentTimeout,
		DebugDir:          cfg.Offshore.DebugDir,
	},
		offshore.WithPacer(pacing.NewRandom()),
		offshore.WithLogger(log),
		offshore.WithMetrics(m),
		offshore.WithChallengeDetector(offshore.NewChallengeDetector(cfg.Offshore.ChallengePhrases...)),
	)
	if err != nil {
		return Sources{}, err
	}

	fetcher := debarment.NewFetcher(debarment.FetcherConfig{
		URL:               cfg.Debarment.APIURL,
		APIKey:            cfg.Debarment.APIKey,
		UserAgent:         cfg.Browser.UserAgent,
		Retries:           cfg.Debarment.Retries,
		Timeout:           cfg.Debarment.Timeout,
		RequestsPerSecond: cfg.Debarment.RequestsPerSecond,
	}, debarment.WithFetcherLogger(log))
	registryOpts := []debarment.AdapterOption{debarment.WithLogger(log)}
	if cache := snapshotCache(cfg.Debarment, rdb); cache != nil {
		registryOpts = append(registryOpts, debarment.WithCache(cache))
	}

	return Sources{
		Sanctions: sanctionsSrc,
		Offshore:  offshore.NewAdapter(extractor, cfg.Offshore.MaxPages, offshore.WithAdapterLogger(log)),
		Registry:  debarment.NewAdapter(fetcher, registryOpts...),
	}, nil
}

// snapshotCache returns nil when caching is disabled.
func snapshotCache(cfg config.DebarmentConfig, rdb *redis.Client) debarment.SnapshotCache {
	if cfg.CacheTTL <= 0 {
		return nil
	}
	if rdb != nil {
		return debarment.NewRedisSnapshotCache(rdb.Client, cfg.CacheTTL)
	}
	return debarment.NewMemorySnapshotCache(cfg.CacheTTL)
}
