package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	authservice "screener/internal/auth/service"
	"screener/internal/auth/store/credential"
	"screener/internal/cli"
	"screener/internal/platform/config"
	"screener/internal/platform/logger"
	"screener/internal/screening/aggregator"
	"screener/internal/screening/ports"
	"screener/internal/screening/setup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	// logs go to stderr so --json output stays clean
	log := logger.NewWithWriter(os.Stderr, cfg.Log)

	keys, err := authservice.New(credential.New())
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	root := cli.NewRootCommand(cli.Deps{
		NewEngine: func(maxPages int) (*cli.Engine, error) {
			c := cfg
			c.Offshore.MaxPages = maxPages
			src, err := setup.NewSources(c, log, nil, nil)
			if err != nil {
				return nil, err
			}
			return &cli.Engine{
				Searcher: aggregator.New(src.Aggregated(), aggregator.WithLogger(log)),
				Sources: map[string]ports.Source{
					cli.SourceSanctions: src.Sanctions,
					cli.SourceOffshore:  src.Offshore,
					cli.SourceRegistry:  src.Registry,
				},
			}, nil
		},
		GenerateKey: keys.GenerateKey,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		stop()
		os.Exit(1)
	}
}
