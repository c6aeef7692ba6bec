// Package cli implements screenctl, a command line front end that runs
// screenings in-process without the HTTP service.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"screener/internal/screening/models"
	"screener/internal/screening/ports"
)

// Source flag values, matching the HTTP route suffixes.
const (
	SourceAll       = "all"
	SourceSanctions = "ofac"
	SourceOffshore  = "offshore-leaks"
	SourceRegistry  = "world-bank"
)

// Searcher runs instrumented source searches.
type Searcher interface {
	SearchAll(ctx context.Context, query string) (*models.MultiSourceResponse, error)
	Search(ctx context.Context, src ports.Source, query string) (models.SearchResult, error)
}

// Engine is what one search invocation runs against.
type Engine struct {
	Searcher Searcher
	Sources  map[string]ports.Source
}

// Deps are supplied by main. NewEngine receives the --max-pages value.
type Deps struct {
	NewEngine   func(maxPages int) (*Engine, error)
	GenerateKey func() (string, error)
}

// NewRootCommand assembles screenctl.
func NewRootCommand(deps Deps) *cobra.Command {
	root := &cobra.Command{
		Use:           "screenctl",
		Short:         "Screen entity names against sanctions, leaks and debarment sources",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newSearchCommand(deps), newKeygenCommand(deps))
	return root
}

type searchOptions struct {
	source   string
	maxPages int
	json     bool
}

func newSearchCommand(deps Deps) *cobra.Command {
	opts := searchOptions{}
	cmd := &cobra.Command{
		Use:   "search [name]",
		Short: "Screen one entity name",
		Long: `Searches the OFAC sanctions list, the ICIJ Offshore Leaks database and the
World Bank debarred firms registry. Use --source to query a single source.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd, deps, opts, args[0])
		},
	}
	cmd.Flags().StringVarP(&opts.source, "source", "s", SourceAll,
		"source to query: all, ofac, offshore-leaks or world-bank")
	cmd.Flags().IntVar(&opts.maxPages, "max-pages", 2, "maximum offshore leaks result pages")
	cmd.Flags().BoolVar(&opts.json, "json", false, "output results as JSON")
	return cmd
}

func runSearch(cmd *cobra.Command, deps Deps, opts searchOptions, name string) error {
	query, err := models.ValidateQuery(name)
	if err != nil {
		return err
	}
	if opts.maxPages < 1 {
		return fmt.Errorf("--max-pages must be at least 1, got %d", opts.maxPages)
	}

	engine, err := deps.NewEngine(opts.maxPages)
	if err != nil {
		return fmt.Errorf("failed to set up sources: %w", err)
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if opts.source == SourceAll {
		resp, err := engine.Searcher.SearchAll(ctx, query)
		if err != nil {
			return fmt.Errorf("search failed: %w", err)
		}
		if opts.json {
			return writeJSON(cmd, resp)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Query: %s\nTotal hits: %d\n\n", resp.Query, resp.TotalHits)
		for _, r := range resp.Sources {
			printResult(cmd, r)
		}
		return nil
	}

	src, ok := engine.Sources[opts.source]
	if !ok {
		return fmt.Errorf("unknown source %q", opts.source)
	}
	result, err := engine.Searcher.Search(ctx, src, query)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}
	if opts.json {
		return writeJSON(cmd, result)
	}
	printResult(cmd, result)
	return nil
}

func writeJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}

func printResult(cmd *cobra.Command, r models.SearchResult) {
	switch {
	case r.Failed():
		fmt.Fprintf(cmd.OutOrStdout(), "%s: error: %s\n", r.Source, r.Error)
	case r.Hits == 0:
		fmt.Fprintf(cmd.OutOrStdout(), "%s: no matches\n", r.Source)
	default:
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %d hit(s)\n", r.Source, r.Hits)
	}
	if r.ChallengeDetected {
		fmt.Fprintln(cmd.OutOrStdout(), "  results may be incomplete: human verification challenge")
	}
	for i, rec := range r.Results {
		fmt.Fprintf(cmd.OutOrStdout(), "  [%d] %s\n", i+1, describe(rec))
	}
	fmt.Fprintln(cmd.OutOrStdout())
}

func describe(rec models.Record) string {
	var parts []string
	switch v := rec.(type) {
	case models.SanctionsHit:
		parts = []string{v.Name, v.Type, v.Programs, v.List}
	case models.Entity:
		parts = []string{v.EntityName, v.Jurisdiction, v.DataFrom}
	case models.Firm:
		parts = []string{v.FirmName, v.Country, period(v.FromDate, v.ToDate)}
	}
	kept := parts[:0]
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, " | ")
}

func period(from, to string) string {
	from, to = strings.TrimSpace(from), strings.TrimSpace(to)
	switch {
	case from == "" && to == "":
		return ""
	case to == "":
		return "since " + from
	default:
		return from + " to " + to
	}
}

func newKeygenCommand(deps Deps) *cobra.Command {
	return &cobra.Command{
		Use:   "keygen",
		Short: "Generate a new API key",
		Long: `Prints a random API key suitable for API_KEY_<n> seeding. The key is not
registered anywhere.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			key, err := deps.GenerateKey()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), key)
			return nil
		},
	}
}
