package screening

import (
	"context"
	"fmt"

	"github.com/cucumber/godog"
)

// TestContext is the part of the scenario state the screening steps need.
type TestContext interface {
	POST(path string, body any, headers map[string]string) error
	Field(name string) (any, error)
	APIKey() string
}

// RegisterSteps registers search steps.
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &screeningSteps{tc: tc}

	ctx.Step(`^I search "([^"]*)" for "([^"]*)"$`, steps.search)
	ctx.Step(`^I search all sources for "([^"]*)"$`, steps.searchAll)
	ctx.Step(`^the sources should be reported in order "([^"]*)", "([^"]*)", "([^"]*)"$`, steps.sourcesInOrder)
	ctx.Step(`^total_hits should equal the sum of source hits$`, steps.totalHitsConsistent)
}

type screeningSteps struct {
	tc TestContext
}

func (s *screeningSteps) search(ctx context.Context, route, name string) error {
	return s.tc.POST("/api/v1/search/"+route, map[string]string{"entity_name": name},
		map[string]string{"X-API-KEY": s.tc.APIKey()})
}

func (s *screeningSteps) searchAll(ctx context.Context, name string) error {
	return s.search(ctx, "all", name)
}

func (s *screeningSteps) results() ([]map[string]any, error) {
	v, err := s.tc.Field("sources")
	if err != nil {
		return nil, err
	}
	list, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("sources is not a list: %v", v)
	}
	out := make([]map[string]any, 0, len(list))
	for _, item := range list {
		m, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("source entry is not an object: %v", item)
		}
		out = append(out, m)
	}
	return out, nil
}

func (s *screeningSteps) sourcesInOrder(ctx context.Context, a, b, c string) error {
	results, err := s.results()
	if err != nil {
		return err
	}
	want := []string{a, b, c}
	if len(results) != len(want) {
		return fmt.Errorf("got %d sources, want %d", len(results), len(want))
	}
	for i, r := range results {
		if r["source"] != want[i] {
			return fmt.Errorf("source %d is %v, want %s", i, r["source"], want[i])
		}
	}
	return nil
}

func (s *screeningSteps) totalHitsConsistent(ctx context.Context) error {
	results, err := s.results()
	if err != nil {
		return err
	}
	sum := 0
	for _, r := range results {
		hits, _ := r["hits"].(float64)
		sum += int(hits)
	}
	total, err := s.tc.Field("total_hits")
	if err != nil {
		return err
	}
	if got, _ := total.(float64); int(got) != sum {
		return fmt.Errorf("total_hits %v, sum of hits %d", total, sum)
	}
	return nil
}
