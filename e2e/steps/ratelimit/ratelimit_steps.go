package ratelimit

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/cucumber/godog"
)

// TestContext is the part of the scenario state the rate-limit steps need.
type TestContext interface {
	POST(path string, body any, headers map[string]string) error
	GET(path string, headers map[string]string) error
	Field(name string) (any, error)
	Header(k string) string
	Statuses() []int
	APIKey() string
}

// RegisterSteps registers quota steps. Searches use the registry route,
// which needs no browser.
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &ratelimitSteps{tc: tc}

	ctx.Step(`^I send (\d+) registry searches for "([^"]*)"$`, steps.sendSearches)
	ctx.Step(`^the first (\d+) searches should not be rate limited$`, steps.firstNAdmitted)
	ctx.Step(`^the last search should return (\d+)$`, steps.lastShouldReturn)
	ctx.Step(`^the "Retry-After" header should be between (\d+) and (\d+) seconds$`, steps.retryAfterBetween)
	ctx.Step(`^I check my rate limit status$`, steps.checkStatus)
	ctx.Step(`^my remaining quota should be (\d+)$`, steps.remainingShouldBe)
}

type ratelimitSteps struct {
	tc    TestContext
	start int
}

func (s *ratelimitSteps) headers() map[string]string {
	return map[string]string{"X-API-KEY": s.tc.APIKey()}
}

func (s *ratelimitSteps) sendSearches(ctx context.Context, n int, name string) error {
	s.start = len(s.tc.Statuses())
	for range n {
		if err := s.tc.POST("/api/v1/search/world-bank", map[string]string{"entity_name": name}, s.headers()); err != nil {
			return err
		}
	}
	return nil
}

func (s *ratelimitSteps) sent() []int {
	return s.tc.Statuses()[s.start:]
}

// firstNAdmitted accepts a 502 as well as a 200: the quota is charged
// before the registry is reached.
func (s *ratelimitSteps) firstNAdmitted(ctx context.Context, n int) error {
	sent := s.sent()
	if len(sent) < n {
		return fmt.Errorf("only %d searches were sent", len(sent))
	}
	for i, got := range sent[:n] {
		if got == http.StatusTooManyRequests || got == http.StatusUnauthorized || got == http.StatusForbidden {
			return fmt.Errorf("search %d was rejected with %d", i+1, got)
		}
	}
	return nil
}

func (s *ratelimitSteps) lastShouldReturn(ctx context.Context, status int) error {
	sent := s.sent()
	if len(sent) == 0 {
		return fmt.Errorf("no searches were sent")
	}
	if got := sent[len(sent)-1]; got != status {
		return fmt.Errorf("last search returned %d, want %d", got, status)
	}
	return nil
}

func (s *ratelimitSteps) retryAfterBetween(ctx context.Context, lo, hi int) error {
	v, err := strconv.Atoi(s.tc.Header("Retry-After"))
	if err != nil {
		return fmt.Errorf("Retry-After: %w", err)
	}
	if v < lo || v > hi {
		return fmt.Errorf("Retry-After %d outside [%d, %d]", v, lo, hi)
	}
	return nil
}

func (s *ratelimitSteps) checkStatus(ctx context.Context) error {
	return s.tc.GET("/api/v1/rate-limit", s.headers())
}

func (s *ratelimitSteps) remainingShouldBe(ctx context.Context, want int) error {
	v, err := s.tc.Field("rate_limit")
	if err != nil {
		return err
	}
	rl, ok := v.(map[string]any)
	if !ok {
		return fmt.Errorf("rate_limit is not an object: %v", v)
	}
	if got, _ := rl["remaining"].(float64); int(got) != want {
		return fmt.Errorf("remaining %v, want %d", rl["remaining"], want)
	}
	return nil
}
