package offshore

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"screener/internal/browser/browsertest"
	"screener/internal/pacing"
	"screener/internal/screening/models"
)

func newTestAdapter(t *testing.T, session *browsertest.Session, launcher *browsertest.Launcher, maxPages int) *Adapter {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	now := func() time.Time { return time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC) }
	if launcher == nil {
		launcher = &browsertest.Launcher{Session: session}
	}
	extractor, err := NewExtractor(launcher, Config{
		BaseURL:        baseURL,
		MinDelay:       time.Second,
		MaxDelay:       2 * time.Second,
		ConsentTimeout: 5 * time.Second,
	}, WithPacer(pacing.None{}), WithLogger(logger), WithClock(now))
	require.NoError(t, err)
	return NewAdapter(extractor, maxPages, WithAdapterLogger(logger), WithAdapterClock(now))
}

func TestAdapterChallengeKeepsCollectedEntities(t *testing.T) {
	session := browsertest.NewSession(map[string]string{
		firstURL:  firstPage,
		secondURL: challengePage,
	})
	a := newTestAdapter(t, session, nil, 2)

	r := a.Search(context.Background(), "acme")

	assert.Equal(t, models.SourceOffshore, a.Name())
	assert.Equal(t, models.SourceOffshore, r.Source)
	assert.Empty(t, r.Error)
	assert.True(t, r.ChallengeDetected)
	assert.Equal(t, 2, r.Hits)
	require.Len(t, r.Results, 2)
	assert.Equal(t, "ACME HOLDINGS LTD", r.Results[0].(models.Entity).EntityName)
	assert.Equal(t, "Found 2 result(s) for 'acme' in ICIJ Offshore Leaks. "+models.ChallengeMessage, r.Message)
}

func TestAdapterChallengeOnFirstPage(t *testing.T) {
	session := browsertest.NewSession(map[string]string{firstURL: challengePage})
	a := newTestAdapter(t, session, nil, 2)

	r := a.Search(context.Background(), "acme")

	assert.Empty(t, r.Error)
	assert.True(t, r.ChallengeDetected)
	assert.Zero(t, r.Hits)
	assert.NotNil(t, r.Results)
}

func TestAdapterFaultWithoutEntitiesIsFailure(t *testing.T) {
	session := browsertest.NewSession(map[string]string{firstURL: firstPage})
	session.NavigateErrs[firstURL] = browsertest.ErrScripted
	a := newTestAdapter(t, session, nil, 2)

	r := a.Search(context.Background(), "acme")

	assert.True(t, r.Failed())
	assert.Contains(t, r.Error, "provider_outage")
	assert.Zero(t, r.Hits)
	assert.Empty(t, r.Results)
}

func TestAdapterFaultAfterEntitiesKeepsThem(t *testing.T) {
	session := browsertest.NewSession(map[string]string{
		firstURL:  firstPage,
		secondURL: lastPage,
	})
	session.NavigateErrs[secondURL] = browsertest.ErrScripted
	a := newTestAdapter(t, session, nil, 2)

	r := a.Search(context.Background(), "acme")

	assert.False(t, r.Failed())
	assert.Equal(t, 2, r.Hits)
}

func TestAdapterRespectsPageLimit(t *testing.T) {
	session := browsertest.NewSession(map[string]string{
		firstURL:  firstPage,
		secondURL: lastPage,
	})
	a := newTestAdapter(t, session, nil, 1)

	r := a.Search(context.Background(), "acme")

	assert.Equal(t, 2, r.Hits)
	assert.Equal(t, []string{firstURL}, session.Visited)
}

func TestAdapterLaunchFailure(t *testing.T) {
	session := browsertest.NewSession(nil)
	launcher := &browsertest.Launcher{Session: session, OpenErr: browsertest.ErrScripted}
	a := newTestAdapter(t, session, launcher, 2)

	r := a.Search(context.Background(), "acme")

	assert.Contains(t, r.Error, "browser unavailable")
	assert.False(t, r.ChallengeDetected)
}
