package debarment

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"screener/internal/screening/models"
	"screener/internal/screening/sources"
)

type stubFetcher struct {
	payload any
	err     error
	calls   int
}

func (f *stubFetcher) Fetch(_ context.Context, _ url.Values) (any, error) {
	f.calls++
	return f.payload, f.err
}

type failingCache struct{}

func (failingCache) Get(context.Context) ([]Record, bool, error) {
	return nil, false, errors.New("cache down")
}

func (failingCache) Put(context.Context, []Record) error {
	return errors.New("cache down")
}

var fixedNow = time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)

func newAdapter(f PayloadFetcher, opts ...AdapterOption) *Adapter {
	opts = append([]AdapterOption{
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithClock(func() time.Time { return fixedNow }),
	}, opts...)
	return NewAdapter(f, opts...)
}

func registryPayload(t *testing.T) any {
	return decode(t, `{"response":{"ZPROCSUPP":[
		{"SUPP_NAME":"Acme Construction Ltd","COUNTRY_NAME":"Kenya","LAND1":"KE","ELIG_STAT":"Ineligible","DEBAR_REASON":"Fraud"},
		{"SUPP_NAME":"Globex","COUNTRY_NAME":"Nigeria","LAND1":"NG","ELIG_STAT":"Ineligible"}
	]}}`)
}

func TestAdapterSearch(t *testing.T) {
	a := newAdapter(&stubFetcher{payload: registryPayload(t)})

	r := a.Search(context.Background(), "acme")

	assert.Equal(t, models.SourceDebarment, a.Name())
	assert.Equal(t, models.SourceDebarment, r.Source)
	assert.Empty(t, r.Error)
	require.Equal(t, 1, r.Hits)
	firm := r.Results[0].(models.Firm)
	assert.Equal(t, "Acme Construction Ltd", firm.FirmName)
	assert.Equal(t, "Fraud", firm.Grounds)
	assert.Equal(t, "Found 1 result(s) for 'acme' in World Bank Debarred Firms", r.Message)
	assert.Equal(t, fixedNow, r.Timestamp)
}

func TestAdapterSearchNoMatch(t *testing.T) {
	a := newAdapter(&stubFetcher{payload: registryPayload(t)})

	r := a.Search(context.Background(), "initech")

	assert.Empty(t, r.Error)
	assert.Zero(t, r.Hits)
	assert.NotNil(t, r.Results)
}

func TestAdapterSearchFiltered(t *testing.T) {
	a := newAdapter(&stubFetcher{payload: registryPayload(t)})

	r := a.SearchFiltered(context.Background(), Filters{CountryCode: "ng"})
	require.Equal(t, 1, r.Hits)
	assert.Equal(t, "Globex", r.Results[0].(models.Firm).FirmName)

	r = a.SearchFiltered(context.Background(), Filters{Name: "acme", Country: "nigeria"})
	assert.Zero(t, r.Hits)
}

func TestAdapterFailures(t *testing.T) {
	tests := []struct {
		name     string
		fetcher  *stubFetcher
		category sources.ErrorCategory
	}{
		{"retries exhausted", &stubFetcher{err: fmt.Errorf("%w after 3 attempts", ErrRetriesExhausted)}, sources.ErrorProviderOutage},
		{"malformed payload", &stubFetcher{err: ErrMalformedPayload}, sources.ErrorBadData},
		{"null payload", &stubFetcher{}, sources.ErrorBadData},
		{"deadline", &stubFetcher{err: context.DeadlineExceeded}, sources.ErrorTimeout},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newAdapter(tt.fetcher).Search(context.Background(), "acme")
			assert.True(t, r.Failed())
			assert.Contains(t, r.Error, "["+string(tt.category)+"]")
			assert.Zero(t, r.Hits)
			assert.Empty(t, r.Results)
		})
	}
}

func TestAdapterUsesSnapshotCache(t *testing.T) {
	fetcher := &stubFetcher{payload: registryPayload(t)}
	cache := NewMemorySnapshotCache(time.Minute)
	a := newAdapter(fetcher, WithCache(cache))

	first := a.Search(context.Background(), "acme")
	second := a.Search(context.Background(), "globex")

	assert.Equal(t, 1, first.Hits)
	assert.Equal(t, 1, second.Hits)
	assert.Equal(t, 1, fetcher.calls)
}

func TestAdapterSnapshotExpires(t *testing.T) {
	fetcher := &stubFetcher{payload: registryPayload(t)}
	cache := NewMemorySnapshotCache(time.Minute)
	now := fixedNow
	cache.now = func() time.Time { return now }
	a := newAdapter(fetcher, WithCache(cache))

	a.Search(context.Background(), "acme")
	now = now.Add(2 * time.Minute)
	a.Search(context.Background(), "acme")

	assert.Equal(t, 2, fetcher.calls)
}

func TestAdapterCacheFailureFallsBackToFetch(t *testing.T) {
	fetcher := &stubFetcher{payload: registryPayload(t)}
	a := newAdapter(fetcher, WithCache(failingCache{}))

	r := a.Search(context.Background(), "acme")

	assert.Empty(t, r.Error)
	assert.Equal(t, 1, r.Hits)
	assert.Equal(t, 1, fetcher.calls)
}

func TestAdapterFailureIsNotCached(t *testing.T) {
	fetcher := &stubFetcher{err: ErrRetriesExhausted}
	cache := NewMemorySnapshotCache(time.Minute)
	a := newAdapter(fetcher, WithCache(cache))

	a.Search(context.Background(), "acme")
	_, ok, err := cache.Get(context.Background())

	assert.NoError(t, err)
	assert.False(t, ok)
}
