package debarment

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type FetcherSuite struct {
	suite.Suite
	server  *httptest.Server
	calls   atomic.Int32
	handler http.HandlerFunc
	sleeps  []time.Duration
	fetcher *Fetcher
}

func TestFetcherSuite(t *testing.T) {
	suite.Run(t, new(FetcherSuite))
}

func (s *FetcherSuite) SetupTest() {
	s.calls.Store(0)
	s.sleeps = nil
	s.handler = func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"response":{"ZPROCSUPP":[]}}`)
	}
	s.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.calls.Add(1)
		s.handler(w, r)
	}))
	s.fetcher = NewFetcher(FetcherConfig{
		URL:     s.server.URL + "/firms",
		APIKey:  "registry-key",
		Retries: 3,
		Timeout: 5 * time.Second,
	},
		WithSleep(func(_ context.Context, d time.Duration) error {
			s.sleeps = append(s.sleeps, d)
			return nil
		}),
		WithFetcherLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
}

func (s *FetcherSuite) TearDownTest() {
	s.server.Close()
}

func (s *FetcherSuite) TestSendsHeadersAndParams() {
	var got *http.Request
	s.handler = func(w http.ResponseWriter, r *http.Request) {
		got = r
		_, _ = io.WriteString(w, `[]`)
	}

	_, err := s.fetcher.Fetch(context.Background(), url.Values{"page": {"2"}})
	s.Require().NoError(err)
	s.Require().NotNil(got)
	s.Equal("registry-key", got.Header.Get("apikey"))
	s.Equal("application/json", got.Header.Get("Accept"))
	s.Equal(DefaultUserAgent, got.Header.Get("User-Agent"))
	s.Equal("/firms", got.URL.Path)
	s.Equal("2", got.URL.Query().Get("page"))
}

func (s *FetcherSuite) TestRecoversAfterTransientFailures() {
	s.handler = func(w http.ResponseWriter, _ *http.Request) {
		if s.calls.Load() < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = io.WriteString(w, `{"data":[{"SUPP_NAME":"ACME"}]}`)
	}

	payload, err := s.fetcher.Fetch(context.Background(), nil)
	s.Require().NoError(err)
	s.Len(Normalize(payload), 1)
	s.EqualValues(3, s.calls.Load())
	s.Equal([]time.Duration{time.Second, 2 * time.Second}, s.sleeps)
}

func (s *FetcherSuite) TestExhaustsRetries() {
	s.handler = func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}

	payload, err := s.fetcher.Fetch(context.Background(), nil)
	s.ErrorIs(err, ErrRetriesExhausted)
	s.Nil(payload)
	s.EqualValues(3, s.calls.Load())
	s.Equal([]time.Duration{time.Second, 2 * time.Second}, s.sleeps)
}

func (s *FetcherSuite) TestMalformedPayloadIsTerminal() {
	s.handler = func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `<html>gateway</html>`)
	}

	_, err := s.fetcher.Fetch(context.Background(), nil)
	s.ErrorIs(err, ErrMalformedPayload)
	s.EqualValues(1, s.calls.Load())
	s.Empty(s.sleeps)
}

func (s *FetcherSuite) TestNullPayload() {
	s.handler = func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `null`)
	}

	payload, err := s.fetcher.Fetch(context.Background(), nil)
	s.NoError(err)
	s.Nil(payload)
}

func (s *FetcherSuite) TestTransportFailureRetries() {
	s.server.Close()

	_, err := s.fetcher.Fetch(context.Background(), nil)
	s.ErrorIs(err, ErrRetriesExhausted)
	s.Len(s.sleeps, 2)
}

func (s *FetcherSuite) TestCancelledContextStopsRetrying() {
	ctx, cancel := context.WithCancel(context.Background())
	s.handler = func(w http.ResponseWriter, _ *http.Request) {
		cancel()
		w.WriteHeader(http.StatusInternalServerError)
	}

	_, err := s.fetcher.Fetch(ctx, nil)
	s.ErrorIs(err, context.Canceled)
	s.Empty(s.sleeps)
}

func (s *FetcherSuite) TestSingleAttemptNeverSleeps() {
	f := NewFetcher(FetcherConfig{URL: s.server.URL, Retries: 1},
		WithSleep(func(_ context.Context, d time.Duration) error {
			s.sleeps = append(s.sleeps, d)
			return nil
		}),
		WithFetcherLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	s.handler = func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}

	_, err := f.Fetch(context.Background(), nil)
	s.ErrorIs(err, ErrRetriesExhausted)
	s.Empty(s.sleeps)
}
