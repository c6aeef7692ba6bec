package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"screener/internal/screening/aggregator"
	"screener/internal/screening/models"
	"screener/internal/screening/ports/mocks"
	"screener/internal/screening/sources/debarment"
	"screener/pkg/platform/audit"
	"screener/pkg/requestcontext"
	"screener/pkg/testutil"
)

type fakeSource struct {
	name    models.SourceName
	outcome models.Outcome
	queries []string
}

func (f *fakeSource) Name() models.SourceName { return f.name }

func (f *fakeSource) Search(_ context.Context, query string) models.SearchResult {
	f.queries = append(f.queries, query)
	return f.outcome.Result(f.name, query, time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC))
}

type fakeRegistry struct {
	fakeSource
	filters []debarment.Filters
}

func (f *fakeRegistry) SearchFiltered(ctx context.Context, filters debarment.Filters) models.SearchResult {
	f.filters = append(f.filters, filters)
	return f.Search(ctx, filters.Name)
}

type HandlerSuite struct {
	suite.Suite
	ctrl      *gomock.Controller
	auditor   *mocks.MockAuditPublisher
	sanctions *fakeSource
	offshore  *fakeSource
	registry  *fakeRegistry
	router    http.Handler
	now       time.Time
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	s.now = time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	s.ctrl = gomock.NewController(s.T())
	s.auditor = mocks.NewMockAuditPublisher(s.ctrl)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	s.sanctions = &fakeSource{
		name:    models.SourceSanctions,
		outcome: models.Found([]models.Record{models.SanctionsHit{Name: "ACME"}}),
	}
	challenged := models.Found(nil)
	challenged.Challenge = true
	s.offshore = &fakeSource{name: models.SourceOffshore, outcome: challenged}
	s.registry = &fakeRegistry{fakeSource: fakeSource{
		name:    models.SourceDebarment,
		outcome: models.Found([]models.Record{models.Firm{FirmName: "Acme"}, models.Firm{FirmName: "Acme 2"}}),
	}}

	agg := aggregator.New(aggregator.Sources{
		Sanctions: s.sanctions,
		Offshore:  s.offshore,
		Registry:  s.registry,
	}, aggregator.WithLogger(logger), aggregator.WithClock(func() time.Time { return s.now }))

	h := New(agg, Sources{
		Sanctions: s.sanctions,
		Offshore:  s.offshore,
		Registry:  s.registry,
	}, s.auditor, logger)

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := requestcontext.WithTime(r.Context(), s.now)
			ctx = requestcontext.WithRequestID(ctx, "req-1")
			ctx = requestcontext.WithClientMetadata(ctx, "203.0.113.7", r.Header.Get("User-Agent"))
			ctx = requestcontext.WithCredential(ctx, "sk_live_0123456789abcdef", "Analyst")
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	})
	h.RegisterPublic(r)
	h.Register(r)
	s.router = r
}

func (s *HandlerSuite) post(path string, body any) *httptest.ResponseRecorder {
	req := testutil.NewJSONRequest(s.T(), http.MethodPost, path, body)
	req.Header.Set("User-Agent", "curl/8.5.0")
	return testutil.DoRequest(s.router, req)
}

func (s *HandlerSuite) TestHealth() {
	rr := testutil.DoRequest(s.router, httptest.NewRequest(http.MethodGet, "/health", nil))

	s.Equal(http.StatusOK, rr.Code)
	body := testutil.UnmarshalResponse[map[string]any](s.T(), rr)
	s.Equal("healthy", (*body)["status"])
	s.Equal(DefaultVersion, (*body)["version"])
	s.Equal("2025-06-01T08:00:00Z", (*body)["timestamp"])
}

func (s *HandlerSuite) TestSearchAll() {
	var got audit.Event
	s.auditor.EXPECT().Emit(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, e audit.Event) error {
			got = e
			return nil
		})

	rr := s.post("/api/v1/search/all", map[string]string{"entity_name": "  acme "})

	s.Require().Equal(http.StatusOK, rr.Code)
	body := testutil.UnmarshalResponse[map[string]any](s.T(), rr)
	s.Equal("acme", (*body)["query"])
	s.EqualValues(3, (*body)["total_hits"])
	srcs := (*body)["sources"].([]any)
	s.Require().Len(srcs, 3)
	s.Equal(string(models.SourceSanctions), srcs[0].(map[string]any)["source"])
	s.Equal(true, srcs[1].(map[string]any)["challenge_detected"])

	s.Equal(string(audit.EventScreeningPerformed), got.Action)
	s.Equal("Analyst", got.Subject)
	s.Equal("acme", got.Query)
	s.Equal(3, got.TotalHits)
	s.Equal([]string{string(models.SourceOffshore)}, got.ChallengedSources)
	s.Empty(got.FailedSources)
	s.Equal("req-1", got.RequestID)
	s.Equal("203.0.113.7", got.ClientIP)
	s.Contains(got.ClientAgent, "curl")
}

func (s *HandlerSuite) TestSingleSource() {
	s.auditor.EXPECT().Emit(gomock.Any(), gomock.Any()).Return(nil)

	rr := s.post("/api/v1/search/ofac", map[string]string{"entity_name": "acme"})

	s.Require().Equal(http.StatusOK, rr.Code)
	body := testutil.UnmarshalResponse[map[string]any](s.T(), rr)
	s.Equal(string(models.SourceSanctions), (*body)["source"])
	s.EqualValues(1, (*body)["hits"])
	s.Equal([]string{"acme"}, s.sanctions.queries)
}

func (s *HandlerSuite) TestRegistryFilters() {
	s.auditor.EXPECT().Emit(gomock.Any(), gomock.Any()).Return(nil)

	rr := s.post("/api/v1/search/world-bank", map[string]string{
		"entity_name":  "acme",
		"country_code": " ke",
		"status":       "Ineligible",
	})

	s.Require().Equal(http.StatusOK, rr.Code)
	s.Require().Len(s.registry.filters, 1)
	s.Equal(debarment.Filters{Name: "acme", CountryCode: "KE", Status: "Ineligible"}, s.registry.filters[0])
}

func (s *HandlerSuite) TestSourceFailureIs502() {
	s.offshore.outcome = models.Failure(context.DeadlineExceeded)
	s.auditor.EXPECT().Emit(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, e audit.Event) error {
			s.Equal([]string{string(models.SourceOffshore)}, e.FailedSources)
			return nil
		})

	rr := s.post("/api/v1/search/offshore-leaks", map[string]string{"entity_name": "acme"})

	testutil.AssertStatusAndError(s.T(), rr, http.StatusBadGateway, "source_unavailable")
}

func (s *HandlerSuite) TestSearchAllToleratesFailure() {
	s.sanctions.outcome = models.Failure(context.DeadlineExceeded)
	s.auditor.EXPECT().Emit(gomock.Any(), gomock.Any()).Return(nil)

	rr := s.post("/api/v1/search/all", map[string]string{"entity_name": "acme"})

	s.Require().Equal(http.StatusOK, rr.Code)
	body := testutil.UnmarshalResponse[map[string]any](s.T(), rr)
	s.EqualValues(2, (*body)["total_hits"])
}

func (s *HandlerSuite) TestValidation() {
	for _, tc := range []struct {
		name string
		body string
	}{
		{"empty name", `{"entity_name":"   "}`},
		{"missing name", `{}`},
		{"too long", `{"entity_name":"` + strings.Repeat("x", models.MaxQueryLength+1) + `"}`},
	} {
		s.Run(tc.name, func() {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/search/all", strings.NewReader(tc.body))
			rr := testutil.DoRequest(s.router, req)
			testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "invalid_input")
		})
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/search/ofac", strings.NewReader(`{not json`))
	rr := testutil.DoRequest(s.router, req)
	testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "bad_request")
	s.Empty(s.sanctions.queries)
}

func (s *HandlerSuite) TestAuditFailureDoesNotFailRequest() {
	s.auditor.EXPECT().Emit(gomock.Any(), gomock.Any()).Return(io.ErrClosedPipe)

	rr := s.post("/api/v1/search/ofac", map[string]string{"entity_name": "acme"})
	s.Equal(http.StatusOK, rr.Code)
}
