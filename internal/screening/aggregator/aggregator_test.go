package aggregator

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"screener/internal/screening/metrics"
	"screener/internal/screening/models"
	"screener/internal/screening/ports/mocks"
	dErrors "screener/pkg/domain-errors"
)

type AggregatorSuite struct {
	suite.Suite
	ctrl      *gomock.Controller
	sanctions *mocks.MockSource
	offshore  *mocks.MockSource
	registry  *mocks.MockSource
	metrics   *metrics.Metrics
	agg       *Aggregator
	now       time.Time
}

func TestAggregatorSuite(t *testing.T) {
	suite.Run(t, new(AggregatorSuite))
}

func (s *AggregatorSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.sanctions = mocks.NewMockSource(s.ctrl)
	s.offshore = mocks.NewMockSource(s.ctrl)
	s.registry = mocks.NewMockSource(s.ctrl)
	s.sanctions.EXPECT().Name().Return(models.SourceSanctions).AnyTimes()
	s.offshore.EXPECT().Name().Return(models.SourceOffshore).AnyTimes()
	s.registry.EXPECT().Name().Return(models.SourceDebarment).AnyTimes()

	s.now = time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	s.metrics = metrics.New(prometheus.NewRegistry())
	s.agg = New(Sources{
		Sanctions: s.sanctions,
		Offshore:  s.offshore,
		Registry:  s.registry,
	},
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithMetrics(s.metrics),
		WithClock(func() time.Time { return s.now }),
	)
}

func (s *AggregatorSuite) result(source models.SourceName, query string, outcome models.Outcome) models.SearchResult {
	return outcome.Result(source, query, s.now)
}

func (s *AggregatorSuite) TestPartialFailureKeepsOtherSources() {
	s.sanctions.EXPECT().Search(gomock.Any(), "acme").Return(
		s.result(models.SourceSanctions, "acme", models.Found([]models.Record{models.SanctionsHit{Name: "ACME"}})))
	s.offshore.EXPECT().Search(gomock.Any(), "acme").Return(
		s.result(models.SourceOffshore, "acme", models.Failure(context.DeadlineExceeded)))
	s.registry.EXPECT().Search(gomock.Any(), "acme").Return(
		s.result(models.SourceDebarment, "acme", models.Found([]models.Record{models.Firm{FirmName: "Acme"}, models.Firm{FirmName: "Acme 2"}})))

	resp, err := s.agg.SearchAll(context.Background(), "  acme ")
	s.Require().NoError(err)

	s.Equal("acme", resp.Query)
	s.Equal(3, resp.TotalHits)
	s.Require().Len(resp.Sources, 3)
	s.Equal(models.SourceSanctions, resp.Sources[0].Source)
	s.Equal(models.SourceOffshore, resp.Sources[1].Source)
	s.Equal(models.SourceDebarment, resp.Sources[2].Source)
	s.True(resp.Sources[1].Failed())
	s.Zero(resp.Sources[1].Hits)
	s.Equal(s.now, resp.Timestamp)

	s.Equal(1.0, testutil.ToFloat64(s.metrics.SourceOutcome.WithLabelValues(string(models.SourceOffshore), "failure")))
	s.Equal(1.0, testutil.ToFloat64(s.metrics.SourceOutcome.WithLabelValues(string(models.SourceDebarment), "success")))
}

func (s *AggregatorSuite) TestPanicBecomesFailure() {
	s.sanctions.EXPECT().Search(gomock.Any(), "acme").DoAndReturn(
		func(context.Context, string) models.SearchResult { panic("nil selector") })
	s.offshore.EXPECT().Search(gomock.Any(), "acme").Return(
		s.result(models.SourceOffshore, "acme", models.Found(nil)))
	s.registry.EXPECT().Search(gomock.Any(), "acme").Return(
		s.result(models.SourceDebarment, "acme", models.Found([]models.Record{models.Firm{FirmName: "Acme"}})))

	resp, err := s.agg.SearchAll(context.Background(), "acme")
	s.Require().NoError(err)

	s.Equal(1, resp.TotalHits)
	first := resp.Sources[0]
	s.Equal(models.SourceSanctions, first.Source)
	s.Contains(first.Error, "source panicked")
	s.Empty(first.Results)
	s.Equal(1.0, testutil.ToFloat64(s.metrics.SourceOutcome.WithLabelValues(string(models.SourceOffshore), "empty")))
}

func (s *AggregatorSuite) TestAllSourcesFailing() {
	for _, m := range []*mocks.MockSource{s.sanctions, s.offshore, s.registry} {
		m.EXPECT().Search(gomock.Any(), "acme").DoAndReturn(
			func(context.Context, string) models.SearchResult {
				return models.Failure(nil).Result(models.SourceSanctions, "acme", s.now)
			})
	}

	resp, err := s.agg.SearchAll(context.Background(), "acme")
	s.Require().NoError(err)
	s.Zero(resp.TotalHits)
	for _, r := range resp.Sources {
		s.True(r.Failed())
	}
}

func (s *AggregatorSuite) TestChallengeCounted() {
	challenged := models.Found([]models.Record{models.Entity{EntityName: "ACME"}})
	challenged.Challenge = true
	s.sanctions.EXPECT().Search(gomock.Any(), "acme").Return(s.result(models.SourceSanctions, "acme", models.Found(nil)))
	s.offshore.EXPECT().Search(gomock.Any(), "acme").Return(s.result(models.SourceOffshore, "acme", challenged))
	s.registry.EXPECT().Search(gomock.Any(), "acme").Return(s.result(models.SourceDebarment, "acme", models.Found(nil)))

	resp, err := s.agg.SearchAll(context.Background(), "acme")
	s.Require().NoError(err)
	s.True(resp.Sources[1].ChallengeDetected)
	s.Equal(1.0, testutil.ToFloat64(s.metrics.Challenges.WithLabelValues(string(models.SourceOffshore))))
}

func (s *AggregatorSuite) TestInvalidQueryNeverReachesSources() {
	_, err := s.agg.SearchAll(context.Background(), "   ")
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))

	long := make([]rune, models.MaxQueryLength+1)
	for i := range long {
		long[i] = 'a'
	}
	_, err = s.agg.SearchAll(context.Background(), string(long))
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))

	_, err = s.agg.Search(context.Background(), s.sanctions, "")
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

func (s *AggregatorSuite) TestSearchSingleSource() {
	s.registry.EXPECT().Search(gomock.Any(), "globex").Return(
		s.result(models.SourceDebarment, "globex", models.Found([]models.Record{models.Firm{FirmName: "Globex"}})))

	r, err := s.agg.Search(context.Background(), s.registry, " globex")
	s.Require().NoError(err)
	s.Equal(1, r.Hits)
}
