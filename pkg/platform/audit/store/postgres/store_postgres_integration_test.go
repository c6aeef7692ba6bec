//go:build integration

package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	audit "screener/pkg/platform/audit"
	"screener/pkg/testutil/containers"
)

type PostgresAuditStoreSuite struct {
	suite.Suite
	store *Store
	ctx   context.Context
}

func TestPostgresAuditStoreSuite(t *testing.T) {
	suite.Run(t, new(PostgresAuditStoreSuite))
}

func (s *PostgresAuditStoreSuite) SetupSuite() {
	pg := containers.NewPostgresContainer(s.T())
	s.ctx = context.Background()
	s.store = New(pg.DB)
	s.Require().NoError(s.store.EnsureSchema(s.ctx))
}

func (s *PostgresAuditStoreSuite) TestAppendAndListRecent() {
	base := time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)

	s.Require().NoError(s.store.Append(s.ctx, audit.Event{
		Category:  audit.CategorySecurity,
		Action:    string(audit.EventAuthRejected),
		Timestamp: base,
		Reason:    "invalid_key",
		ClientIP:  "203.0.113.9",
	}))
	s.Require().NoError(s.store.Append(s.ctx, audit.Event{
		Category:          audit.CategoryCompliance,
		Action:            string(audit.EventScreeningPerformed),
		Timestamp:         base.Add(time.Minute),
		Subject:           "Analyst One",
		Query:             "Acme",
		TotalHits:         3,
		FailedSources:     []string{"World Bank Debarred Firms"},
		ChallengedSources: []string{"ICIJ Offshore Leaks"},
		RequestID:         "req-42",
		ClientAgent:       "Chrome on Linux",
	}))

	events, err := s.store.ListRecent(s.ctx, 10)
	s.Require().NoError(err)
	s.Require().Len(events, 2)

	latest := events[0]
	s.Equal(audit.CategoryCompliance, latest.Category)
	s.Equal("Acme", latest.Query)
	s.Equal(3, latest.TotalHits)
	s.Equal([]string{"World Bank Debarred Firms"}, latest.FailedSources)
	s.Equal([]string{"ICIJ Offshore Leaks"}, latest.ChallengedSources)
	s.True(latest.Timestamp.Equal(base.Add(time.Minute)))

	s.Empty(events[1].FailedSources)
	s.Equal("invalid_key", events[1].Reason)
}
