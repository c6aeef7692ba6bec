package models

import (
	"fmt"
	"strings"
	"time"

	dErrors "screener/pkg/domain-errors"
)

// SourceName is the display name of a screening source.
type SourceName string

const (
	SourceSanctions SourceName = "OFAC"
	SourceOffshore  SourceName = "ICIJ Offshore Leaks"
	SourceDebarment SourceName = "World Bank Debarred Firms"
)

// MaxQueryLength bounds entity_name after trimming.
const MaxQueryLength = 200

// Record is one row returned by a source. The set of implementations is
// closed: SanctionsHit, Entity and Firm.
type Record interface {
	isRecord()
}

// SanctionsHit is one row of the OFAC results grid.
type SanctionsHit struct {
	Name     string  `json:"name"`
	NameURL  *string `json:"name_url"`
	Address  string  `json:"address"`
	Type     string  `json:"type"`
	Programs string  `json:"programs"`
	List     string  `json:"list"`
	Score    string  `json:"score"`
}

// Entity is one row of the offshore leaks results table. Text fields
// default to "N/A" when the cell is empty.
type Entity struct {
	EntityName   string    `json:"entity_name"`
	EntityURL    *string   `json:"entity_url"`
	Jurisdiction string    `json:"jurisdiction"`
	LinkedTo     string    `json:"linked_to"`
	DataFrom     string    `json:"data_from"`
	DataFromURL  *string   `json:"data_from_url"`
	SearchQuery  string    `json:"search_query"`
	ScrapedAt    time.Time `json:"scraped_at"`
}

// Firm is one debarred-firms registry record.
type Firm struct {
	FirmName string `json:"firm_name"`
	Address  string `json:"address"`
	Country  string `json:"country"`
	FromDate string `json:"from_date"`
	ToDate   string `json:"to_date"`
	Grounds  string `json:"grounds"`
}

func (SanctionsHit) isRecord() {}
func (Entity) isRecord()       {}
func (Firm) isRecord()         {}

// SearchResult is one source's answer for one query. Build it through
// Outcome.Result so hits always agree with results.
type SearchResult struct {
	Source            SourceName `json:"source"`
	Query             string     `json:"query"`
	Hits              int        `json:"hits"`
	Results           []Record   `json:"results"`
	Message           string     `json:"message,omitempty"`
	Error             string     `json:"error,omitempty"`
	ChallengeDetected bool       `json:"challenge_detected"`
	Timestamp         time.Time  `json:"timestamp"`
}

// Failed reports whether the source could not produce results.
func (r SearchResult) Failed() bool {
	return r.Error != ""
}

// MultiSourceResponse is the combined answer of all sources, in the fixed
// order sanctions, offshore, registry.
type MultiSourceResponse struct {
	Query     string         `json:"query"`
	TotalHits int            `json:"total_hits"`
	Sources   []SearchResult `json:"sources"`
	Timestamp time.Time      `json:"timestamp"`
}

// HealthResponse is served by GET /health.
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version"`
}

// ValidateQuery trims q and checks its length.
func ValidateQuery(q string) (string, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "entity_name is required")
	}
	if len([]rune(q)) > MaxQueryLength {
		return "", dErrors.New(dErrors.CodeInvalidInput,
			fmt.Sprintf("entity_name must be %d characters or less", MaxQueryLength))
	}
	return q, nil
}
