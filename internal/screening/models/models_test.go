package models

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "screener/pkg/domain-errors"
)

var at = time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)

func TestOutcomeResultInvariant(t *testing.T) {
	firms := []Record{Firm{FirmName: "ACME"}, Firm{FirmName: "ACME Holdings"}}

	cases := []struct {
		name    string
		outcome Outcome
	}{
		{"success", Found(firms)},
		{"empty", Found(nil)},
		{"failure", Failure(errors.New("retries exhausted"))},
		{"failure without cause", Outcome{Kind: OutcomeFailure}},
		{"failure with stray records", Outcome{Kind: OutcomeFailure, Records: firms, Err: errors.New("boom")}},
		{"challenge with partial data", Outcome{Kind: OutcomeSuccess, Records: firms[:1], Challenge: true}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := tc.outcome.Result(SourceDebarment, "acme", at)
			if r.Failed() {
				assert.Zero(t, r.Hits)
				assert.Empty(t, r.Results)
				assert.NotEmpty(t, r.Error)
				return
			}
			assert.Equal(t, len(r.Results), r.Hits)
			assert.Empty(t, r.Error)
			assert.NotNil(t, r.Results)
		})
	}
}

func TestOutcomeMessages(t *testing.T) {
	r := Found([]Record{Entity{EntityName: "X"}}).Result(SourceOffshore, "london", at)
	assert.Equal(t, "Found 1 result(s) for 'london' in ICIJ Offshore Leaks", r.Message)

	r = Found(nil).Result(SourceSanctions, "nobody", at)
	assert.Equal(t, "No results found for 'nobody' in OFAC", r.Message)

	r = Outcome{Kind: OutcomeSuccess, Records: []Record{Entity{}}, Challenge: true}.Result(SourceOffshore, "q", at)
	assert.True(t, r.ChallengeDetected)
	assert.Empty(t, r.Error)
	assert.True(t, strings.HasSuffix(r.Message, ChallengeMessage))
}

func TestSearchResultJSON(t *testing.T) {
	r := Found(nil).Result(SourceDebarment, "q", at)
	raw, err := json.Marshal(r)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, []any{}, decoded["results"], "empty results must encode as [] not null")
	assert.NotContains(t, decoded, "error")
	assert.Equal(t, "World Bank Debarred Firms", decoded["source"])
}

func TestValidateQuery(t *testing.T) {
	q, err := ValidateQuery("  London Foundation  ")
	require.NoError(t, err)
	assert.Equal(t, "London Foundation", q)

	_, err = ValidateQuery("   ")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))

	_, err = ValidateQuery(strings.Repeat("a", MaxQueryLength))
	assert.NoError(t, err)

	_, err = ValidateQuery(strings.Repeat("a", MaxQueryLength+1))
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
}
