package models

import (
	"fmt"
	"time"
)

// OutcomeKind separates "nothing found" from "could not look".
type OutcomeKind int

const (
	OutcomeSuccess OutcomeKind = iota
	OutcomeEmpty
	OutcomeFailure
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSuccess:
		return "success"
	case OutcomeEmpty:
		return "empty"
	case OutcomeFailure:
		return "failure"
	default:
		return "unknown"
	}
}

// ChallengeMessage accompanies results cut short by a bot-verification page.
const ChallengeMessage = "Human verification challenge detected"

// Outcome is what an adapter produced before it is rendered as a SearchResult.
type Outcome struct {
	Kind      OutcomeKind
	Records   []Record
	Challenge bool
	Err       error
}

// Found returns Success for a non-empty slice and Empty otherwise.
func Found(records []Record) Outcome {
	if len(records) == 0 {
		return Outcome{Kind: OutcomeEmpty}
	}
	return Outcome{Kind: OutcomeSuccess, Records: records}
}

func Failure(err error) Outcome {
	return Outcome{Kind: OutcomeFailure, Err: err}
}

// Result renders the outcome. A Failure never carries records, and only a
// Failure sets Error.
func (o Outcome) Result(source SourceName, query string, at time.Time) SearchResult {
	r := SearchResult{
		Source:    source,
		Query:     query,
		Results:   []Record{},
		Timestamp: at,
	}

	switch o.Kind {
	case OutcomeFailure:
		msg := "source unavailable"
		if o.Err != nil {
			msg = o.Err.Error()
		}
		r.Error = msg
		r.ChallengeDetected = o.Challenge
		return r
	case OutcomeSuccess:
		r.Results = append(r.Results, o.Records...)
	}

	r.Hits = len(r.Results)
	if r.Hits > 0 {
		r.Message = fmt.Sprintf("Found %d result(s) for '%s' in %s", r.Hits, query, source)
	} else {
		r.Message = fmt.Sprintf("No results found for '%s' in %s", query, source)
	}
	if o.Challenge {
		r.ChallengeDetected = true
		r.Message += ". " + ChallengeMessage
	}
	return r
}
