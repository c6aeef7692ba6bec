package offshore

import (
	"strings"

	platformstrings "screener/pkg/platform/strings"
)

// DefaultChallengePhrases are substrings seen on bot-verification
// interstitials. Matching is a heuristic: a results page that happens to
// contain one of these phrases is reported as challenged.
var DefaultChallengePhrases = []string{
	"verify you are human",
	"verifying you are human",
	"human verification",
	"checking your browser",
	"just a moment",
	"security check",
	"aws waf",
	"please wait while we verify",
}

// ChallengeDetector scans markup for challenge phrases, case-insensitively.
type ChallengeDetector struct {
	phrases []string
}

// NewChallengeDetector uses DefaultChallengePhrases when phrases is empty.
func NewChallengeDetector(phrases ...string) *ChallengeDetector {
	if len(phrases) == 0 {
		phrases = DefaultChallengePhrases
	}
	return &ChallengeDetector{phrases: platformstrings.DedupeAndTrimLower(phrases)}
}

// Detect returns the first phrase found in html.
func (d *ChallengeDetector) Detect(html string) (string, bool) {
	lower := strings.ToLower(html)
	for _, p := range d.phrases {
		if strings.Contains(lower, p) {
			return p, true
		}
	}
	return "", false
}
