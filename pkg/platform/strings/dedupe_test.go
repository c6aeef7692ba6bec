package strings

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDedupeAndTrim(t *testing.T) {
	tests := []struct {
		name     string
		input    []string
		expected []string
	}{
		{"nil slice", nil, nil},
		{"empty slice", []string{}, []string{}},
		{"trims brokers", []string{" a:9092", "b:9092 "}, []string{"a:9092", "b:9092"}},
		{"drops repeats keeping order", []string{"b:9092", "a:9092", "b:9092"}, []string{"b:9092", "a:9092"}},
		{"drops blanks", []string{"a:9092", "", "  "}, []string{"a:9092"}},
		{"keeps case", []string{"Just a moment", "just a moment"}, []string{"Just a moment", "just a moment"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DedupeAndTrim(tt.input))
		})
	}
}

func TestDedupeAndTrimLower(t *testing.T) {
	assert.Nil(t, DedupeAndTrimLower(nil))
	assert.Equal(t,
		[]string{"just a moment", "aws waf"},
		DedupeAndTrimLower([]string{"  Just a Moment ", "AWS WAF", "just a moment", ""}),
	)
}

func TestSplitList(t *testing.T) {
	assert.Nil(t, SplitList(""))
	assert.Nil(t, SplitList("   "))
	assert.Equal(t, []string{"a:9092", "b:9092"}, SplitList("a:9092, b:9092,,a:9092"))
}
