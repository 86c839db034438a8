package decide

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ParseMode selects how strictly judge output is interpreted.
type ParseMode string

const (
	// ParseStrict fails on output without a Percentile line.
	ParseStrict ParseMode = "strict"
	// ParseLenient defaults a missing score to 0.
	ParseLenient ParseMode = "lenient"
)

// ParseParseMode converts a config value into a ParseMode.
func ParseParseMode(s string) (ParseMode, error) {
	switch ParseMode(strings.ToLower(strings.TrimSpace(s))) {
	case ParseStrict, "":
		return ParseStrict, nil
	case ParseLenient:
		return ParseLenient, nil
	}
	return "", fmt.Errorf("unknown parse mode %q", s)
}

const rejectMarker = "Rejected"

var percentileRe = regexp.MustCompile(`(?i)Percentile:\s*(\d+)`)

// MalformedResponseError carries judge output that could not be parsed.
type MalformedResponseError struct {
	Raw    string
	Reason string
}

func (e *MalformedResponseError) Error() string {
	return "malformed judge response: " + e.Reason
}

// Verdict is the structured reading of one judge reply.
type Verdict struct {
	Quote    string
	Approved bool
	Score    int
	// ScoreFound is false when lenient parsing defaulted the score.
	ScoreFound bool
}

// Parse reads approval and score out of judge output. A reply is a rejection
// iff its trimmed text starts with "Rejected"; the score is the first
// "Percentile: N" found anywhere in the text, clamped to 0..100. Any mode
// other than ParseLenient, the zero value included, parses strictly.
func Parse(text string, mode ParseMode) (Verdict, error) {
	strict := mode != ParseLenient
	trimmed := strings.TrimSpace(text)
	if trimmed == "" && strict {
		return Verdict{}, &MalformedResponseError{Raw: text, Reason: "empty output"}
	}

	v := Verdict{
		Quote:    text,
		Approved: !strings.HasPrefix(trimmed, rejectMarker),
	}

	m := percentileRe.FindStringSubmatch(text)
	if m == nil {
		if strict {
			return Verdict{}, &MalformedResponseError{Raw: text, Reason: "no Percentile line"}
		}
		return v, nil
	}

	n, err := strconv.Atoi(m[1])
	if err != nil {
		// Only overflow gets here; the pattern guarantees digits.
		n = 100
	}
	v.Score = clampScore(n)
	v.ScoreFound = true
	return v, nil
}

func clampScore(n int) int {
	if n < 0 {
		return 0
	}
	if n > 100 {
		return 100
	}
	return n
}
