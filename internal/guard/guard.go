// Package guard is the final stage before a response leaves the pipeline:
// every number the text asserts must be traceable to the executed rows
// within ±0.01, and every column it names must exist. It runs regardless
// of how confident the upstream model sounded.
package guard

import (
	"fmt"
	"math"
	"regexp"
	"strings"
)

// Confidence grades how well the text is grounded.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// FallbackText replaces a response that failed validation at error level.
const FallbackText = "I encountered an issue generating an accurate response. Please try rephrasing your question or asking about a different aspect of your data."

// Result is the guard's verdict.
type Result struct {
	IsValid    bool
	Warnings   []string
	Errors     []string
	Confidence Confidence
}

const tolerance = 0.01

// Validate checks the response text against the rows that produced it.
func Validate(text string, rows []map[string]any, columns []string, question string) Result {
	var res Result

	numbers := ExtractNumbers(text)
	data := dataNumbers(rows)

	if len(rows) == 0 {
		if len(numbers) > 0 && !looksLikeNoDataApology(text) {
			res.Errors = append(res.Errors, "specific numbers given for an empty result")
		}
	} else if len(numbers) > 0 {
		matched, unmatched := matchNumbers(numbers, data)
		switch {
		case matched == 0:
			res.Errors = append(res.Errors, "no number in the response appears in the data")
		case len(numbers) == 1 && len(unmatched) > 0:
			res.Errors = append(res.Errors, fmt.Sprintf("the number %v does not appear in the data", unmatched[0]))
		case len(unmatched) > 0:
			res.Warnings = append(res.Warnings, fmt.Sprintf("%d of %d numbers not found in the data", len(unmatched), len(numbers)))
		}
	}

	for _, mention := range columnMentions(text) {
		if !fuzzyColumnMatch(mention, columns) {
			res.Warnings = append(res.Warnings, fmt.Sprintf("references unknown column %q", mention))
		}
	}

	res.IsValid = len(res.Errors) == 0
	switch {
	case len(res.Errors) > 0:
		res.Confidence = ConfidenceLow
	case len(res.Warnings) > 0:
		res.Confidence = ConfidenceMedium
	default:
		res.Confidence = ConfidenceHigh
	}
	return res
}

// numberPattern covers decimals, thousand separators, currency symbols,
// percent signs and accounting parentheses. Unseparated digit runs of any
// length count too; the grouped alternative must come first so "1,200"
// is not split at the comma.
var numberPattern = regexp.MustCompile(`\(?[-$€£]{0,2}(?:\d{1,3}(?:,\d{3})+|\d+)(?:\.\d+)?%?\)?`)

// ExtractNumbers pulls every decimal number from the text, converting
// currency, percent and accounting formatting into signed floats. Matches
// embedded in identifiers (Q1, top10) are skipped.
func ExtractNumbers(text string) []float64 {
	var out []float64
	for _, loc := range numberPattern.FindAllStringIndex(text, -1) {
		start, end := loc[0], loc[1]
		if start > 0 {
			prev := text[start-1]
			if isWordByte(prev) {
				continue
			}
		}
		if end < len(text) && isWordByte(text[end]) {
			continue
		}
		if f, ok := parseFormattedNumber(text[start:end]); ok {
			out = append(out, f)
		}
	}
	return out
}

func isWordByte(b byte) bool {
	return b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}

// parseFormattedNumber strips formatting and returns the signed value.
// Accounting parentheses negate: (1,200.50) == -1200.50.
func parseFormattedNumber(s string) (float64, bool) {
	neg := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		neg = true
		s = s[1 : len(s)-1]
	}
	s = strings.TrimSuffix(s, "%")
	s = strings.TrimLeft(s, "$€£")
	if strings.HasPrefix(s, "-") {
		neg = !neg
		s = s[1:]
		s = strings.TrimLeft(s, "$€£")
	}
	s = strings.ReplaceAll(s, ",", "")
	if s == "" {
		return 0, false
	}
	var f float64
	if _, err := fmt.Sscanf(s, "%f", &f); err != nil {
		return 0, false
	}
	if neg {
		f = -f
	}
	return f, true
}

// dataNumbers builds the multiset of numeric scalars in the rows, parsing
// numeric strings too.
func dataNumbers(rows []map[string]any) []float64 {
	var out []float64
	for _, row := range rows {
		for _, v := range row {
			switch n := v.(type) {
			case float64:
				out = append(out, n)
			case float32:
				out = append(out, float64(n))
			case int:
				out = append(out, float64(n))
			case int32:
				out = append(out, float64(n))
			case int64:
				out = append(out, float64(n))
			case string:
				if f, ok := parseFormattedNumber(strings.TrimSpace(n)); ok && looksNumeric(n) {
					out = append(out, f)
				}
			}
		}
	}
	return out
}

var reNumericString = regexp.MustCompile(`^-?\$?\d{1,3}(,\d{3})*(\.\d+)?%?$|^-?\d+(\.\d+)?$`)

func looksNumeric(s string) bool {
	return reNumericString.MatchString(strings.TrimSpace(s))
}

func matchNumbers(numbers, data []float64) (matched int, unmatched []float64) {
	for _, n := range numbers {
		found := false
		for _, d := range data {
			if math.Abs(n-d) <= tolerance {
				found = true
				break
			}
		}
		if found {
			matched++
		} else {
			unmatched = append(unmatched, n)
		}
	}
	return matched, unmatched
}

var (
	reQuotedColumn  = regexp.MustCompile("[\"'`]([A-Za-z_][A-Za-z0-9_ ]{0,40})[\"'`]")
	reKeywordColumn = regexp.MustCompile(`(?i)\b(?:column|field|metric|dimension)\s+([A-Za-z_][A-Za-z0-9_]*)`)
)

// columnMentions finds identifiers the text presents as columns: quoted
// names and names following column/field/metric/dimension.
func columnMentions(text string) []string {
	seen := make(map[string]bool)
	var out []string
	add := func(name string) {
		name = strings.TrimSpace(name)
		if name == "" || seen[strings.ToLower(name)] {
			return
		}
		seen[strings.ToLower(name)] = true
		out = append(out, name)
	}
	for _, m := range reKeywordColumn.FindAllStringSubmatch(text, -1) {
		add(m[1])
	}
	for _, m := range reQuotedColumn.FindAllStringSubmatch(text, -1) {
		// Quoted prose ("no data") shouldn't count; require an
		// identifier-looking token.
		if !strings.Contains(m[1], " ") {
			add(m[1])
		}
	}
	return out
}

// fuzzyColumnMatch accepts exact case-insensitive matches and substring
// containment either way.
func fuzzyColumnMatch(mention string, columns []string) bool {
	m := strings.ToLower(mention)
	for _, col := range columns {
		c := strings.ToLower(col)
		if c == m || strings.Contains(c, m) || strings.Contains(m, c) {
			return true
		}
	}
	return false
}

var noDataPhrases = []string{
	"no data", "no rows", "nothing matched", "couldn't find", "could not find",
	"no results", "empty result",
}

func looksLikeNoDataApology(text string) bool {
	t := strings.ToLower(text)
	for _, p := range noDataPhrases {
		if strings.Contains(t, p) {
			return true
		}
	}
	return false
}
