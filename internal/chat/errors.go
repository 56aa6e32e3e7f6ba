package chat

import "fmt"

// Kind classifies pipeline failures. Every seam the orchestrator catches
// at maps to exactly one kind; the user only ever sees the template, never
// a stack trace or a raw engine error.
type Kind string

const (
	KindSQLError       Kind = "SQL_ERROR"
	KindNoData         Kind = "NO_DATA"
	KindValidation     Kind = "VALIDATION_ERROR"
	KindMissingColumns Kind = "MISSING_COLUMNS"
	KindDataQuality    Kind = "DATA_QUALITY"
	KindTierLimit      Kind = "TIER_LIMIT"
	KindRateLimit      Kind = "RATE_LIMIT"
)

// Error carries a taxonomy kind plus the internal cause for logs.
type Error struct {
	Kind  Kind
	Cause error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Kind, e.Cause)
	}
	return string(e.Kind)
}

func (e *Error) Unwrap() error { return e.Cause }

// userTemplate is what the user reads for each kind.
var userTemplate = map[Kind]string{
	KindSQLError:       "I couldn't run that analysis against your data.",
	KindNoData:         "You don't have any data connected yet — please connect a database or upload a file to get started.",
	KindValidation:     "I couldn't turn that question into a safe analysis.",
	KindMissingColumns: "Your data is missing columns this question needs.",
	KindDataQuality:    "Your data has quality issues that prevent a reliable answer.",
	KindTierLimit:      "That analysis isn't available on your current plan.",
	KindRateLimit:      "You've hit your query limit.",
}

// nextSteps are the short suggestions appended to surfaced errors.
var nextSteps = map[Kind][]string{
	KindSQLError:   {"Try a simpler version of the question", "Check that the columns you mentioned exist in your data"},
	KindNoData:     {"Upload a CSV or Excel file", "Connect a PostgreSQL or MySQL database"},
	KindValidation: {"Rephrase the question", "Ask about one thing at a time"},
	KindTierLimit:  {"Upgrade your plan for this capability"},
	KindRateLimit:  {"Wait a little and try again", "Upgrade your plan for a higher limit"},
}

// userMessage renders the template plus next steps for a kind.
func userMessage(kind Kind, detail string) string {
	msg := userTemplate[kind]
	if detail != "" {
		msg = detail
	}
	steps := nextSteps[kind]
	if len(steps) == 0 {
		return msg
	}
	out := msg + "\n\nYou could try:"
	for _, s := range steps {
		out += "\n• " + s
	}
	return out
}
