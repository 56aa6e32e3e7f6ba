// Package intent routes incoming messages without any model call: keyword
// tables decide between data questions, product questions and off-topic
// chatter, and a separate pattern set rewrites business metaphors into
// concrete analytical questions.
package intent

import (
	"strings"
)

// Intent classifies what the user is asking for.
type Intent string

const (
	DataQuery  Intent = "data_query"
	FAQProduct Intent = "faq_product"
	Irrelevant Intent = "irrelevant"
)

// faqPhrases mark questions about the product itself rather than the data.
var faqPhrases = []string{
	"pricing", "price", "how much does", "subscription", "billing",
	"upgrade my plan", "which plan", "what plan", "cancel my",
	"what can you do", "how do i upload", "how do i connect",
	"supported database", "what file formats", "free trial",
}

// irrelevantPhrases require an explicit off-topic marker. Anything not
// matched here defaults to a data query — false negatives are cheaper than
// refusing a legitimate business question.
var irrelevantPhrases = []string{
	"capital of", "recipe for", "weather in", "who won the",
	"write a poem", "write me a poem", "tell me a joke",
	"meaning of life", "translate this", "translate the",
	"what year did", "who is the president", "lyrics to",
	"how do i cook", "movie recommendation",
}

// Classify routes a message to one of the three intents. Tokenized and
// lowercased lookup only; deterministic and free of I/O.
func Classify(message string) Intent {
	m := normalize(message)
	if m == "" {
		return Irrelevant
	}
	for _, p := range irrelevantPhrases {
		if strings.Contains(m, p) {
			return Irrelevant
		}
	}
	for _, p := range faqPhrases {
		if strings.Contains(m, p) {
			return FAQProduct
		}
	}
	return DataQuery
}

// FAQAnswer returns a canned product answer for faq_product messages.
// No model call is made on this branch.
func FAQAnswer(message string) string {
	m := normalize(message)
	switch {
	case containsAny(m, "pricing", "price", "how much does", "subscription", "billing", "plan"):
		return "asklens offers three plans: starter (5 queries/hour, 100-row results), " +
			"professional (25 queries/hour, charts, multi-step analysis) and enterprise " +
			"(unlimited queries, forecasting, 5,000-row results). You can change plans any time from your account page."
	case containsAny(m, "upload", "file formats"):
		return "You can upload CSV or Excel files from the sources page; each file becomes a queryable table named after the file."
	case containsAny(m, "connect", "supported database"):
		return "asklens connects read-only to PostgreSQL and MySQL. Add a connection from the sources page; credentials are stored encrypted."
	default:
		return "asklens answers questions about your connected data in plain language. " +
			"Upload a file or connect a database, then just ask — for example \"what were my top products last month?\"."
	}
}

func normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
