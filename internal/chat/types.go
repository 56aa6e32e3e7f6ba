// Package chat is the orchestration core: the state machine that takes a
// user question from rate check through planning, validation, execution
// and grounding to the final assembled response.
package chat

// Request is the single logical entry point's input.
type Request struct {
	UserID               int64
	Tier                 string
	Message              string
	ConversationID       int64
	ExtendedResponses    bool
	IsSuggestionFollowup bool
	RequestID            string
	RequestChart         bool
	RequestForecast      bool
}

// Chart is the renderable chart spec attached to a response.
type Chart struct {
	Type string           `json:"type"`
	X    string           `json:"x"`
	Y    string           `json:"y"`
	Data []map[string]any `json:"data"`
}

// Meta describes how the response was produced.
type Meta struct {
	Intent       string   `json:"intent"`
	Tier         string   `json:"tier"`
	Tables       []string `json:"tables,omitempty"`
	Rows         int      `json:"rows"`
	Limited      bool     `json:"limited"`
	MetaphorUsed bool     `json:"metaphorUsed,omitempty"`
	Suggestions  []string `json:"suggestions,omitempty"`
}

// Response is what chat returns. Text is always safe to show verbatim.
type Response struct {
	Text  string `json:"text"`
	Chart *Chart `json:"chart,omitempty"`
	Meta  Meta   `json:"meta"`
}
