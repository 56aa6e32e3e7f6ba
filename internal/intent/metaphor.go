package intent

import "strings"

// Rewrite is a metaphor mapping: the concrete question handed to the
// planner plus the short human preface shown before the answer.
type Rewrite struct {
	Rewritten string
	Intro     string
}

// metaphorPatterns map casual or metaphorical phrasings onto concrete
// business questions. Adding a metaphor is purely additive: append an
// entry, nothing else changes.
var metaphorPatterns = []struct {
	triggers []string
	rewrite  Rewrite
}{
	{
		triggers: []string{"how's the weather", "hows the weather", "how is the weather", "business weather"},
		rewrite: Rewrite{
			Rewritten: "overview of current business performance",
			Intro:     "☀️ Let me check the business weather for you...",
		},
	},
	{
		triggers: []string{"temperature check", "take the temperature"},
		rewrite: Rewrite{
			Rewritten: "summary of recent performance trends",
			Intro:     "🌡️ Taking the temperature of your business...",
		},
	},
	{
		triggers: []string{"how are we doing", "how am i doing", "how's business", "hows business", "how is business"},
		rewrite: Rewrite{
			Rewritten: "overview of current business performance",
			Intro:     "Let me take a look at how things are going...",
		},
	},
	{
		triggers: []string{"pulse check", "check the pulse", "health check", "vital signs"},
		rewrite: Rewrite{
			Rewritten: "summary of key business metrics",
			Intro:     "🩺 Checking your business vitals...",
		},
	},
	{
		triggers: []string{"bleeding money", "burning money", "money pit"},
		rewrite: Rewrite{
			Rewritten: "areas with the highest costs or lowest performance",
			Intro:     "Let me look for where the money is going...",
		},
	},
	{
		triggers: []string{"low-hanging fruit", "low hanging fruit", "quick wins"},
		rewrite: Rewrite{
			Rewritten: "top opportunities ranked by value",
			Intro:     "🍎 Looking for the easiest wins in your data...",
		},
	},
}

// MaybeRewrite checks a message against the metaphor table. A match
// overrides irrelevant classification downstream.
func MaybeRewrite(message string) (Rewrite, bool) {
	m := normalize(message)
	for _, p := range metaphorPatterns {
		for _, t := range p.triggers {
			if strings.Contains(m, t) {
				return p.rewrite, true
			}
		}
	}
	return Rewrite{}, false
}
