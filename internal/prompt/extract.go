package prompt

import (
	"regexp"
	"strings"
)

var (
	reSQLFence  = regexp.MustCompile("(?s)```sql\\s*(.+?)\\s*```")
	reJSONFence = regexp.MustCompile("(?s)```json\\s*(.+?)\\s*```")
	reAnyFence  = regexp.MustCompile("(?s)```\\s*(.+?)\\s*```")
	reMissing   = regexp.MustCompile(`(?m)^\s*--MISSING:\s*([A-Za-z_][A-Za-z0-9_]*)\s*$`)
)

// extractSQL pulls the statement out of the model reply, preferring a
// ```sql fence, then any fence, then the raw text.
func extractSQL(raw string) string {
	if m := reSQLFence.FindStringSubmatch(raw); len(m) > 1 {
		return strings.TrimSpace(m[1])
	}
	if m := reAnyFence.FindStringSubmatch(raw); len(m) > 1 {
		return strings.TrimSpace(m[1])
	}
	return strings.TrimSpace(raw)
}

// extractJSON pulls a JSON object out of the reply: fenced first, then the
// widest {...} span.
func extractJSON(raw string) string {
	if m := reJSONFence.FindStringSubmatch(raw); len(m) > 1 {
		return strings.TrimSpace(m[1])
	}
	if m := reAnyFence.FindStringSubmatch(raw); len(m) > 1 {
		candidate := strings.TrimSpace(m[1])
		if strings.HasPrefix(candidate, "{") {
			return candidate
		}
	}
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		return raw[start : end+1]
	}
	return strings.TrimSpace(raw)
}

// extractMissing strips --MISSING:<name> sentinel comments from planned
// SQL and returns the ordered, deduplicated column names.
func extractMissing(sql string) (string, []string) {
	var missing []string
	seen := make(map[string]bool)
	for _, m := range reMissing.FindAllStringSubmatch(sql, -1) {
		name := m[1]
		if !seen[name] {
			seen[name] = true
			missing = append(missing, name)
		}
	}
	cleaned := strings.TrimSpace(reMissing.ReplaceAllString(sql, ""))
	return cleaned, missing
}

func stripFences(raw string) string {
	if m := reAnyFence.FindStringSubmatch(raw); len(m) > 1 && strings.HasPrefix(strings.TrimSpace(raw), "```") {
		return m[1]
	}
	return raw
}
