// Package sqlcheck statically validates planner-generated SQL before
// anything touches a backend. The deterministic layer is textual —
// whole-token keyword rules, injection patterns, LIMIT enforcement — and a
// Vitess parse confirms the statement shape and extracts referenced tables
// when the dialect allows. Validation is a pure function over text;
// execution assumes only what it guarantees.
package sqlcheck

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"vitess.io/vitess/go/vt/sqlparser"

	"github.com/asklens/asklens/internal/tier"
)

// Cost is a coarse execution-cost estimate.
type Cost string

const (
	CostLow    Cost = "low"
	CostMedium Cost = "medium"
	CostHigh   Cost = "high"
)

// Report is the validation outcome. EnhancedSQL is the possibly-rewritten
// statement every later stage must use; re-validating it is a no-op.
type Report struct {
	IsValid       bool
	Warnings      []string
	Errors        []string
	EstimatedCost Cost
	EnhancedSQL   string
	// Tables referenced by the statement, when the AST pass could
	// resolve them.
	Tables []string
}

// forbiddenKeywords are rejected as whole tokens, case-insensitively. The
// list covers every write, DDL and control statement a read-only gateway
// must never emit.
var forbiddenKeywords = []string{
	"INSERT", "UPDATE", "DELETE", "DROP", "CREATE", "ALTER", "TRUNCATE",
	"EXEC", "EXECUTE", "GRANT", "REVOKE", "PRAGMA", "CALL", "RENAME", "REPLACE",
}

var (
	reLeadingLineComment  = regexp.MustCompile(`^\s*--[^\n]*\n`)
	reLeadingBlockComment = regexp.MustCompile(`^\s*/\*.*?\*/`)
	reForbidden           = regexp.MustCompile(`(?i)\b(` + strings.Join(forbiddenKeywords, "|") + `)\b`)
	reSemicolonComment    = regexp.MustCompile(`;\s*--`)
	reTrailingComment     = regexp.MustCompile(`--[^\n]*$`)
	reBlockComment        = regexp.MustCompile(`(?s)/\*.*?\*/`)
	reUnionSelect         = regexp.MustCompile(`(?i)\bUNION\s+(ALL\s+)?SELECT\b`)
	reTautology           = regexp.MustCompile(`(?i)'1'\s*=\s*'1'`)
	reLimit               = regexp.MustCompile(`(?i)\bLIMIT\s+(\d+)\b`)
	reJoin                = regexp.MustCompile(`(?i)\bJOIN\b`)
	reSelectStar          = regexp.MustCompile(`(?i)\bSELECT\s+\*`)
	reSelect              = regexp.MustCompile(`(?i)\bSELECT\b`)
)

var (
	parserOnce sync.Once
	astParser  *sqlparser.Parser
)

func parser() *sqlparser.Parser {
	parserOnce.Do(func() {
		// Options zero value is fine for parsing SELECTs; errors here
		// only occur for invalid option combinations.
		astParser, _ = sqlparser.New(sqlparser.Options{})
	})
	return astParser
}

// Validate applies the safety rules in order and returns both the verdict
// and the enhanced SQL. It never performs I/O.
func Validate(sql string, limits tier.Limits) Report {
	rep := Report{EstimatedCost: CostLow, EnhancedSQL: strings.TrimSpace(sql)}

	if limits.MaxRows <= 0 {
		rep.Errors = append(rep.Errors, "invalid tier configuration: max rows must be positive")
		return rep
	}
	if rep.EnhancedSQL == "" {
		rep.Errors = append(rep.Errors, "empty statement")
		return rep
	}

	// Rule 1: must start with SELECT or WITH after leading comments.
	head := stripLeadingComments(rep.EnhancedSQL)
	upper := strings.ToUpper(head)
	if !strings.HasPrefix(upper, "SELECT") && !strings.HasPrefix(upper, "WITH") {
		rep.Errors = append(rep.Errors, "only SELECT statements are allowed")
		return rep
	}

	// Rule 2: must read from somewhere.
	if !regexp.MustCompile(`(?i)\bFROM\b`).MatchString(head) {
		rep.Errors = append(rep.Errors, "statement has no FROM clause")
	}

	// Rule 3: forbidden keywords as whole tokens anywhere in the text.
	if m := reForbidden.FindString(head); m != "" {
		rep.Errors = append(rep.Errors, fmt.Sprintf("forbidden keyword %s", strings.ToUpper(m)))
	}

	// Rule 4: injection patterns.
	rep.Errors = append(rep.Errors, injectionErrors(head, limits)...)

	if len(rep.Errors) > 0 {
		return rep
	}

	// Rule 5: exactly one enforced LIMIT ≤ the tier cap.
	enhanced, limitWarning := enforceLimit(rep.EnhancedSQL, limits.MaxRows)
	rep.EnhancedSQL = enhanced
	if limitWarning != "" {
		rep.Warnings = append(rep.Warnings, limitWarning)
	}

	// Rule 6: JOIN policy.
	joins := len(reJoin.FindAllString(head, -1))
	if joins > 0 && !limits.AllowJoins {
		rep.Errors = append(rep.Errors, "joins are not available on this plan")
	} else if limits.AllowJoins && joins > limits.MaxJoins {
		rep.Errors = append(rep.Errors, fmt.Sprintf("query uses %d joins; plan allows %d", joins, limits.MaxJoins))
	}

	// Rule 7: cost heuristic.
	rep.EstimatedCost = estimateCost(head, joins)

	// AST pass: when the statement parses, confirm it is a SELECT-shaped
	// statement and collect referenced tables. Planner output aimed at
	// Postgres may use syntax the MySQL-dialect parser rejects; that
	// downgrades to a warning because the textual rules already ran.
	if tables, selectShaped, parsed := inspectAST(rep.EnhancedSQL); parsed {
		if !selectShaped {
			rep.Errors = append(rep.Errors, "statement is not a SELECT")
		}
		rep.Tables = tables
	} else {
		rep.Warnings = append(rep.Warnings, "statement not parseable as MySQL dialect; textual rules applied")
	}

	rep.IsValid = len(rep.Errors) == 0
	return rep
}

func stripLeadingComments(sql string) string {
	for {
		trimmed := strings.TrimSpace(sql)
		if m := reLeadingLineComment.FindString(trimmed + "\n"); m != "" && strings.HasPrefix(trimmed, "--") {
			idx := strings.IndexByte(trimmed, '\n')
			if idx < 0 {
				return ""
			}
			sql = trimmed[idx+1:]
			continue
		}
		if loc := reLeadingBlockComment.FindStringIndex(trimmed); loc != nil && loc[0] == 0 {
			sql = trimmed[loc[1]:]
			continue
		}
		return trimmed
	}
}

func injectionErrors(sql string, limits tier.Limits) []string {
	var errs []string
	if reSemicolonComment.MatchString(sql) {
		errs = append(errs, "statement terminator followed by comment")
	}
	if reTrailingComment.MatchString(strings.TrimSpace(sql)) {
		errs = append(errs, "trailing comment")
	}
	// Block comments anywhere past the statement head can hide a second
	// statement; the leading ones were already stripped.
	if reBlockComment.MatchString(sql) {
		errs = append(errs, "block comment inside statement")
	}
	if limits.MaxJoins == 0 && reUnionSelect.MatchString(sql) {
		errs = append(errs, "UNION SELECT is not available on this plan")
	}
	if reTautology.MatchString(sql) {
		errs = append(errs, "tautological predicate")
	}
	return errs
}

// enforceLimit appends a LIMIT when no outer one exists and rewrites an
// outer one above the cap. The rewrite is idempotent: running it over its
// own output changes nothing.
func enforceLimit(sql string, maxRows int) (string, string) {
	outer := outermostLimit(sql)
	if outer == nil {
		return strings.TrimRight(sql, "; \t\n") + fmt.Sprintf(" LIMIT %d", maxRows), ""
	}
	n, err := strconv.Atoi(sql[outer[2]:outer[3]])
	if err != nil || n <= maxRows {
		return sql, ""
	}
	rewritten := sql[:outer[2]] + strconv.Itoa(maxRows) + sql[outer[3]:]
	return rewritten, fmt.Sprintf("row limit reduced from %d to the plan cap of %d", n, maxRows)
}

// outermostLimit returns the last LIMIT at parenthesis depth zero. A LIMIT
// inside a subquery does not bound the outer statement.
func outermostLimit(sql string) []int {
	matches := reLimit.FindAllStringSubmatchIndex(sql, -1)
	for i := len(matches) - 1; i >= 0; i-- {
		if parenDepth(sql[:matches[i][0]]) == 0 {
			return matches[i]
		}
	}
	return nil
}

func parenDepth(s string) int {
	depth := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
		}
	}
	return depth
}

func estimateCost(sql string, joins int) Cost {
	score := 0
	if reSelectStar.MatchString(sql) {
		score++
	}
	if len(reSelect.FindAllString(sql, -1)) > 1 {
		score++ // subqueries or CTE bodies
	}
	if joins >= 2 {
		score++
	}
	switch {
	case score >= 2:
		return CostHigh
	case score == 1:
		return CostMedium
	default:
		return CostLow
	}
}

// inspectAST parses the statement and walks it for table names. Returns
// parsed=false when the dialect doesn't parse.
func inspectAST(sql string) (tables []string, selectShaped bool, parsed bool) {
	p := parser()
	if p == nil {
		return nil, false, false
	}
	stmt, err := p.Parse(sql)
	if err != nil {
		return nil, false, false
	}
	_, selectShaped = stmt.(sqlparser.SelectStatement)

	seen := make(map[string]bool)
	_ = sqlparser.Walk(func(node sqlparser.SQLNode) (bool, error) {
		if tn, ok := node.(sqlparser.TableName); ok {
			name := tn.Name.String()
			if name != "" && !seen[name] {
				seen[name] = true
				tables = append(tables, name)
			}
		}
		return true, nil
	}, stmt)
	return tables, selectShaped, true
}

// LimitOf extracts the outermost LIMIT from a validated statement. Used by
// the file execution path, which honors the limit as a bounded row scan.
func LimitOf(sql string, fallback int) int {
	matches := reLimit.FindAllStringSubmatch(sql, -1)
	if len(matches) == 0 {
		return fallback
	}
	n, err := strconv.Atoi(matches[len(matches)-1][1])
	if err != nil {
		return fallback
	}
	return n
}
