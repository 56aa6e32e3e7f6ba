package tier

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Name identifies a subscription tier.
type Name string

const (
	Starter      Name = "starter"
	Professional Name = "professional"
	Enterprise   Name = "enterprise"
)

// Limits is the single capability record threaded through the pipeline.
// Components never branch on the tier name — only on these fields.
type Limits struct {
	Name Name

	// MaxQueriesPerHour caps non-free queries over a sliding hour.
	// Zero means unbounded; SpamWindowCap then applies per minute.
	MaxQueriesPerHour int
	SpamWindowCap     int

	MaxRows    int
	AllowJoins bool
	MaxJoins   int

	AllowCharts      bool
	AllowSuggestions bool
	AllowForecast    bool

	AllowMultiStep bool
	// MaxSubSteps caps steps in a multi-step plan. Zero means unbounded.
	MaxSubSteps int

	// SQLValidation enables the second, model-backed review of planned SQL.
	SQLValidation bool

	ExecTimeout time.Duration
}

// Defaults returns the built-in tier table.
func Defaults() map[Name]Limits {
	return map[Name]Limits{
		Starter: {
			Name:              Starter,
			MaxQueriesPerHour: 5,
			MaxRows:           100,
			AllowJoins:        false,
			MaxJoins:          0,
			AllowCharts:       false,
			AllowSuggestions:  false,
			AllowForecast:     false,
			AllowMultiStep:    false,
			MaxSubSteps:       1,
			SQLValidation:     false,
			ExecTimeout:       10 * time.Second,
		},
		Professional: {
			Name:              Professional,
			MaxQueriesPerHour: 25,
			MaxRows:           1000,
			AllowJoins:        true,
			MaxJoins:          2,
			AllowCharts:       true,
			AllowSuggestions:  true,
			AllowForecast:     false,
			AllowMultiStep:    true,
			MaxSubSteps:       3,
			SQLValidation:     true,
			ExecTimeout:       30 * time.Second,
		},
		Enterprise: {
			Name:              Enterprise,
			MaxQueriesPerHour: 0,
			SpamWindowCap:     60,
			MaxRows:           5000,
			AllowJoins:        true,
			MaxJoins:          5,
			AllowCharts:       true,
			AllowSuggestions:  true,
			AllowForecast:     true,
			AllowMultiStep:    true,
			MaxSubSteps:       0,
			SQLValidation:     true,
			ExecTimeout:       60 * time.Second,
		},
	}
}

// Lookup resolves a tier name to its limits, applying any overrides
// configured under tiers.<name>.* in viper.
func Lookup(name string) (Limits, error) {
	n := Name(strings.ToLower(strings.TrimSpace(name)))
	limits, ok := Defaults()[n]
	if !ok {
		return Limits{}, fmt.Errorf("unknown tier %q: valid tiers are starter, professional, enterprise", name)
	}
	applyOverrides(&limits, viper.GetViper())
	return limits, nil
}

// Upgrade returns the next tier up, used in rate-limit denial messages.
// Enterprise has no upgrade path.
func Upgrade(n Name) (Name, bool) {
	switch n {
	case Starter:
		return Professional, true
	case Professional:
		return Enterprise, true
	default:
		return "", false
	}
}

func applyOverrides(l *Limits, v *viper.Viper) {
	prefix := "tiers." + string(l.Name) + "."
	if v.IsSet(prefix + "max_rows") {
		l.MaxRows = v.GetInt(prefix + "max_rows")
	}
	if v.IsSet(prefix + "max_queries_per_hour") {
		l.MaxQueriesPerHour = v.GetInt(prefix + "max_queries_per_hour")
	}
	if v.IsSet(prefix + "spam_window_cap") {
		l.SpamWindowCap = v.GetInt(prefix + "spam_window_cap")
	}
	if v.IsSet(prefix + "max_joins") {
		l.MaxJoins = v.GetInt(prefix + "max_joins")
		l.AllowJoins = l.MaxJoins > 0
	}
	if v.IsSet(prefix + "exec_timeout") {
		l.ExecTimeout = v.GetDuration(prefix + "exec_timeout")
	}
}
