package tier

import (
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
)

func TestLookup_Defaults(t *testing.T) {
	viper.Reset()
	tests := []struct {
		name        string
		tier        string
		maxRows     int
		perHour     int
		joins       int
		timeout     time.Duration
		multiStep   bool
		validation  bool
		allowCharts bool
	}{
		{"starter", "starter", 100, 5, 0, 10 * time.Second, false, false, false},
		{"professional", "professional", 1000, 25, 2, 30 * time.Second, true, true, true},
		{"enterprise", "enterprise", 5000, 0, 5, 60 * time.Second, true, true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := Lookup(tt.tier)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if l.MaxRows != tt.maxRows {
				t.Errorf("MaxRows = %d, want %d", l.MaxRows, tt.maxRows)
			}
			if l.MaxQueriesPerHour != tt.perHour {
				t.Errorf("MaxQueriesPerHour = %d, want %d", l.MaxQueriesPerHour, tt.perHour)
			}
			if l.MaxJoins != tt.joins {
				t.Errorf("MaxJoins = %d, want %d", l.MaxJoins, tt.joins)
			}
			if l.ExecTimeout != tt.timeout {
				t.Errorf("ExecTimeout = %v, want %v", l.ExecTimeout, tt.timeout)
			}
			if l.AllowMultiStep != tt.multiStep {
				t.Errorf("AllowMultiStep = %v, want %v", l.AllowMultiStep, tt.multiStep)
			}
			if l.SQLValidation != tt.validation {
				t.Errorf("SQLValidation = %v, want %v", l.SQLValidation, tt.validation)
			}
			if l.AllowCharts != tt.allowCharts {
				t.Errorf("AllowCharts = %v, want %v", l.AllowCharts, tt.allowCharts)
			}
		})
	}
}

func TestLookup_NormalizesName(t *testing.T) {
	viper.Reset()
	l, err := Lookup("  Enterprise ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if l.Name != Enterprise {
		t.Errorf("Name = %q, want enterprise", l.Name)
	}
}

func TestLookup_UnknownTier(t *testing.T) {
	viper.Reset()
	_, err := Lookup("platinum")
	if err == nil {
		t.Fatal("expected error for unknown tier")
	}
	if !strings.Contains(err.Error(), "platinum") {
		t.Errorf("error = %v, want tier name in message", err)
	}
}

func TestLookup_ViperOverrides(t *testing.T) {
	viper.Reset()
	defer viper.Reset()
	viper.Set("tiers.starter.max_rows", 250)
	viper.Set("tiers.starter.max_joins", 1)

	l, err := Lookup("starter")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if l.MaxRows != 250 {
		t.Errorf("MaxRows = %d, want 250", l.MaxRows)
	}
	if !l.AllowJoins || l.MaxJoins != 1 {
		t.Errorf("joins = (%v, %d), want (true, 1)", l.AllowJoins, l.MaxJoins)
	}
}

func TestUpgrade(t *testing.T) {
	if next, ok := Upgrade(Starter); !ok || next != Professional {
		t.Errorf("Upgrade(starter) = (%q, %v), want professional", next, ok)
	}
	if next, ok := Upgrade(Professional); !ok || next != Enterprise {
		t.Errorf("Upgrade(professional) = (%q, %v), want enterprise", next, ok)
	}
	if _, ok := Upgrade(Enterprise); ok {
		t.Error("enterprise should have no upgrade path")
	}
}
