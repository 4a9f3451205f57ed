package replay

import (
	"sort"

	"nanotrade/internal/alert"
	"nanotrade/internal/cascade"
	"nanotrade/internal/core"
	"nanotrade/internal/event"
	"nanotrade/internal/ml"
)

// Report summarizes one replay run.
type Report struct {
	Ticks         uint64
	Fired         map[string]bool
	Interventions int
	Patterns      map[string]bool
}

// FiredSorted returns the fired alert names in stable order.
func (r Report) FiredSorted() []string {
	names := make([]string, 0, len(r.Fired))
	for n := range r.Fired {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Run drives a fresh engine through the event stream and collects every
// alert type that fired at least once, on either the rule path or the
// ML path.
func Run(weights *ml.Weights, events []event.MarketEvent) Report {
	engine := core.NewTickEngine(weights, nil, nil, nil)

	report := Report{
		Fired:    make(map[string]bool),
		Patterns: make(map[string]bool),
	}

	for _, ev := range events {
		out := engine.ProcessEvent(ev)
		report.Ticks = out.Tick

		if out.AlertActive {
			report.Fired[alert.TypeName(out.AlertType)] = true
		}
		if out.MLValid && out.MLClass != alert.ClassNormal {
			report.Fired[out.MLClass.String()] = true
		}
		if out.CascadePattern != cascade.PatternNone {
			report.Patterns[out.CascadePattern.String()] = true
		}
		if out.Intervention != nil {
			report.Interventions++
		}
	}
	return report
}

// Check compares a report against golden expectations. A golden of
// ["NONE"] demands silence: any fired alert fails the run. Otherwise
// every expected alert must have fired at least once; extra alerts are
// tolerated, matching the original checker.
func Check(expected []string, report Report) (pass bool, missing, falseAlarms []string) {
	if len(expected) == 1 && expected[0] == "NONE" {
		if len(report.Fired) == 0 {
			return true, nil, nil
		}
		return false, nil, report.FiredSorted()
	}

	for _, e := range expected {
		if !report.Fired[e] {
			missing = append(missing, e)
		}
	}
	return len(missing) == 0, missing, nil
}
