// Package cascade watches the fused anomaly stream for multi-event
// sequences that historically precede liquidity collapse. A crash with a
// live precursor is treated as far more dangerous than a lone crash.
package cascade

import (
	"nanotrade/internal/alert"
	fpmath "nanotrade/internal/math"
)

// HistoryWindow is how long an anomaly stays a live precursor, in ticks.
const HistoryWindow = 64

const historyDepth = 3

type Pattern uint8

const (
	PatternNone Pattern = iota
	PatternVolCrash
	PatternSpikeCrash
	PatternStuffCrash
	PatternTriple
)

var patternNames = [...]string{
	PatternNone:       "NONE",
	PatternVolCrash:   "VOL_CRASH",
	PatternSpikeCrash: "SPIKE_CRASH",
	PatternStuffCrash: "STUFF_CRASH",
	PatternTriple:     "TRIPLE",
}

func (p Pattern) String() string {
	if int(p) < len(patternNames) {
		return patternNames[p]
	}
	return "UNKNOWN"
}

// Alert is a cascade match. Confidence is double the triggering event's
// confidence, so the resulting intervention runs twice as long.
type Alert struct {
	Active     bool
	Pattern    Pattern
	Confidence uint8
}

type entry struct {
	class alert.Class
	age   uint16
}

// Detector keeps the last three distinct anomaly classifications with
// per-entry ages. Entries expire independently after HistoryWindow ticks.
type Detector struct {
	history []entry
}

func New() *Detector {
	return &Detector{history: make([]entry, 0, historyDepth)}
}

// Step advances one tick. class/observed carry this tick's fused anomaly
// classification; confidence is the confidence attached to that event.
// A cascade alert is emitted on the same tick its crash event arrives.
func (d *Detector) Step(class alert.Class, observed bool, confidence uint8) Alert {
	d.expire()

	if !observed || class == alert.ClassNormal {
		return Alert{}
	}

	var out Alert
	if class == alert.ClassFlashCrash {
		if p := d.match(); p != PatternNone {
			out = Alert{
				Active:     true,
				Pattern:    p,
				Confidence: fpmath.ClampU8(2 * int32(confidence)),
			}
		}
	}
	d.record(class)
	return out
}

func (d *Detector) expire() {
	live := d.history[:0]
	for _, e := range d.history {
		e.age++
		if e.age <= HistoryWindow { // live through exactly 64 ticks

			live = append(live, e)
		}
	}
	d.history = live
}

// record pushes a classification, newest first. A repeat of the newest
// class refreshes its age instead of burning a history slot.
func (d *Detector) record(class alert.Class) {
	if len(d.history) > 0 && d.history[0].class == class {
		d.history[0].age = 0
		return
	}
	if len(d.history) == historyDepth {
		d.history = d.history[:historyDepth-1]
	}
	d.history = append([]entry{{class: class}}, d.history...)
}

// match classifies the incoming crash against the live precursors. Three
// distinct anomaly classes ending in a crash is the most severe pattern;
// otherwise the newest qualifying precursor names the pair.
func (d *Detector) match() Pattern {
	distinct := map[alert.Class]bool{}
	for _, e := range d.history {
		if e.class != alert.ClassFlashCrash {
			distinct[e.class] = true
		}
	}
	if len(distinct) >= 2 {
		return PatternTriple
	}
	for _, e := range d.history {
		switch e.class {
		case alert.ClassVolumeSurge:
			return PatternVolCrash
		case alert.ClassPriceSpike:
			return PatternSpikeCrash
		case alert.ClassQuoteStuffing:
			return PatternStuffCrash
		}
	}
	return PatternNone
}
