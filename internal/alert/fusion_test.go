package alert_test

import (
	"nanotrade/internal/alert"
	"testing"
)

func TestFusionHoldsMLClassUntilSuperseded(t *testing.T) {
	f := alert.NewFusion()
	f.Absorb(alert.ClassVolumeSurge)

	// Hundreds of quiet ticks later the held class still raises the alert.
	for i := 0; i < 500; i++ {
		c := f.Combine(alert.Record{})
		if !c.Active || c.Type != alert.TypeVolumeSurge {
			t.Fatalf("tick %d: held class dropped: %+v", i, c)
		}
	}

	f.Absorb(alert.ClassNormal)
	if c := f.Combine(alert.Record{}); c.Active {
		t.Errorf("NORMAL supersession should clear the alert, got %+v", c)
	}
}

func TestFusionRuleWinsTies(t *testing.T) {
	f := alert.NewFusion()
	// FLASH_CRASH from the ML side: priority 7.
	f.Absorb(alert.ClassFlashCrash)

	// A rule alert at the same priority must own the type field.
	rule := alert.Record{Any: true, Priority: 7, Type: alert.TypeFlashCrash, Bitmap: 1 << alert.TypeFlashCrash}
	c := f.Combine(rule)
	if c.Type != alert.TypeFlashCrash || c.Priority != 7 {
		t.Errorf("tie should favor the rule path: %+v", c)
	}
}

func TestFusionHigherMLPriorityWins(t *testing.T) {
	f := alert.NewFusion()
	f.Absorb(alert.ClassFlashCrash) // priority 7

	rule := alert.Record{Any: true, Priority: 5, Type: alert.TypeVolumeSurge, Bitmap: 1 << alert.TypeVolumeSurge}
	c := f.Combine(rule)
	if c.Type != alert.TypeFlashCrash || c.Priority != 7 {
		t.Errorf("ml priority 7 should outrank rule priority 5: %+v", c)
	}
	if c.Bitmap != rule.Bitmap {
		t.Errorf("bitmap must pass through the rule detectors untouched: %08b", c.Bitmap)
	}
}

func TestClassPriorities(t *testing.T) {
	want := map[alert.Class]uint8{
		alert.ClassNormal:         0,
		alert.ClassPriceSpike:     6,
		alert.ClassVolumeSurge:    5,
		alert.ClassFlashCrash:     7,
		alert.ClassOrderImbalance: 4,
		alert.ClassQuoteStuffing:  3,
	}
	for class, p := range want {
		if class.Priority() != p {
			t.Errorf("%v priority = %d, want %d", class, class.Priority(), p)
		}
	}
}
