package core_test

import (
	"testing"

	"nanotrade/internal/alert"
	"nanotrade/internal/breaker"
	"nanotrade/internal/cascade"
	"nanotrade/internal/core"
	"nanotrade/internal/detect"
	"nanotrade/internal/event"
	"nanotrade/internal/ml"
)

func newEngine() *core.TickEngine {
	return core.NewTickEngine(&ml.Weights{}, nil, nil, nil)
}

// warmUp feeds 8 prices and 8 volumes so the detectors come online.
func warmUp(e *core.TickEngine, price, volume uint16) {
	for i := 0; i < 8; i++ {
		e.ProcessEvent(event.NewPrice(price))
		e.ProcessEvent(event.NewVolume(volume))
	}
}

func TestIdleStreamStaysSilent(t *testing.T) {
	e := newEngine()
	for i := 0; i < 1000; i++ {
		out := e.ProcessEvent(event.NewIdle())
		if out.AlertActive || out.MatchValid || out.CBActive {
			t.Fatalf("tick %d: idle stream produced activity: %+v", out.Tick, out)
		}
	}
}

func TestCrossingOrdersMatchAtAsk(t *testing.T) {
	e := newEngine()
	e.ProcessEvent(event.NewBuy(20))
	out := e.ProcessEvent(event.NewSell(10))
	if !out.MatchValid || out.MatchPrice != 10 {
		t.Fatalf("want match at 10, got %+v", out)
	}
	// One-tick pulse.
	if out = e.ProcessEvent(event.NewIdle()); out.MatchValid {
		t.Error("match_valid held past its tick")
	}
}

func TestFlashCrashTriggersPauseFor120Ticks(t *testing.T) {
	e := newEngine()
	warmUp(e, 100, 100)

	out := e.ProcessEvent(event.NewPrice(40))
	if !out.AlertActive || out.AlertType != alert.TypeFlashCrash || out.AlertPriority != 7 {
		t.Fatalf("crash not detected: %+v", out)
	}
	if out.CBMode != breaker.ModePause || !out.CBActive {
		t.Fatalf("crash did not pause: %+v", out)
	}
	if out.Intervention == nil || out.Intervention.Source != breaker.SourceRule {
		t.Fatalf("want rule-path intervention, got %+v", out.Intervention)
	}
	// Normal preset trigger confidence 60 doubles into a 120-tick pause.
	if out.Intervention.Duration != 120 {
		t.Fatalf("duration = %d, want 120", out.Intervention.Duration)
	}

	// Price recovers; the breaker must still run its full countdown.
	for i := 0; i < 119; i++ {
		out = e.ProcessEvent(event.NewPrice(100))
		if out.CBMode != breaker.ModePause {
			t.Fatalf("pause released after %d ticks", i+1)
		}
	}
	out = e.ProcessEvent(event.NewPrice(100))
	if out.CBActive || out.CBMode != breaker.ModeNormal {
		t.Errorf("breaker did not self-heal: %+v", out)
	}
}

func TestPausePolicyFreezesBookNextTick(t *testing.T) {
	e := newEngine()
	warmUp(e, 100, 100)
	e.ProcessEvent(event.NewPrice(40)) // pause latched, policy lands next tick

	// Deep crossing during the pause: nothing inserts, nothing matches.
	e.ProcessEvent(event.NewBuy(50))
	out := e.ProcessEvent(event.NewSell(1))
	if out.MatchValid {
		t.Fatal("match executed through a paused book")
	}
	if pol := e.Policy(); pol.AllowOrder || pol.AllowMatch {
		t.Errorf("policy = %+v during pause", pol)
	}
}

func TestLatchOnceDuringPause(t *testing.T) {
	e := newEngine()
	warmUp(e, 100, 100)
	first := e.ProcessEvent(event.NewPrice(40))
	if first.Intervention == nil {
		t.Fatal("no intervention on crash")
	}

	// A second, deeper crash mid-pause must not produce a new record.
	for i := 0; i < 10; i++ {
		e.ProcessEvent(event.NewPrice(100))
	}
	out := e.ProcessEvent(event.NewPrice(5))
	if out.Intervention != nil {
		t.Errorf("second crash re-latched: %+v", out.Intervention)
	}
	if out.CBMode != breaker.ModePause {
		t.Errorf("mode = %v, want original Pause", out.CBMode)
	}
}

func TestSurgeThenCrashEscalatesThroughCascade(t *testing.T) {
	e := newEngine()
	warmUp(e, 100, 100)

	out := e.ProcessEvent(event.NewVolume(1000))
	if !out.AlertActive || out.AlertType != alert.TypeVolumeSurge {
		t.Fatalf("surge not detected: %+v", out)
	}
	if out.CBActive {
		t.Fatalf("surge alone must not intervene: %+v", out)
	}

	out = e.ProcessEvent(event.NewPrice(40))
	if out.CascadePattern != cascade.PatternVolCrash {
		t.Fatalf("cascade pattern = %v, want VOL_CRASH", out.CascadePattern)
	}
	if out.Intervention == nil || out.Intervention.Source != breaker.SourceCascade {
		t.Fatalf("want cascade intervention, got %+v", out.Intervention)
	}
	// Doubled confidence: 2 x (2 x 60) ticks of pause.
	if out.Intervention.Duration != 240 {
		t.Errorf("duration = %d, want 240", out.Intervention.Duration)
	}
}

func TestStaleMLPrecursorDoesNotEscalateCrash(t *testing.T) {
	// Rig the classifier so every inference emits VOLUME_SURGE: with a
	// zero hidden layer the output logits are the biases, so class 2
	// wins with confidence (30000-0)>>8.
	w := &ml.Weights{}
	w.B2[2] = 30000
	e := core.NewTickEngine(w, nil, nil, nil)
	warmUp(e, 100, 100)

	// Quiet prices through the first snapshot (tick 256) and its result
	// four ticks later. The surge pulse lands as a cascade precursor and
	// stays held in the fusion register from then on.
	sawSurge := false
	for e.Tick() < 400 {
		out := e.ProcessEvent(event.NewPrice(100))
		if out.MLValid {
			if out.MLClass != alert.ClassVolumeSurge {
				t.Fatalf("tick %d: rigged weights classified %v", out.Tick, out.MLClass)
			}
			sawSurge = true
		}
	}
	if !sawSurge {
		t.Fatal("no ml pulse before tick 400, precursor never recorded")
	}

	// Crash at tick 401, 141 ticks after the surge pulse. The precursor
	// expired at tick 324; only the held register still remembers it,
	// and the held register must not feed the cascade history.
	out := e.ProcessEvent(event.NewPrice(40))
	if out.CascadePattern != cascade.PatternNone {
		t.Fatalf("cascade fired %v for a precursor 141 ticks old", out.CascadePattern)
	}
	if out.Intervention == nil || out.Intervention.Source != breaker.SourceRule {
		t.Fatalf("want plain rule-path intervention, got %+v", out.Intervention)
	}
	if out.Intervention.Duration != 120 {
		t.Errorf("duration = %d, want the undoubled 120", out.Intervention.Duration)
	}
}

func TestFreshMLPrecursorEscalatesCrash(t *testing.T) {
	w := &ml.Weights{}
	w.B2[2] = 30000
	e := core.NewTickEngine(w, nil, nil, nil)
	warmUp(e, 100, 100)

	for e.Tick() < 300 {
		e.ProcessEvent(event.NewPrice(100))
	}
	// 41 ticks after the surge pulse at tick 260: still a live precursor.
	out := e.ProcessEvent(event.NewPrice(40))
	if out.CascadePattern != cascade.PatternVolCrash {
		t.Fatalf("cascade pattern = %v, want VOL_CRASH", out.CascadePattern)
	}
	if out.Intervention == nil || out.Intervention.Source != breaker.SourceCascade {
		t.Fatalf("want cascade intervention, got %+v", out.Intervention)
	}
}

func TestConfigPresetAppliesNextTick(t *testing.T) {
	e := newEngine()
	e.ProcessEvent(event.NewConfig(uint16(detect.PresetDemo)))
	if e.Preset() != detect.PresetNormal {
		t.Fatalf("preset changed on the strobe tick: %v", e.Preset())
	}
	e.ProcessEvent(event.NewIdle())
	if e.Preset() != detect.PresetDemo {
		t.Errorf("preset = %v after strobe+1, want demo", e.Preset())
	}
}

func TestMLResultArrivesFourTicksAfterSnapshot(t *testing.T) {
	e := newEngine()
	for i := 1; i <= 259; i++ {
		if out := e.ProcessEvent(event.NewIdle()); out.MLValid {
			t.Fatalf("ml_valid at tick %d, snapshot cadence broken", out.Tick)
		}
	}
	out := e.ProcessEvent(event.NewIdle())
	if !out.MLValid {
		t.Fatal("no ml result at tick 260 (snapshot at 256 + 4-tick pipeline)")
	}
	if out.MLClass != alert.ClassNormal {
		t.Errorf("quiet stream classified as %v", out.MLClass)
	}
	if out = e.ProcessEvent(event.NewIdle()); out.MLValid {
		t.Error("ml_valid held past one tick")
	}
}

func TestOneSidedOrderFloodRaisesImbalance(t *testing.T) {
	e := newEngine()
	warmUp(e, 100, 50)

	for i := 0; i < 15; i++ {
		e.ProcessEvent(event.NewBuy(10))
	}
	out := e.ProcessEvent(event.NewSell(1))
	if !out.AlertActive || out.AlertType != alert.TypeOrderImbalance {
		t.Fatalf("15 buys vs 1 sell should flag ORDER_IMBALANCE, got %+v", out)
	}
	if out.AlertPriority != 4 {
		t.Errorf("imbalance priority = %d, want 4", out.AlertPriority)
	}
}

func TestTelemetryChannelDropsWhenFull(t *testing.T) {
	persist := make(chan core.TickOutput, 16)
	telemetry := make(chan core.TickOutput, 1)
	e := core.NewTickEngine(&ml.Weights{}, persist, telemetry, nil)

	for i := 0; i < 10; i++ {
		e.ProcessEvent(event.NewIdle())
		<-persist // drain the blocking channel
	}
	if len(telemetry) != 1 {
		t.Errorf("telemetry len = %d, want 1 (drops are silent)", len(telemetry))
	}
}
