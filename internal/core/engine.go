package core

import (
	"time"

	"github.com/rs/zerolog"

	"nanotrade/internal/alert"
	"nanotrade/internal/book"
	"nanotrade/internal/breaker"
	"nanotrade/internal/cascade"
	"nanotrade/internal/detect"
	"nanotrade/internal/event"
	"nanotrade/internal/features"
	"nanotrade/internal/ml"
	"nanotrade/internal/observability"
	"nanotrade/internal/stats"
)

// TickEngine is the single-threaded lock-step processor. Exactly one
// event enters per tick; every component evaluates once and the policy
// and preset computed on tick N gate tick N+1.
type TickEngine struct {
	tick uint64

	book      *book.Book
	stats     *stats.Stats
	adaptive  *detect.Adaptive
	extractor *features.Extractor
	pipeline  *ml.Pipeline
	fusion    *alert.Fusion
	cascade   *cascade.Detector
	breaker   *breaker.Controller

	presetID      detect.PresetID
	preset        detect.Preset
	pendingPreset *detect.PresetID

	policy book.Policy // computed last tick, applied this tick

	logger  zerolog.Logger
	metrics *observability.Metrics

	persistChan   chan<- TickOutput
	telemetryChan chan<- TickOutput
}

// TickOutput is the per-tick output record, fanned out to persistence
// (blocking) and telemetry (non-blocking).
type TickOutput struct {
	Tick  uint64            `json:"tick"`
	Event event.MarketEvent `json:"event"`

	AlertActive   bool  `json:"alert_active"`
	AlertPriority uint8 `json:"alert_priority"`
	AlertType     uint8 `json:"alert_type"`
	AlertBitmap   uint8 `json:"alert_bitmap"`

	MatchValid bool  `json:"match_valid"`
	MatchPrice uint8 `json:"match_price"`

	MLValid      bool        `json:"ml_valid"`
	MLClass      alert.Class `json:"ml_class"`
	MLConfidence uint8       `json:"ml_confidence"`

	CascadePattern cascade.Pattern `json:"cascade_pattern"`

	CBMode   breaker.Mode `json:"cb_mode"`
	CBActive bool         `json:"cb_active"`

	Intervention *breaker.Intervention `json:"intervention,omitempty"`
}

// NewTickEngine assembles the pipeline. Both channels may be nil (the
// replay harness and tests run without fan-out); metrics may be nil too.
func NewTickEngine(
	weights *ml.Weights,
	persistChan, telemetryChan chan<- TickOutput,
	metrics *observability.Metrics,
) *TickEngine {
	e := &TickEngine{
		book:          book.New(),
		stats:         stats.New(),
		adaptive:      detect.NewAdaptive(),
		extractor:     features.New(),
		pipeline:      ml.NewPipeline(weights),
		fusion:        alert.NewFusion(),
		cascade:       cascade.New(),
		breaker:       breaker.New(),
		presetID:      detect.PresetNormal,
		preset:        detect.PresetByID(uint8(detect.PresetNormal)),
		policy:        book.OpenPolicy(),
		logger:        observability.NewLogger("core"),
		metrics:       metrics,
		persistChan:   persistChan,
		telemetryChan: telemetryChan,
	}
	return e
}

// ProcessEvent runs one tick. Numeric paths saturate instead of failing,
// so there is no error to return: every input produces an output record.
func (e *TickEngine) ProcessEvent(ev event.MarketEvent) TickOutput {
	start := time.Now()
	e.tick++

	// A preset strobed on the previous tick takes effect now.
	if e.pendingPreset != nil {
		e.presetID = *e.pendingPreset
		e.preset = detect.PresetByID(uint8(e.presetID))
		e.pendingPreset = nil
		e.logger.Info().Uint64("tick", e.tick).Stringer("preset", e.presetID).Msg("threshold preset applied")
	}
	if ev.Kind == event.KindConfig && ev.ConfigStrobe {
		p := detect.PresetID(ev.Value & 0x03)
		e.pendingPreset = &p
	}

	// Order book runs under last tick's policy.
	match := e.book.Step(ev, e.policy)

	e.stats.Tick()
	e.stats.Observe(ev)
	if match.Valid {
		e.stats.ObserveMatch()
	}

	// Threshold unit first so the detectors see this tick's (two-tick
	// delayed) output.
	price, hasPrice := e.stats.LastPrice(), ev.Kind == event.KindPrice && ev.Value != 0
	thresholds := e.adaptive.Step(price, hasPrice, e.preset)

	rule := detect.Evaluate(e.stats, thresholds)

	vec, snapped := e.extractor.Step(e.stats, e.book)
	mlRes := e.pipeline.Step(vec, snapped)
	if mlRes.Valid {
		e.fusion.Absorb(mlRes.Class)
	}

	fused := e.fusion.Combine(rule)

	cascClass, cascObserved, cascConf := e.freshEvent(rule, mlRes)
	cascAlert := e.cascade.Step(cascClass, cascObserved, cascConf)

	trigger := e.selectTrigger(rule, mlRes, cascAlert)
	policy, intervention := e.breaker.Step(e.tick, trigger)
	e.policy = policy

	out := TickOutput{
		Tick:           e.tick,
		Event:          ev,
		AlertActive:    fused.Active,
		AlertPriority:  fused.Priority,
		AlertType:      fused.Type,
		AlertBitmap:    fused.Bitmap,
		MatchValid:     match.Valid,
		MatchPrice:     match.Price,
		MLValid:        mlRes.Valid,
		MLClass:        mlRes.Class,
		MLConfidence:   mlRes.Confidence,
		CascadePattern: cascAlert.Pattern,
		CBMode:         e.breaker.Mode(),
		CBActive:       e.breaker.Active(),
		Intervention:   intervention,
	}

	if intervention != nil {
		e.logger.Warn().
			Uint64("tick", e.tick).
			Str("id", intervention.ID.String()).
			Stringer("mode", intervention.Mode).
			Stringer("class", intervention.Class).
			Str("source", intervention.Source).
			Uint16("duration", intervention.Duration).
			Msg("circuit breaker intervention")
	}

	e.emit(out)
	e.recordMetrics(ev, out, match, cascAlert, snapped, time.Since(start))
	return out
}

// freshEvent maps this tick's newly fired alert, if any, onto the
// classification the cascade detector tracks. Only fresh events count:
// a rule win on the tick it fires, an ML class on its one valid pulse.
// The held ML register never feeds the cascade history, otherwise a
// held class would refresh its own precursor age every tick and never
// expire. Rule types go through the type-to-class table, which folds
// the velocity rule and the stubs to NORMAL; rule-path events have no
// ML confidence, so they carry the preset's trigger confidence. On a
// tick with both, ties favor the rule path, matching fusion.
func (e *TickEngine) freshEvent(rule alert.Record, mlRes ml.Result) (alert.Class, bool, uint8) {
	switch {
	case rule.Any && mlRes.Valid:
		if rule.Priority >= mlRes.Class.Priority() {
			return alert.ClassOfType(rule.Type), true, e.preset.TriggerConfidence
		}
		return mlRes.Class, true, mlRes.Confidence
	case rule.Any:
		return alert.ClassOfType(rule.Type), true, e.preset.TriggerConfidence
	case mlRes.Valid:
		return mlRes.Class, true, mlRes.Confidence
	}
	return alert.ClassNormal, false, 0
}

// selectTrigger picks the strongest breaker trigger this tick. A cascade
// match carries doubled confidence and outranks everything; the
// priority-7 rule path bypasses the ML round-trip; a fresh ML result
// triggers on its own class.
func (e *TickEngine) selectTrigger(rule alert.Record, mlRes ml.Result, casc cascade.Alert) breaker.Trigger {
	if casc.Active {
		return breaker.Trigger{
			Active:     true,
			Class:      alert.ClassFlashCrash,
			Confidence: casc.Confidence,
			Source:     breaker.SourceCascade,
		}
	}
	if rule.Any && rule.Priority == 7 {
		return breaker.Trigger{
			Active:     true,
			Class:      alert.ClassFlashCrash,
			Confidence: e.preset.TriggerConfidence,
			Source:     breaker.SourceRule,
		}
	}
	if mlRes.Valid && mlRes.Class != alert.ClassNormal {
		return breaker.Trigger{
			Active:     true,
			Class:      mlRes.Class,
			Confidence: mlRes.Confidence,
			Source:     breaker.SourceML,
		}
	}
	return breaker.Trigger{}
}

// emit fans the record out. Persistence uses a blocking send so no row
// is lost; telemetry drops on a full channel.
func (e *TickEngine) emit(out TickOutput) {
	if e.persistChan != nil {
		select {
		case e.persistChan <- out:
		default:
			if e.metrics != nil {
				e.metrics.PersistBackpressure.Inc()
			}
			e.persistChan <- out
		}
	}
	if e.telemetryChan != nil {
		select {
		case e.telemetryChan <- out:
		default:
			if e.metrics != nil {
				e.metrics.TelemetryDrops.Inc()
			}
		}
	}
}

func (e *TickEngine) recordMetrics(ev event.MarketEvent, out TickOutput, match book.MatchResult, casc cascade.Alert, snapped bool, elapsed time.Duration) {
	if e.metrics == nil {
		return
	}
	m := e.metrics
	m.TicksProcessed.Inc()
	m.TickDuration.Observe(elapsed.Seconds())
	m.CurrentTick.Set(float64(out.Tick))
	m.EventsByKind.WithLabelValues(ev.Kind.String()).Inc()

	if out.MatchValid {
		m.MatchesExecuted.Inc()
	}
	if match.OrderAccepted {
		m.OrdersInserted.Inc()
	}
	if match.DropReason != "" {
		m.OrdersDropped.WithLabelValues(match.DropReason).Inc()
	}
	m.BookDepth.WithLabelValues("bid").Set(float64(e.book.BidCount()))
	m.BookDepth.WithLabelValues("ask").Set(float64(e.book.AskCount()))

	if out.AlertActive {
		m.AlertsByType.WithLabelValues(alert.TypeName(out.AlertType)).Inc()
	}
	for i := uint8(0); i < 8; i++ {
		if out.AlertBitmap&(1<<i) != 0 {
			m.AlertBitmapBits.WithLabelValues(alert.TypeName(i)).Inc()
		}
	}
	if snapped {
		m.FeatureSnapshots.Inc()
	}
	if out.MLValid {
		m.MLResults.WithLabelValues(out.MLClass.String()).Inc()
		m.MLConfidence.Observe(float64(out.MLConfidence))
	}
	if casc.Active {
		m.CascadeAlerts.WithLabelValues(casc.Pattern.String()).Inc()
	}
	m.AdaptiveSigma.Set(float64(e.adaptive.Sigma()))

	if out.Intervention != nil {
		m.Interventions.WithLabelValues(out.Intervention.Mode.String(), out.Intervention.Source).Inc()
	}
	m.BreakerMode.Set(float64(e.breaker.Mode()))
	m.BreakerCountdown.Set(float64(e.breaker.Countdown()))
	if out.CBActive {
		m.InterventionTicks.WithLabelValues(out.CBMode.String()).Inc()
	}
}

// Tick returns the number of ticks processed.
func (e *TickEngine) Tick() uint64 { return e.tick }

// Policy returns the gate the order book will apply on the next tick.
func (e *TickEngine) Policy() book.Policy { return e.policy }

// Preset returns the active threshold preset.
func (e *TickEngine) Preset() detect.PresetID { return e.presetID }
