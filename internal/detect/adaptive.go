package detect

import (
	fpmath "nanotrade/internal/math"
)

const (
	adaptiveShift      = 6 // effective window of ~64 samples
	adaptiveMinSamples = 64

	spikeSigmaMult = 3
	spikeFloor     = 10
	flashSigmaMult = 4
	flashFloor     = 15
)

// Adaptive derives spike/flash thresholds from an online mean/variance
// estimate of the price stream. Both accumulators use a shift-divide
// exponential update so the math stays in integers. Outputs lag the
// price input by two ticks; until 64 samples have arrived, or while
// override is set, the active preset's static thresholds are served.
type Adaptive struct {
	meanQ6   int32  // running mean, scaled by 64
	variance uint32 // running mean squared deviation
	samples  uint16
	override bool

	// two-stage delay line for the computed thresholds
	delay [2]Thresholds
}

func NewAdaptive() *Adaptive {
	return &Adaptive{}
}

// SetOverride forces static preset thresholds regardless of sample count.
func (a *Adaptive) SetOverride(on bool) {
	a.override = on
}

// Step advances the unit by one tick. hasPrice marks ticks that carried a
// real price sample; idle ticks still advance the delay line so latency
// stays fixed at two ticks.
func (a *Adaptive) Step(price uint16, hasPrice bool, preset Preset) Thresholds {
	if hasPrice {
		a.observe(price)
	}

	out := a.delay[1]
	a.delay[1] = a.delay[0]
	a.delay[0] = a.compute(preset)

	if a.override || a.samples < adaptiveMinSamples {
		return preset.Thresholds()
	}
	return out
}

func (a *Adaptive) observe(price uint16) {
	if a.samples < 0xFFFF {
		a.samples++
	}
	err := int32(price)<<adaptiveShift - a.meanQ6
	a.meanQ6 += err >> adaptiveShift

	dev := int32(price) - a.meanQ6>>adaptiveShift
	sq := dev * dev
	a.variance = uint32(int32(a.variance) + (sq-int32(a.variance))>>adaptiveShift)
}

func (a *Adaptive) compute(preset Preset) Thresholds {
	sigma := fpmath.SigmaFromVariance(a.variance)
	spike := uint16(spikeSigmaMult) * sigma
	if spike < spikeFloor {
		spike = spikeFloor
	}
	flash := uint16(flashSigmaMult) * sigma
	if flash < flashFloor {
		flash = flashFloor
	}
	return Thresholds{Spike: spike, Flash: flash, VolFloor: preset.VolFloor}
}

// Sigma exposes the current sigma estimate for telemetry.
func (a *Adaptive) Sigma() uint16 {
	return fpmath.SigmaFromVariance(a.variance)
}

// Samples reports how many price samples the estimator has absorbed.
func (a *Adaptive) Samples() uint16 {
	return a.samples
}
