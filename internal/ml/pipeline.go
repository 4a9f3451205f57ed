// Package ml runs the fixed-point two-layer classifier over feature
// vectors. All arithmetic is integer-only: int16 weights, int32
// accumulators, 8-bit activations.
package ml

import (
	"nanotrade/internal/alert"
	"nanotrade/internal/features"
	fpmath "nanotrade/internal/math"
)

const (
	InputSize  = 16
	HiddenSize = 8
	NumClasses = 6
)

// Weights holds the quantized parameters, scaler already folded into the
// first layer by the training pipeline.
type Weights struct {
	W1 [InputSize][HiddenSize]int16
	B1 [HiddenSize]int16
	W2 [HiddenSize][NumClasses]int16
	B2 [NumClasses]int16
}

// Result is one classification. Valid pulses for a single tick, exactly
// four ticks after the feature vector that produced it.
type Result struct {
	Class      alert.Class
	Confidence uint8
	Valid      bool
}

// Pipeline is a four-stage shift register: latch, hidden layer, output
// layer, classify. One stage advances per tick regardless of input, so
// latency is constant and back-to-back vectors stream without stalls.
type Pipeline struct {
	weights *Weights

	latched     features.Vector
	latchValid  bool
	hidden      [HiddenSize]uint8
	hiddenValid bool
	logits      [NumClasses]int32
	logitsValid bool
	result      Result
}

func NewPipeline(w *Weights) *Pipeline {
	return &Pipeline{weights: w}
}

// Step advances the pipeline one tick. v is consumed only when valid is
// true. Stages are drained back to front so each register holds its
// previous tick's value while the next stage reads it.
func (p *Pipeline) Step(v features.Vector, valid bool) Result {
	out := p.result

	p.result = Result{}
	if p.logitsValid {
		p.result = classify(p.logits)
	}

	p.logitsValid = p.hiddenValid
	if p.hiddenValid {
		p.logits = p.outputLayer(p.hidden)
	}

	p.hiddenValid = p.latchValid
	if p.latchValid {
		p.hidden = p.hiddenLayer(p.latched)
	}

	p.latchValid = valid
	if valid {
		p.latched = v
	}

	return out
}

func (p *Pipeline) hiddenLayer(v features.Vector) [HiddenSize]uint8 {
	var h [HiddenSize]uint8
	for j := 0; j < HiddenSize; j++ {
		acc := int32(p.weights.B1[j])
		for i := 0; i < InputSize; i++ {
			acc += int32(v[i]) * int32(p.weights.W1[i][j])
		}
		if acc < 0 { // ReLU
			acc = 0
		}
		h[j] = fpmath.ClampU8(acc >> 8)
	}
	return h
}

func (p *Pipeline) outputLayer(h [HiddenSize]uint8) [NumClasses]int32 {
	var logits [NumClasses]int32
	for c := 0; c < NumClasses; c++ {
		acc := int32(p.weights.B2[c])
		for j := 0; j < HiddenSize; j++ {
			acc += int32(h[j]) * int32(p.weights.W2[j][c])
		}
		logits[c] = acc
	}
	return logits
}

// classify picks the argmax class. Ties keep the lowest class index, so
// an all-equal output degrades to NORMAL. Confidence is the scaled gap
// between the best and worst logits.
func classify(logits [NumClasses]int32) Result {
	best, min, max := 0, logits[0], logits[0]
	for c := 1; c < NumClasses; c++ {
		if logits[c] > max {
			max = logits[c]
			best = c
		}
		if logits[c] < min {
			min = logits[c]
		}
	}
	return Result{
		Class:      alert.Class(best),
		Confidence: fpmath.ClampU8((max - min) >> 8),
		Valid:      true,
	}
}
