package ml_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"nanotrade/internal/alert"
	"nanotrade/internal/features"
	"nanotrade/internal/ml"
)

// passthroughWeights route feature i straight to hidden unit i and
// hidden unit j straight to logit j, so logit c = 256 * feature[c].
func passthroughWeights() *ml.Weights {
	w := &ml.Weights{}
	for i := 0; i < ml.HiddenSize; i++ {
		w.W1[i][i] = 256
	}
	for c := 0; c < ml.NumClasses; c++ {
		w.W2[c][c] = 256
	}
	return w
}

func TestPipelineLatencyIsFourTicks(t *testing.T) {
	p := ml.NewPipeline(passthroughWeights())

	var v features.Vector
	v[3] = 200

	if r := p.Step(v, true); r.Valid {
		t.Fatal("result valid on input tick")
	}
	for i := 1; i <= 3; i++ {
		if r := p.Step(features.Vector{}, false); r.Valid {
			t.Fatalf("result valid %d ticks after input", i)
		}
	}
	r := p.Step(features.Vector{}, false)
	if !r.Valid {
		t.Fatal("no result 4 ticks after input")
	}
	if r.Class != alert.ClassFlashCrash {
		t.Errorf("class = %v, want FLASH_CRASH", r.Class)
	}
	if r.Confidence != 200 {
		t.Errorf("confidence = %d, want 200 (max logit 200, min 0)", r.Confidence)
	}
	if r = p.Step(features.Vector{}, false); r.Valid {
		t.Error("valid pulse held past one tick")
	}
}

func TestPipelineStreamsBackToBack(t *testing.T) {
	p := ml.NewPipeline(passthroughWeights())

	var a, b features.Vector
	a[1] = 50
	b[4] = 60

	p.Step(a, true)
	p.Step(b, true)
	p.Step(features.Vector{}, false)
	p.Step(features.Vector{}, false)

	ra := p.Step(features.Vector{}, false)
	rb := p.Step(features.Vector{}, false)
	if !ra.Valid || ra.Class != alert.ClassPriceSpike {
		t.Errorf("first result: %+v, want valid PRICE_SPIKE", ra)
	}
	if !rb.Valid || rb.Class != alert.ClassOrderImbalance {
		t.Errorf("second result: %+v, want valid ORDER_IMBALANCE", rb)
	}
}

func TestArgmaxTieKeepsLowestClass(t *testing.T) {
	// Zero weights leave only the output biases, all equal.
	p := ml.NewPipeline(&ml.Weights{})

	p.Step(features.Vector{}, true)
	var r ml.Result
	for i := 0; i < 4; i++ {
		r = p.Step(features.Vector{}, false)
	}
	if !r.Valid || r.Class != alert.ClassNormal || r.Confidence != 0 {
		t.Errorf("flat logits should yield NORMAL/0, got %+v", r)
	}
}

func TestReLUClipsNegativeActivations(t *testing.T) {
	w := &ml.Weights{}
	w.W1[0][0] = -300 // drives hidden 0 hard negative
	w.W2[0][2] = 256
	w.B2[1] = 100 // class 1 should win on its bias alone
	p := ml.NewPipeline(w)

	var v features.Vector
	v[0] = 100
	p.Step(v, true)
	var r ml.Result
	for i := 0; i < 4; i++ {
		r = p.Step(features.Vector{}, false)
	}
	if r.Class != alert.ClassPriceSpike {
		t.Errorf("negative activation leaked through ReLU: %+v", r)
	}
}

func TestLoadWeightsRoundTrip(t *testing.T) {
	dir := t.TempDir()

	writeRom := func(name string, n int, header string) {
		var sb strings.Builder
		sb.WriteString(header)
		for i := 0; i < n; i++ {
			switch i % 3 {
			case 0:
				sb.WriteString("0001\n")
			case 1:
				sb.WriteString("ffff\n") // -1
			default:
				sb.WriteString("7fff\n")
			}
		}
		if err := os.WriteFile(filepath.Join(dir, name), []byte(sb.String()), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	writeRom("w1.hex", ml.InputSize*ml.HiddenSize, "// layer 1 weights\n")
	writeRom("b1.hex", ml.HiddenSize, "")
	writeRom("w2.hex", ml.HiddenSize*ml.NumClasses, "\n")
	writeRom("b2.hex", ml.NumClasses, "")

	w, err := ml.LoadWeights(dir)
	if err != nil {
		t.Fatal(err)
	}
	if w.W1[0][0] != 1 || w.W1[0][1] != -1 || w.W1[0][2] != 32767 {
		t.Errorf("W1 head = %d %d %d, want 1 -1 32767", w.W1[0][0], w.W1[0][1], w.W1[0][2])
	}
	if w.B1[1] != -1 {
		t.Errorf("B1[1] = %d, want -1", w.B1[1])
	}
}

func TestLoadWeightsRejectsShortRom(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "w1.hex"), []byte("0001\n0002\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := ml.LoadWeights(dir); err == nil {
		t.Fatal("truncated rom accepted")
	}
}
