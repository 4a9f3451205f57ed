package ml

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// LoadWeights reads the four ROM images produced by the training
// pipeline from dir: w1.hex, b1.hex, w2.hex, b2.hex. Each file carries
// one 16-bit two's-complement value per line as four hex digits, with
// optional // comments, matrices flattened row-major.
func LoadWeights(dir string) (*Weights, error) {
	var w Weights

	w1, err := readHex16(filepath.Join(dir, "w1.hex"), InputSize*HiddenSize)
	if err != nil {
		return nil, err
	}
	for i := 0; i < InputSize; i++ {
		for j := 0; j < HiddenSize; j++ {
			w.W1[i][j] = w1[i*HiddenSize+j]
		}
	}

	b1, err := readHex16(filepath.Join(dir, "b1.hex"), HiddenSize)
	if err != nil {
		return nil, err
	}
	copy(w.B1[:], b1)

	w2, err := readHex16(filepath.Join(dir, "w2.hex"), HiddenSize*NumClasses)
	if err != nil {
		return nil, err
	}
	for j := 0; j < HiddenSize; j++ {
		for c := 0; c < NumClasses; c++ {
			w.W2[j][c] = w2[j*NumClasses+c]
		}
	}

	b2, err := readHex16(filepath.Join(dir, "b2.hex"), NumClasses)
	if err != nil {
		return nil, err
	}
	copy(w.B2[:], b2)

	return &w, nil
}

func readHex16(path string, want int) ([]int16, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("ml: open rom: %w", err)
	}
	defer f.Close()

	vals := make([]int16, 0, want)
	sc := bufio.NewScanner(f)
	line := 0
	for sc.Scan() {
		line++
		text := sc.Text()
		if i := strings.Index(text, "//"); i >= 0 {
			text = text[:i]
		}
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		u, err := strconv.ParseUint(text, 16, 16)
		if err != nil {
			return nil, fmt.Errorf("ml: %s:%d: bad value %q: %w", path, line, text, err)
		}
		vals = append(vals, int16(u))
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("ml: read rom %s: %w", path, err)
	}
	if len(vals) != want {
		return nil, fmt.Errorf("ml: %s: got %d values, want %d", path, len(vals), want)
	}
	return vals, nil
}
