package replay

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"nanotrade/internal/event"
)

// ParseStimulus reads a $readmemh-style stimulus stream: one 4-hex-digit
// word per line ("XXYY", XX = byte a, YY = byte b), // comments and blank
// lines skipped. Each word decodes to one market event.
func ParseStimulus(r io.Reader) ([]event.MarketEvent, error) {
	var events []event.MarketEvent

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if idx := strings.Index(line, "//"); idx >= 0 {
			line = line[:idx]
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if len(line) != 4 {
			return nil, fmt.Errorf("replay: line %d: want 4 hex digits, got %q", lineNo, line)
		}
		word, err := strconv.ParseUint(line, 16, 16)
		if err != nil {
			return nil, fmt.Errorf("replay: line %d: %w", lineNo, err)
		}

		a := byte(word >> 8)
		b := byte(word)
		events = append(events, event.Decode(a, b))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("replay: read stimulus: %w", err)
	}
	return events, nil
}

// ParseGolden reads a golden expectation file: lines of the form
// "EXPECT <ALERT_TYPE>" or "EXPECT NONE"; everything else is ignored.
func ParseGolden(r io.Reader) ([]string, error) {
	var expected []string

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "EXPECT ") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) >= 2 {
			expected = append(expected, fields[1])
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("replay: read golden: %w", err)
	}
	return expected, nil
}
