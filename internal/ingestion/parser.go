package ingestion

import (
	"encoding/json"
	"fmt"

	"nanotrade/internal/event"
)

// tickJSON is the JSON wire format for one market tick. Field names use
// snake_case to match upstream producers.
type tickJSON struct {
	Tick        uint64 `json:"tick"`
	Kind        string `json:"kind"`
	Value       uint16 `json:"value"`
	TimestampUs int64  `json:"timestamp_us"`
}

// ParsedTick is a decoded tick message with its source tick number, used
// by the sequencer to enforce the one-event-per-tick contract.
type ParsedTick struct {
	Tick  uint64
	Event event.MarketEvent
}

// ParseTick converts a raw NATS payload into a market event. Range
// violations are rejected here so the core only ever sees well-formed
// values.
func ParseTick(data []byte) (ParsedTick, error) {
	var j tickJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return ParsedTick{}, fmt.Errorf("parse tick: %w", err)
	}

	var ev event.MarketEvent
	switch j.Kind {
	case "price":
		if j.Value > 4095 {
			return ParsedTick{}, fmt.Errorf("price %d out of 12-bit range", j.Value)
		}
		ev = event.NewPrice(j.Value)
	case "volume":
		if j.Value > 4095 {
			return ParsedTick{}, fmt.Errorf("volume %d out of 12-bit range", j.Value)
		}
		ev = event.NewVolume(j.Value)
	case "buy":
		if j.Value > 63 {
			return ParsedTick{}, fmt.Errorf("buy quantity %d out of 6-bit range", j.Value)
		}
		ev = event.NewBuy(j.Value)
	case "sell":
		if j.Value > 63 {
			return ParsedTick{}, fmt.Errorf("sell quantity %d out of 6-bit range", j.Value)
		}
		ev = event.NewSell(j.Value)
	case "config":
		if j.Value > 3 {
			return ParsedTick{}, fmt.Errorf("preset %d out of 2-bit range", j.Value)
		}
		ev = event.NewConfig(j.Value) // config messages are always strobed
	case "idle":
		ev = event.NewIdle()
	default:
		return ParsedTick{}, fmt.Errorf("unknown tick kind: %q", j.Kind)
	}

	return ParsedTick{Tick: j.Tick, Event: ev}, nil
}
