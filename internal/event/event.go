package event

// Kind discriminates the per-tick input payload
type Kind uint8

const (
	KindPrice Kind = iota
	KindVolume
	KindBuy
	KindSell
	KindConfig
)

// MarketEvent is the single input record consumed each tick.
// Exactly one event arrives per tick; delivering more is a caller
// protocol violation handled upstream of the core.
type MarketEvent struct {
	Kind Kind

	// Value carries a 12-bit price or volume reading (0..4095), a 6-bit
	// order quantity (0..63), or a 2-bit threshold preset for Config.
	// Value 0 for Price/Volume is a defined idle no-op, excluded from
	// rolling statistics.
	Value uint16

	// ConfigStrobe marks a preset change; it takes effect next tick.
	ConfigStrobe bool
}

// Idle reports whether this tick carries no usable sample.
func (e MarketEvent) Idle() bool {
	return (e.Kind == KindPrice || e.Kind == KindVolume) && e.Value == 0
}

func NewPrice(v uint16) MarketEvent  { return MarketEvent{Kind: KindPrice, Value: v & 0x0FFF} }
func NewVolume(v uint16) MarketEvent { return MarketEvent{Kind: KindVolume, Value: v & 0x0FFF} }
func NewBuy(qty uint16) MarketEvent  { return MarketEvent{Kind: KindBuy, Value: qty & 0x3F} }
func NewSell(qty uint16) MarketEvent { return MarketEvent{Kind: KindSell, Value: qty & 0x3F} }
func NewIdle() MarketEvent           { return MarketEvent{Kind: KindPrice, Value: 0} }

// NewConfig selects one of the four threshold presets (0..3).
func NewConfig(preset uint16) MarketEvent {
	return MarketEvent{Kind: KindConfig, Value: preset & 0x03, ConfigStrobe: true}
}

func (k Kind) String() string {
	switch k {
	case KindPrice:
		return "Price"
	case KindVolume:
		return "Volume"
	case KindBuy:
		return "Buy"
	case KindSell:
		return "Sell"
	case KindConfig:
		return "Config"
	default:
		return "Unknown"
	}
}
