package event

// Wire format of one tick, two bytes per line in the stimulus stream.
//
//	a[7:6]  event type: 00 price, 01 volume, 10 buy, 11 sell
//	a[5:0]  price/volume low 6 bits, or the full 6-bit order quantity
//	b[5:0]  price/volume high 6 bits (12-bit payload = b[5:0]<<6 | a[5:0])
//	b[7]    config strobe; when set, b[1:0] selects the threshold preset
//	        and the tick carries no market payload

const (
	typePrice  = 0b00
	typeVolume = 0b01
	typeBuy    = 0b10
	typeSell   = 0b11

	configStrobeBit = 0x80
)

// Decode reassembles one wire word into a MarketEvent.
func Decode(a, b byte) MarketEvent {
	if b&configStrobeBit != 0 {
		return MarketEvent{Kind: KindConfig, Value: uint16(b & 0x03), ConfigStrobe: true}
	}

	switch a >> 6 {
	case typePrice:
		return MarketEvent{Kind: KindPrice, Value: payload12(a, b)}
	case typeVolume:
		return MarketEvent{Kind: KindVolume, Value: payload12(a, b)}
	case typeBuy:
		return MarketEvent{Kind: KindBuy, Value: uint16(a & 0x3F)}
	default:
		return MarketEvent{Kind: KindSell, Value: uint16(a & 0x3F)}
	}
}

// Encode produces the wire word for an event. Decode(Encode(e)) == e for
// every in-range event; 12-bit prices round-trip exactly.
func (e MarketEvent) Encode() (a, b byte) {
	switch e.Kind {
	case KindPrice:
		return byte(typePrice<<6) | byte(e.Value&0x3F), byte(e.Value >> 6 & 0x3F)
	case KindVolume:
		return byte(typeVolume<<6) | byte(e.Value&0x3F), byte(e.Value >> 6 & 0x3F)
	case KindBuy:
		return byte(typeBuy<<6) | byte(e.Value&0x3F), 0x00
	case KindSell:
		return byte(typeSell<<6) | byte(e.Value&0x3F), 0x00
	default: // KindConfig
		return 0x00, configStrobeBit | byte(e.Value&0x03)
	}
}

func payload12(a, b byte) uint16 {
	return uint16(b&0x3F)<<6 | uint16(a&0x3F)
}
