package alert

// Rule detector type codes. Code equals evaluation priority: the rule
// detector's winner is simply the highest set code, and the alert bitmap
// indexes by code.
const (
	TypeSpreadWidening uint8 = 0 // disabled stub
	TypeVolDry         uint8 = 1 // disabled stub
	TypeTradeVelocity  uint8 = 2
	TypeQuoteStuffing  uint8 = 3
	TypeOrderImbalance uint8 = 4
	TypeVolumeSurge    uint8 = 5
	TypePriceSpike     uint8 = 6
	TypeFlashCrash     uint8 = 7
)

// Record is the rule detector's per-tick output. It is recomputed fresh
// every tick; the bitmap records every detector that fired independently
// of the priority winner.
type Record struct {
	Any      bool
	Priority uint8 // 0..7, priority of the winning detector
	Type     uint8 // 0..7, type code of the winning detector
	Bitmap   uint8 // bit i set iff detector with code i fired
}

// Class is the anomaly classification shared by the ML pipeline and the
// cascade detector. Codes follow the classifier's output layout.
type Class uint8

const (
	ClassNormal Class = iota
	ClassPriceSpike
	ClassVolumeSurge
	ClassFlashCrash
	ClassOrderImbalance
	ClassQuoteStuffing
)

// classPriority maps a Class onto the rule detectors' priority scale so
// fused priorities are comparable across both streams.
var classPriority = [6]uint8{
	ClassNormal:         0,
	ClassPriceSpike:     TypePriceSpike,
	ClassVolumeSurge:    TypeVolumeSurge,
	ClassFlashCrash:     TypeFlashCrash,
	ClassOrderImbalance: TypeOrderImbalance,
	ClassQuoteStuffing:  TypeQuoteStuffing,
}

// Priority returns the class's priority on the 0..7 rule scale.
func (c Class) Priority() uint8 {
	if int(c) < len(classPriority) {
		return classPriority[c]
	}
	return 0
}

// ClassOfType maps a rule type code onto the Class scale used by the
// cascade history. Velocity and the disabled stubs have no classifier
// counterpart and map to Normal (not recorded).
func ClassOfType(t uint8) Class {
	switch t {
	case TypeFlashCrash:
		return ClassFlashCrash
	case TypePriceSpike:
		return ClassPriceSpike
	case TypeVolumeSurge:
		return ClassVolumeSurge
	case TypeOrderImbalance:
		return ClassOrderImbalance
	case TypeQuoteStuffing:
		return ClassQuoteStuffing
	default:
		return ClassNormal
	}
}

var typeNames = [8]string{
	"SPREAD_WIDENING", "VOL_DRY", "TRADE_VELOCITY", "QUOTE_STUFFING",
	"ORDER_IMBALANCE", "VOLUME_SURGE", "PRICE_SPIKE", "FLASH_CRASH",
}

// TypeName returns the canonical detector name for a type code, as used
// in golden reference files.
func TypeName(t uint8) string {
	if int(t) < len(typeNames) {
		return typeNames[t]
	}
	return "UNKNOWN"
}

func (c Class) String() string {
	switch c {
	case ClassNormal:
		return "NORMAL"
	case ClassPriceSpike:
		return "PRICE_SPIKE"
	case ClassVolumeSurge:
		return "VOLUME_SURGE"
	case ClassFlashCrash:
		return "FLASH_CRASH"
	case ClassOrderImbalance:
		return "ORDER_IMBALANCE"
	case ClassQuoteStuffing:
		return "QUOTE_STUFFING"
	default:
		return "UNKNOWN"
	}
}
