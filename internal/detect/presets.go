package detect

// PresetID selects one of four built-in threshold profiles. The config
// channel carries a 2-bit selector, applied on the tick after the strobe.
type PresetID uint8

const (
	PresetQuiet PresetID = iota
	PresetNormal
	PresetSensitive
	PresetDemo
)

// Preset is a static threshold profile used while the adaptive unit is
// overridden or still warming up. TriggerConfidence is the confidence
// assigned to rule-path circuit-breaker triggers, which have no ML score.
type Preset struct {
	Spike             uint16
	Flash             uint16
	VolFloor          uint16
	TriggerConfidence uint8
}

// Thresholds are the live detector inputs for one tick.
type Thresholds struct {
	Spike    uint16
	Flash    uint16
	VolFloor uint16
}

var presets = [4]Preset{
	PresetQuiet:     {Spike: 30, Flash: 60, VolFloor: 50, TriggerConfidence: 40},
	PresetNormal:    {Spike: 20, Flash: 40, VolFloor: 25, TriggerConfidence: 60},
	PresetSensitive: {Spike: 10, Flash: 20, VolFloor: 10, TriggerConfidence: 80},
	PresetDemo:      {Spike: 5, Flash: 10, VolFloor: 2, TriggerConfidence: 100},
}

// PresetByID returns the profile for a 2-bit selector value.
func PresetByID(id uint8) Preset {
	return presets[PresetID(id&0x03)]
}

// Thresholds returns the preset's static detector thresholds.
func (p Preset) Thresholds() Thresholds {
	return Thresholds{Spike: p.Spike, Flash: p.Flash, VolFloor: p.VolFloor}
}

func (id PresetID) String() string {
	switch id {
	case PresetQuiet:
		return "quiet"
	case PresetNormal:
		return "normal"
	case PresetSensitive:
		return "sensitive"
	case PresetDemo:
		return "demo"
	}
	return "unknown"
}
