package alert

// Fusion merges the rule alert stream with the held ML classification.
// The last ML result is held in a register with no expiry until the next
// valid pulse supersedes it.
type Fusion struct {
	heldClass Class
}

// Combined is the fused per-tick alert output.
type Combined struct {
	Active   bool
	Priority uint8
	Type     uint8
	Bitmap   uint8
}

func NewFusion() *Fusion {
	return &Fusion{heldClass: ClassNormal}
}

// Absorb latches a fresh ML classification. Called only on a valid pulse.
func (f *Fusion) Absorb(class Class) {
	f.heldClass = class
}

// Combine fuses this tick's rule record with the held ML class.
// Ties favor the rule path: the rule type wins when rule priority is
// greater than or equal to the held ML priority.
func (f *Fusion) Combine(rule Record) Combined {
	mlPrio := f.heldClass.Priority()

	out := Combined{
		Active: rule.Any || f.heldClass != ClassNormal,
		Bitmap: rule.Bitmap,
	}

	if rule.Priority >= mlPrio {
		out.Priority = rule.Priority
		out.Type = rule.Type
	} else {
		// The class priority doubles as the type code on the rule scale.
		out.Priority = mlPrio
		out.Type = mlPrio
	}

	return out
}
