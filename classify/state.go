package classify

// State is the discrete contact classification.
type State uint8

const (
	// NoContact is the initial state: the blade is clear.
	NoContact State = iota
	// Proximity means a conductive surface is near the blade.
	Proximity
	// Contact means direct conduction through the blade was detected.
	// Latched until an external reset.
	Contact
	// Fault means contact is unverifiable: acquisition kept failing, so a
	// confirmed no-contact reading cannot be claimed. Escalated to the
	// actuator like a contact, and latched until an external reset.
	Fault
)

func (s State) String() string {
	switch s {
	case NoContact:
		return "no-contact"
	case Proximity:
		return "proximity"
	case Contact:
		return "contact"
	case Fault:
		return "fault"
	}
	return "unknown"
}

// Alarming reports whether the state asserts the brake interlock.
func (s State) Alarming() bool {
	return s == Contact || s == Fault
}
