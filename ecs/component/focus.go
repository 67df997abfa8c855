package component

// Focus is the per-tick gaze result for a companion.
type Focus struct {
	Tolerance    float64
	TimeRequired float64
	NearDistance float64

	HasViewer bool
	Focused   bool
	Near      bool
	HeldFor   float64

	// StopOnFocus interrupts path walking once focus is held for TimeRequired.
	StopOnFocus bool
}

var FocusComponent = NewComponent[Focus]()
