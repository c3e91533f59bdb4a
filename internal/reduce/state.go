package reduce

// State names a detector's position in the calibration sequence. States
// advance strictly in order; StateFailed is terminal and sticky.
type State string

const (
	StatePending        State = "pending"
	StateBPMReady       State = "bpm_ready"
	StateAxisNormalized State = "axis_normalized"
	StatePixLocReady    State = "pixloc_ready"
	StateBiasReady      State = "bias_ready"
	StateArcReady       State = "arc_ready"
	StateTraceReady     State = "trace_ready"
	StateFlatReady      State = "flat_ready"
	StateDone           State = "done"
	StateFailed         State = "failed"
)

// stateSequence is the forward order of the pipeline. StatePending is the
// implicit start and never recorded as a transition.
var stateSequence = []State{
	StateBPMReady,
	StateAxisNormalized,
	StatePixLocReady,
	StateBiasReady,
	StateArcReady,
	StateTraceReady,
	StateFlatReady,
	StateDone,
}

func (s State) String() string { return string(s) }

// Terminal reports whether the detector has finished, successfully or not.
func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed
}
