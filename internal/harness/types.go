package harness

// TraceEvent records one executed step.
type TraceEvent struct {
	Seq     int64  `json:"seq"`
	Step    string `json:"step"`            // operation name, e.g. "create_event"
	Label   string `json:"label,omitempty"` // label bound or referenced by the step
	ID      string `json:"id,omitempty"`    // identity bound to Label
	Outcome string `json:"outcome"`         // "ok" or an error class
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if every step behaved as expected and all assertions hold.
	Pass bool `json:"pass"`

	// Trace contains every executed step in order, session bodies included.
	Trace []TraceEvent `json:"trace"`

	// Errors contains failure messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// State is the committed content after the last step, in canonical form:
	// "events" and "catalogues" lists in creation order.
	State map[string]any `json:"state,omitempty"`
}

// NewResult creates a new passing result.
// Used as the starting point for test execution.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
		State:  make(map[string]any),
	}
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddTrace appends a step to the trace with the next sequence number.
func (r *Result) AddTrace(step, label, id, outcome string) {
	r.Trace = append(r.Trace, TraceEvent{
		Seq:     int64(len(r.Trace) + 1),
		Step:    step,
		Label:   label,
		ID:      id,
		Outcome: outcome,
	})
}
