package harness

// TraceEvent records one executed step.
type TraceEvent struct {
	Step    int    `json:"step"`
	Kind    string `json:"kind"`
	Target  string `json:"target,omitempty"`  // function or file the step acted on
	Outcome string `json:"outcome"`           // "ok", "miss", or an error class
	Digest  string `json:"digest,omitempty"`  // signature digest for add and match
	Name    string `json:"name,omitempty"`    // matched name
	Count   *int   `json:"count,omitempty"`   // signatures moved by file and database steps
	Session string `json:"session,omitempty"` // session ID after a reset
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if all expect clauses and assertions hold.
	Pass bool `json:"pass"`

	// Trace contains one event per executed step.
	Trace []TraceEvent `json:"trace"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Signatures is the final content of the set in file format.
	Signatures []string `json:"signatures"`
}

// NewResult creates a new passing result.
// Used as the starting point for test execution.
func NewResult() *Result {
	return &Result{
		Pass:       true,
		Trace:      []TraceEvent{},
		Errors:     []string{},
		Signatures: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddTrace appends an event to the trace.
func (r *Result) AddTrace(event TraceEvent) {
	r.Trace = append(r.Trace, event)
}
