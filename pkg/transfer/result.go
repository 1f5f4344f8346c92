package transfer

// Recipient is one payment of a chain.
type Recipient struct {
	Receiver string
	Amount   string

	// Reference overrides the generated reference when set.
	Reference string
}

// Result is the outcome of one chain item. It is never mutated once emitted.
type Result struct {
	Index          int
	Receiver       string
	Amount         string
	Success        bool
	ChangeCids     []string
	InstructionCid string
	UpdateID       string
	Reference      string
	RawResponse    []byte
	Err            error

	// StateUnknown is set when the submission was accepted but its response
	// could not be parsed; the ledger may hold a committed transfer.
	StateUnknown bool
}

// ErrMessage returns the failure message, or "" for a successful result.
func (r Result) ErrMessage() string {
	if r.Err == nil {
		return ""
	}
	return r.Err.Error()
}

// Outcome is the ordered set of results for a run.
type Outcome struct {
	Results      []Result
	SuccessCount int
	FailCount    int
}

// Failed returns the failed results in order.
func (o *Outcome) Failed() []Result {
	var out []Result
	for _, r := range o.Results {
		if !r.Success {
			out = append(out, r)
		}
	}
	return out
}

// Aggregator collects results in arrival order and tallies them.
type Aggregator struct {
	results []Result
	success int
	fail    int
}

// NewAggregator returns an aggregator sized for n results.
func NewAggregator(n int) *Aggregator {
	return &Aggregator{results: make([]Result, 0, n)}
}

func (a *Aggregator) Add(r Result) {
	a.results = append(a.results, r)
	if r.Success {
		a.success++
	} else {
		a.fail++
	}
}

func (a *Aggregator) Len() int { return len(a.results) }

// Outcome returns a snapshot of the aggregated results.
func (a *Aggregator) Outcome() *Outcome {
	results := make([]Result, len(a.results))
	copy(results, a.results)
	return &Outcome{Results: results, SuccessCount: a.success, FailCount: a.fail}
}
