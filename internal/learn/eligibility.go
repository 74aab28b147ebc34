package learn

// EligibilityTable holds the decaying eligibility trace of each
// state-action pair.
type EligibilityTable struct {
	initial float64
	t       table[float64]
}

func NewEligibilityTable(initial float64) *EligibilityTable {
	return &EligibilityTable{initial: initial, t: newTable[float64]()}
}

func (e *EligibilityTable) Initial() float64 { return e.initial }
func (e *EligibilityTable) Len() int         { return e.t.len() }

// Value returns the trace of p, materialising the initial value on first
// access.
func (e *EligibilityTable) Value(p StateActionPair) float64 {
	if v, ok := e.t.get(p); ok {
		return v
	}
	e.t.set(p, e.initial)
	return e.initial
}

func (e *EligibilityTable) SetValue(p StateActionPair, v float64) {
	e.t.set(p, v)
}

// ScaleAll multiplies every stored trace by f.
func (e *EligibilityTable) ScaleAll(f float64) {
	for i := range e.t.vals {
		e.t.vals[i] *= f
	}
}

func (e *EligibilityTable) Each(fn func(p StateActionPair, v float64)) {
	e.t.each(fn)
}

func (e *EligibilityTable) Replace(keys []StateActionPair, vals []float64) {
	e.t.reset()
	for i, k := range keys {
		e.t.set(k, vals[i])
	}
}
