package learn

// DynaModel is the Dyna-Q planning model: the most recently observed
// outcome of every state-action pair.
type DynaModel struct {
	t table[StateRewardPair]
}

func NewDynaModel() *DynaModel {
	return &DynaModel{t: newTable[StateRewardPair]()}
}

func (m *DynaModel) Len() int { return m.t.len() }

// Record stores the outcome observed after taking p.
func (m *DynaModel) Record(p StateActionPair, outcome StateRewardPair) {
	m.t.set(p, outcome)
}

// Outcome returns the recorded outcome of p. A pair that was never
// observed reports false; nothing is stored for it.
func (m *DynaModel) Outcome(p StateActionPair) (StateRewardPair, bool) {
	return m.t.get(p)
}

func (m *DynaModel) Each(fn func(p StateActionPair, o StateRewardPair)) {
	m.t.each(fn)
}

func (m *DynaModel) Replace(keys []StateActionPair, outcomes []StateRewardPair) {
	m.t.reset()
	for i, k := range keys {
		m.t.set(k, outcomes[i])
	}
}
