package learn

// table is an insertion-ordered map keyed by StateActionPair. Iteration
// order is the order keys were first written, so seeded runs replay
// identically.
type table[V any] struct {
	index map[StateActionPair]int
	keys  []StateActionPair
	vals  []V
}

func newTable[V any]() table[V] {
	return table[V]{index: make(map[StateActionPair]int)}
}

func (t *table[V]) get(k StateActionPair) (V, bool) {
	if i, ok := t.index[k]; ok {
		return t.vals[i], true
	}
	var zero V
	return zero, false
}

func (t *table[V]) set(k StateActionPair, v V) {
	if i, ok := t.index[k]; ok {
		t.vals[i] = v
		return
	}
	t.index[k] = len(t.keys)
	t.keys = append(t.keys, k)
	t.vals = append(t.vals, v)
}

func (t *table[V]) len() int { return len(t.keys) }

func (t *table[V]) each(fn func(k StateActionPair, v V)) {
	for i, k := range t.keys {
		fn(k, t.vals[i])
	}
}

func (t *table[V]) reset() {
	t.index = make(map[StateActionPair]int)
	t.keys = t.keys[:0]
	t.vals = t.vals[:0]
}
