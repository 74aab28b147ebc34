package persist

import (
	"errors"
	"fmt"

	"github.com/smartmower/mower/internal/grid"
	"github.com/smartmower/mower/internal/learn"
)

// ErrNotFound is returned by a Backend when no snapshot exists under a name.
var ErrNotFound = errors.New("snapshot not found")

// Kind identifies what a snapshot holds.
type Kind string

const (
	KindQTable      Kind = "qtable"
	KindEligibility Kind = "eligibility"
	KindDynaModel   Kind = "dyna_model"
	KindModel       Kind = "model"
)

// ValueRecord is one state-action pair and its value.
type ValueRecord struct {
	Key   string  `yaml:"key" json:"key"`
	Value float64 `yaml:"value" json:"value"`
}

// OutcomeRecord is one Dyna-Q transition.
type OutcomeRecord struct {
	Key    string  `yaml:"key" json:"key"`
	State  string  `yaml:"state" json:"state"`
	Reward float64 `yaml:"reward" json:"reward"`
}

// Snapshot is the flat, storage-neutral form of a learner table. Records
// keep the table's insertion order.
type Snapshot struct {
	Kind     Kind             `yaml:"kind" json:"kind"`
	Initial  float64          `yaml:"initial,omitempty" json:"initial,omitempty"`
	Values   []ValueRecord    `yaml:"values,omitempty" json:"values,omitempty"`
	Outcomes []OutcomeRecord  `yaml:"outcomes,omitempty" json:"outcomes,omitempty"`
	Width    int              `yaml:"width,omitempty" json:"width,omitempty"`
	Height   int              `yaml:"height,omitempty" json:"height,omitempty"`
	Beliefs  []grid.MowStatus `yaml:"beliefs,omitempty" json:"beliefs,omitempty"`
}

// Len is the number of records or cells in s.
func (s *Snapshot) Len() int {
	switch s.Kind {
	case KindDynaModel:
		return len(s.Outcomes)
	case KindModel:
		return len(s.Beliefs)
	}
	return len(s.Values)
}

func (s *Snapshot) expect(k Kind) error {
	if s.Kind != k {
		return fmt.Errorf("snapshot holds %s, expecting %s", s.Kind, k)
	}
	return nil
}

func valueSnapshot(kind Kind, initial float64, each func(func(learn.StateActionPair, float64))) *Snapshot {
	s := &Snapshot{Kind: kind, Initial: initial}
	each(func(p learn.StateActionPair, v float64) {
		s.Values = append(s.Values, ValueRecord{Key: p.Key(), Value: v})
	})
	return s
}

func (s *Snapshot) decodeValues() ([]learn.StateActionPair, []float64, error) {
	keys := make([]learn.StateActionPair, 0, len(s.Values))
	vals := make([]float64, 0, len(s.Values))
	for _, r := range s.Values {
		p, err := learn.ParseStateActionPair(r.Key)
		if err != nil {
			return nil, nil, err
		}
		keys = append(keys, p)
		vals = append(vals, r.Value)
	}
	return keys, vals, nil
}

func FromQTable(q *learn.QTable) *Snapshot {
	return valueSnapshot(KindQTable, q.Initial(), q.Each)
}

// ApplyQTable replaces the contents of q with s.
func (s *Snapshot) ApplyQTable(q *learn.QTable) error {
	if err := s.expect(KindQTable); err != nil {
		return err
	}
	keys, vals, err := s.decodeValues()
	if err != nil {
		return err
	}
	q.Replace(keys, vals)
	return nil
}

func FromEligibility(e *learn.EligibilityTable) *Snapshot {
	return valueSnapshot(KindEligibility, e.Initial(), e.Each)
}

func (s *Snapshot) ApplyEligibility(e *learn.EligibilityTable) error {
	if err := s.expect(KindEligibility); err != nil {
		return err
	}
	keys, vals, err := s.decodeValues()
	if err != nil {
		return err
	}
	e.Replace(keys, vals)
	return nil
}

func FromDynaModel(m *learn.DynaModel) *Snapshot {
	s := &Snapshot{Kind: KindDynaModel}
	m.Each(func(p learn.StateActionPair, o learn.StateRewardPair) {
		s.Outcomes = append(s.Outcomes, OutcomeRecord{Key: p.Key(), State: o.State.Key(), Reward: o.Reward})
	})
	return s
}

func (s *Snapshot) ApplyDynaModel(m *learn.DynaModel) error {
	if err := s.expect(KindDynaModel); err != nil {
		return err
	}
	keys := make([]learn.StateActionPair, 0, len(s.Outcomes))
	outs := make([]learn.StateRewardPair, 0, len(s.Outcomes))
	for _, r := range s.Outcomes {
		p, err := learn.ParseStateActionPair(r.Key)
		if err != nil {
			return err
		}
		st, err := learn.ParseState(r.State)
		if err != nil {
			return err
		}
		keys = append(keys, p)
		outs = append(outs, learn.StateRewardPair{State: st, Reward: r.Reward})
	}
	m.Replace(keys, outs)
	return nil
}

func FromModel(m *learn.ModelTable) *Snapshot {
	return &Snapshot{Kind: KindModel, Width: m.Width(), Height: m.Height(), Beliefs: m.Beliefs()}
}

func (s *Snapshot) ApplyModel(m *learn.ModelTable) error {
	if err := s.expect(KindModel); err != nil {
		return err
	}
	return m.Restore(s.Width, s.Height, s.Beliefs)
}
