package system

import "time"

// Phase defines execution ordering within a single tick.
type Phase int

const (
	PhaseUpdate     Phase = iota // 0: step count, garden step
	PhasePostUpdate              // 1: tick signal
	PhaseOutput                  // 2: dispatch events, flush feed
	PhasePersist                 // 3: statistics flush
)

// System is the interface every tick system implements.
type System interface {
	Phase() Phase
	Update(dt time.Duration)
}

// Func adapts a function to System.
type Func struct {
	P  Phase
	Fn func(dt time.Duration)
}

func (f Func) Phase() Phase            { return f.P }
func (f Func) Update(dt time.Duration) { f.Fn(dt) }
