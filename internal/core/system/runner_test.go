package system

import (
	"testing"
	"time"
)

func TestRunnerPhaseOrder(t *testing.T) {
	r := NewRunner()
	var got []string
	add := func(p Phase, name string) {
		r.Register(Func{P: p, Fn: func(time.Duration) { got = append(got, name) }})
	}
	add(PhasePersist, "persist")
	add(PhaseOutput, "output")
	add(PhaseUpdate, "update-a")
	add(PhasePostUpdate, "post")
	add(PhaseUpdate, "update-b")

	r.Tick(0)
	want := []string{"update-a", "update-b", "post", "output", "persist"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
	if r.Ticks() != 1 {
		t.Fatalf("Ticks = %d, want 1", r.Ticks())
	}
}
