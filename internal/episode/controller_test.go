package episode

import (
	"fmt"
	"reflect"
	"testing"
)

type recorder struct {
	name string
	log  *[]string
}

func (r *recorder) EpisodeWillEnd(ep int)   { *r.log = append(*r.log, fmt.Sprintf("%s:willEnd:%d", r.name, ep)) }
func (r *recorder) EpisodeDidEnd(ep int)    { *r.log = append(*r.log, fmt.Sprintf("%s:didEnd:%d", r.name, ep)) }
func (r *recorder) EpisodeWillStart(ep int) { *r.log = append(*r.log, fmt.Sprintf("%s:willStart:%d", r.name, ep)) }
func (r *recorder) EpisodeDidStart(ep int)  { *r.log = append(*r.log, fmt.Sprintf("%s:didStart:%d", r.name, ep)) }

func TestNextOrder(t *testing.T) {
	var log []string
	c := NewController(0, nil)
	a := &recorder{name: "a", log: &log}
	b := &recorder{name: "b", log: &log}
	c.Register(a)
	c.Register(b)

	c.Next()

	want := []string{
		"a:willEnd:1", "b:willEnd:1",
		"a:didEnd:1", "b:didEnd:1",
		"a:willStart:2", "b:willStart:2",
		"a:didStart:2", "b:didStart:2",
	}
	if !reflect.DeepEqual(log, want) {
		t.Fatalf("notification order\n got %v\nwant %v", log, want)
	}
	if c.Episode() != 2 {
		t.Errorf("Episode() = %d, want 2", c.Episode())
	}
}

func TestCounterIncrementsBetweenStartPhases(t *testing.T) {
	c := NewController(0, nil)
	probe := &counterProbe{c: c}
	c.Register(probe)
	c.Next()
	if probe.atWillStart != 1 || probe.atDidStart != 2 {
		t.Errorf("counter seen at willStart=%d didStart=%d, want 1 and 2", probe.atWillStart, probe.atDidStart)
	}
}

type counterProbe struct {
	c           *Controller
	atWillStart int
	atDidStart  int
}

func (p *counterProbe) EpisodeWillEnd(int)   {}
func (p *counterProbe) EpisodeDidEnd(int)    {}
func (p *counterProbe) EpisodeWillStart(int) { p.atWillStart = p.c.Episode() }
func (p *counterProbe) EpisodeDidStart(int)  { p.atDidStart = p.c.Episode() }

func TestLimitIsTerminal(t *testing.T) {
	var log []string
	c := NewController(2, nil)
	c.Register(&recorder{name: "r", log: &log})

	c.Next() // 1 -> 2
	if c.Finished() {
		t.Fatal("finished after first episode")
	}
	if !c.LimitReached() {
		t.Fatal("limit should be reached during episode 2")
	}
	log = log[:0]
	c.Next()

	want := []string{"r:willEnd:2", "r:didEnd:2"}
	if !reflect.DeepEqual(log, want) {
		t.Fatalf("terminal notifications\n got %v\nwant %v", log, want)
	}
	if !c.Finished() || c.Episode() != 2 {
		t.Errorf("Finished=%v Episode=%d, want true and 2", c.Finished(), c.Episode())
	}

	log = log[:0]
	c.Next()
	if len(log) != 0 {
		t.Errorf("Next after finish notified %v", log)
	}
}

func TestUnlimited(t *testing.T) {
	c := NewController(-1, nil)
	for i := 0; i < 5; i++ {
		c.Next()
	}
	if c.Finished() || c.LimitReached() || c.Episode() != 6 {
		t.Errorf("Finished=%v LimitReached=%v Episode=%d", c.Finished(), c.LimitReached(), c.Episode())
	}
}

func TestRegisterDedup(t *testing.T) {
	var log []string
	c := NewController(0, nil)
	r := &recorder{name: "r", log: &log}
	if !c.Register(r) {
		t.Fatal("first Register returned false")
	}
	if c.Register(r) {
		t.Fatal("duplicate Register returned true")
	}
	if !c.Unregister(r) || c.Unregister(r) {
		t.Fatal("Unregister results wrong")
	}
	c.Next()
	if len(log) != 0 {
		t.Errorf("unregistered receiver notified: %v", log)
	}
}
