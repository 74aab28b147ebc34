// Package stats counts steps and records per-episode statistics: steps
// needed to mow the garden and the reward collected on the way.
package stats

// StepCounter counts simulation steps. The episode count resets when a
// new episode starts; the total never does.
type StepCounter struct {
	steps int
	total uint64
}

func NewStepCounter() *StepCounter {
	return &StepCounter{}
}

// Count registers one step. It runs before the garden resolves the step,
// so the step that finishes an episode is already counted at WillEnd.
func (c *StepCounter) Count() {
	c.steps++
	c.total++
}

func (c *StepCounter) Steps() int    { return c.steps }
func (c *StepCounter) Total() uint64 { return c.total }

func (c *StepCounter) EpisodeWillEnd(int)   {}
func (c *StepCounter) EpisodeDidEnd(int)    {}
func (c *StepCounter) EpisodeWillStart(int) { c.steps = 0 }
func (c *StepCounter) EpisodeDidStart(int)  {}
