package stats

import (
	"context"
	"time"

	"github.com/smartmower/mower/internal/garden"
	"github.com/smartmower/mower/internal/grid"
	"github.com/smartmower/mower/internal/persist"
	"go.uber.org/zap"
)

// Tracker turns episode ends into statistics rows. It is registered with
// the episode controller after the step counter.
type Tracker struct {
	runID   string
	counter *StepCounter
	out     *Writer
	sink    persist.StatsSink
	log     *zap.Logger

	reward  float64
	rows    []Row
	pending []persist.EpisodeRow
}

// NewTracker creates a tracker. out and sink may be nil.
func NewTracker(runID string, counter *StepCounter, out *Writer, sink persist.StatsSink, log *zap.Logger) *Tracker {
	if log == nil {
		log = zap.NewNop()
	}
	return &Tracker{runID: runID, counter: counter, out: out, sink: sink, log: log}
}

func (t *Tracker) RunID() string { return t.runID }

// Rows returns every row recorded so far.
func (t *Tracker) Rows() []Row { return t.rows }

// Reward is the reward collected in the current episode.
func (t *Tracker) Reward() float64 { return t.reward }

// Tap wraps l so that every reward it learns from is added to the
// current episode's total.
func (t *Tracker) Tap(l garden.Learner) garden.Learner {
	return &rewardTap{inner: l, t: t}
}

type rewardTap struct {
	inner garden.Learner
	t     *Tracker
}

func (r *rewardTap) ChooseAction(available []grid.Direction) grid.Direction {
	return r.inner.ChooseAction(available)
}

func (r *rewardTap) Learn(reward float64) {
	r.t.reward += reward
	r.inner.Learn(reward)
}

func (t *Tracker) EpisodeWillEnd(episode int) {
	row := Row{Episode: episode, Steps: t.counter.Steps(), Reward: t.reward}
	t.rows = append(t.rows, row)
	if t.out != nil {
		if err := t.out.Write(row); err != nil {
			t.log.Error("write statistics row", zap.Int("episode", episode), zap.Error(err))
		}
	}
	if t.sink != nil {
		t.pending = append(t.pending, persist.EpisodeRow{
			RunID:   t.runID,
			Episode: episode,
			Steps:   row.Steps,
			Reward:  row.Reward,
			EndedAt: time.Now().UTC(),
		})
	}
	t.log.Info("episode statistics",
		zap.Int("episode", episode),
		zap.Int("steps", row.Steps),
		zap.Float64("reward", row.Reward))
}

func (t *Tracker) EpisodeDidEnd(int)    {}
func (t *Tracker) EpisodeWillStart(int) { t.reward = 0 }
func (t *Tracker) EpisodeDidStart(int)  {}

// Flush hands buffered rows to the statistics sink. Rows stay buffered
// when the sink fails.
func (t *Tracker) Flush(ctx context.Context) error {
	if t.sink == nil || len(t.pending) == 0 {
		return nil
	}
	if err := t.sink.RecordEpisodes(ctx, t.pending); err != nil {
		return err
	}
	t.log.Debug("statistics flushed", zap.Int("rows", len(t.pending)))
	t.pending = t.pending[:0]
	return nil
}

// Close flushes and closes the CSV file.
func (t *Tracker) Close(ctx context.Context) error {
	err := t.Flush(ctx)
	if t.out != nil {
		if cerr := t.out.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
