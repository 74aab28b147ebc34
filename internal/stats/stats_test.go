package stats

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/smartmower/mower/internal/grid"
	"github.com/smartmower/mower/internal/persist"
)

func TestStepCounterReset(t *testing.T) {
	c := NewStepCounter()
	c.Count()
	c.Count()
	c.EpisodeWillEnd(1)
	if c.Steps() != 2 {
		t.Fatalf("steps at end = %d, want 2", c.Steps())
	}
	c.EpisodeDidEnd(1)
	c.EpisodeWillStart(2)
	c.Count()
	if c.Steps() != 1 || c.Total() != 3 {
		t.Fatalf("steps=%d total=%d, want 1 and 3", c.Steps(), c.Total())
	}
}

func TestWriterFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "stats.csv")
	w, err := Create(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Write(Row{Episode: 1, Steps: 42, Reward: 7.5}); err != nil {
		t.Fatal(err)
	}
	if err := w.Write(Row{Episode: 2, Steps: 30, Reward: -1}); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	want := "Episode;StepsNeeded;Reward\n1;42;7.5\n2;30;-1\n"
	if string(got) != want {
		t.Fatalf("file = %q, want %q", got, want)
	}

	rows, err := ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 || rows[0] != (Row{1, 42, 7.5}) || rows[1] != (Row{2, 30, -1}) {
		t.Fatalf("rows = %+v", rows)
	}
}

func TestReadLegacyFile(t *testing.T) {
	rows, err := Read(strings.NewReader("Episode;StepsNeeded\n1;120\n2;95\n"))
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 || rows[1].Steps != 95 || rows[1].Reward != 0 {
		t.Fatalf("rows = %+v", rows)
	}
}

func TestReadErrors(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"empty", ""},
		{"bad header", "a;b\n1;2\n"},
		{"bad number", "Episode;StepsNeeded\n1;many\n"},
		{"short line", "Episode;StepsNeeded\n1\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Read(strings.NewReader(tt.in)); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

type fakeLearner struct{ learned []float64 }

func (f *fakeLearner) ChooseAction(available []grid.Direction) grid.Direction { return available[0] }
func (f *fakeLearner) Learn(r float64)                                        { f.learned = append(f.learned, r) }

type memSink struct {
	rows  []persist.EpisodeRow
	calls int
}

func (m *memSink) RecordEpisodes(_ context.Context, rows []persist.EpisodeRow) error {
	m.calls++
	m.rows = append(m.rows, rows...)
	return nil
}

func (m *memSink) Episodes(context.Context, string) ([]persist.EpisodeRow, error) {
	return m.rows, nil
}

func TestTrackerRecordsEpisodes(t *testing.T) {
	var buf bytes.Buffer
	out := newWriter(&buf)
	sink := &memSink{}
	c := NewStepCounter()
	tr := NewTracker("run-1", c, out, sink, nil)

	inner := &fakeLearner{}
	l := tr.Tap(inner)
	for _, r := range []float64{10, -1, 10} {
		c.Count()
		l.Learn(r)
	}
	if d := l.ChooseAction([]grid.Direction{grid.West}); d != grid.West {
		t.Fatalf("ChooseAction = %v", d)
	}
	if len(inner.learned) != 3 {
		t.Fatalf("inner learner saw %d rewards", len(inner.learned))
	}

	tr.EpisodeWillEnd(1)
	c.EpisodeWillStart(2)
	tr.EpisodeWillStart(2)
	if tr.Reward() != 0 {
		t.Fatalf("reward not reset: %v", tr.Reward())
	}
	c.Count()
	l.Learn(-1)
	tr.EpisodeWillEnd(2)

	if got := buf.String(); got != "1;3;19\n2;1;-1\n" {
		t.Fatalf("csv = %q", got)
	}
	if err := tr.Flush(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := tr.Flush(context.Background()); err != nil {
		t.Fatal(err)
	}
	if sink.calls != 1 || len(sink.rows) != 2 {
		t.Fatalf("sink calls=%d rows=%d, want 1 and 2", sink.calls, len(sink.rows))
	}
	if sink.rows[0].RunID != "run-1" || sink.rows[0].Steps != 3 || sink.rows[1].Episode != 2 {
		t.Fatalf("sink rows = %+v", sink.rows)
	}
	if len(tr.Rows()) != 2 {
		t.Fatalf("rows = %+v", tr.Rows())
	}
}

func TestMeanSeries(t *testing.T) {
	mean := MeanSeries([]Series{
		{Name: "a", Rows: []Row{{1, 10, 0}, {2, 20, 0}, {3, 6, 0}}},
		{Name: "b", Rows: []Row{{1, 30, 0}, {2, 10, 0}}},
	})
	want := []float64{20, 15, 6}
	if len(mean) != len(want) {
		t.Fatalf("mean = %v", mean)
	}
	for i := range want {
		if mean[i] != want[i] {
			t.Fatalf("mean = %v, want %v", mean, want)
		}
	}
}

func TestPlot(t *testing.T) {
	var buf bytes.Buffer
	err := Plot(&buf, "learning curve", []Series{
		{Name: "run-a", Rows: []Row{{1, 10, 0}, {2, 8, 0}}},
		{Name: "run-b", Rows: []Row{{1, 12, 0}, {2, 9, 0}}},
	})
	if err != nil {
		t.Fatal(err)
	}
	html := buf.String()
	for _, s := range []string{"run-a", "run-b", "mean", "learning curve"} {
		if !strings.Contains(html, s) {
			t.Errorf("chart lacks %q", s)
		}
	}
	if err := Plot(&buf, "x", nil); err == nil {
		t.Fatal("Plot without series succeeded")
	}
}
