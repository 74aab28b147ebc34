package stats

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
)

// CSV column names.
const (
	ColEpisode     = "Episode"
	ColStepsNeeded = "StepsNeeded"
	ColReward      = "Reward"
)

// Row is one ended episode.
type Row struct {
	Episode int
	Steps   int
	Reward  float64
}

// Writer appends rows to a ';' separated statistics file.
type Writer struct {
	f *os.File
	w *csv.Writer
}

// Create truncates path and writes the header line.
func Create(path string) (*Writer, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("stats: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("stats: %w", err)
	}
	w := newWriter(f)
	w.f = f
	if err := w.write([]string{ColEpisode, ColStepsNeeded, ColReward}); err != nil {
		f.Close()
		return nil, err
	}
	return w, nil
}

func newWriter(out io.Writer) *Writer {
	cw := csv.NewWriter(out)
	cw.Comma = ';'
	return &Writer{w: cw}
}

func (w *Writer) write(rec []string) error {
	if err := w.w.Write(rec); err != nil {
		return fmt.Errorf("stats: write: %w", err)
	}
	w.w.Flush()
	return w.w.Error()
}

// Write appends r and flushes it to disk.
func (w *Writer) Write(r Row) error {
	return w.write([]string{
		strconv.Itoa(r.Episode),
		strconv.Itoa(r.Steps),
		strconv.FormatFloat(r.Reward, 'f', -1, 64),
	})
}

func (w *Writer) Close() error {
	w.w.Flush()
	if w.f == nil {
		return w.w.Error()
	}
	return errors.Join(w.w.Error(), w.f.Close())
}

// ReadFile reads a statistics file written by Writer. Files without the
// Reward column are accepted; their rewards read as zero.
func ReadFile(path string) ([]Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("stats: %w", err)
	}
	defer f.Close()
	rows, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("stats %s: %w", path, err)
	}
	return rows, nil
}

func Read(r io.Reader) ([]Row, error) {
	cr := csv.NewReader(r)
	cr.Comma = ';'
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	cols := map[string]int{}
	for i, h := range header {
		cols[h] = i
	}
	ei, ok1 := cols[ColEpisode]
	si, ok2 := cols[ColStepsNeeded]
	if !ok1 || !ok2 {
		return nil, fmt.Errorf("header %v lacks %s or %s", header, ColEpisode, ColStepsNeeded)
	}
	ri, hasReward := cols[ColReward]

	var rows []Row
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return rows, nil
		}
		if err != nil {
			return nil, err
		}
		var row Row
		if row.Episode, err = field(rec, ei, strconv.Atoi); err != nil {
			return nil, fmt.Errorf("line %d: %s: %w", line, ColEpisode, err)
		}
		if row.Steps, err = field(rec, si, strconv.Atoi); err != nil {
			return nil, fmt.Errorf("line %d: %s: %w", line, ColStepsNeeded, err)
		}
		if hasReward {
			if row.Reward, err = field(rec, ri, parseFloat); err != nil {
				return nil, fmt.Errorf("line %d: %s: %w", line, ColReward, err)
			}
		}
		rows = append(rows, row)
	}
}

func parseFloat(s string) (float64, error) { return strconv.ParseFloat(s, 64) }

func field[T any](rec []string, i int, parse func(string) (T, error)) (T, error) {
	var zero T
	if i >= len(rec) {
		return zero, errors.New("missing field")
	}
	return parse(rec[i])
}
