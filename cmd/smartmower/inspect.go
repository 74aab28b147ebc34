package main

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/smartmower/mower/internal/grid"
	"github.com/smartmower/mower/internal/persist"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <location>",
	Short: "Print a summary of a saved learner table",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		backend, err := persist.Open(ctx, cfg, zap.NewNop())
		if err != nil {
			return fmt.Errorf("store: %w", err)
		}
		defer backend.Close()

		snap, err := backend.Load(ctx, args[0])
		if err != nil {
			return err
		}
		printSnapshot(args[0], snap)
		return nil
	},
}

func printSnapshot(loc string, s *persist.Snapshot) {
	printSection(loc)
	printStat("Kind", string(s.Kind))
	printStat("Records", s.Len())

	switch s.Kind {
	case persist.KindQTable, persist.KindEligibility:
		printStat("Initial value", s.Initial)
		if len(s.Values) > 0 {
			lo, hi, sum := math.Inf(1), math.Inf(-1), 0.0
			for _, r := range s.Values {
				lo = math.Min(lo, r.Value)
				hi = math.Max(hi, r.Value)
				sum += r.Value
			}
			printStat("Min", lo)
			printStat("Max", hi)
			printStat("Mean", sum/float64(len(s.Values)))
		}
	case persist.KindDynaModel:
		var sum float64
		for _, r := range s.Outcomes {
			sum += r.Reward
		}
		if len(s.Outcomes) > 0 {
			printStat("Mean reward", sum/float64(len(s.Outcomes)))
		}
	case persist.KindModel:
		printStat("Size", fmt.Sprintf("%dx%d", s.Width, s.Height))
		counts := map[grid.MowStatus]int{}
		for _, b := range s.Beliefs {
			counts[b]++
		}
		for _, st := range []grid.MowStatus{grid.LongGrass, grid.ShortGrass, grid.ChargingStation, grid.Obstacle} {
			printStat(st.String(), counts[st])
		}
		rows := make([]string, 0, s.Height)
		for y := 0; y < s.Height && (y+1)*s.Width <= len(s.Beliefs); y++ {
			b := make([]byte, s.Width)
			for x := range b {
				b[x] = s.Beliefs[y*s.Width+x].Code()
			}
			rows = append(rows, string(b))
		}
		fmt.Println()
		printGarden(rows)
	}
}
