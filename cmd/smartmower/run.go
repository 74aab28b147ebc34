package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"os/signal"
	"syscall"
	"time"

	"github.com/smartmower/mower/internal/config"
	"github.com/smartmower/mower/internal/core/system"
	"github.com/smartmower/mower/internal/data"
	"github.com/smartmower/mower/internal/feed"
	"github.com/smartmower/mower/internal/persist"
	"github.com/smartmower/mower/internal/scripting"
	"github.com/smartmower/mower/internal/sim"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	runGarden   string
	runEpisodes int
	runSeed     int64
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Train the mower until the episode limit is reached",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("garden") {
			cfg.Setup.Garden = runGarden
		}
		if cmd.Flags().Changed("episodes") {
			cfg.Episode.Limit = runEpisodes
		}
		if cmd.Flags().Changed("seed") {
			cfg.Setup.Seed = runSeed
		}
		if err := cfg.Check(); err != nil {
			return fmt.Errorf("flags: %w", err)
		}
		return run(cmd.Context(), cfg)
	},
}

func init() {
	runCmd.Flags().StringVar(&runGarden, "garden", "", "garden definition, overrides setup.garden")
	runCmd.Flags().IntVar(&runEpisodes, "episodes", 0, "episode limit, overrides episode.limit")
	runCmd.Flags().Int64Var(&runSeed, "seed", 0, "random seed, overrides setup.seed")
}

func run(ctx context.Context, cfg *config.Config) error {
	if ctx == nil {
		ctx = context.Background()
	}
	log, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	printBanner()

	// 1. Garden
	printSection("Garden")
	layout, err := data.LoadGarden(cfg.Setup.Garden)
	if err != nil {
		return err
	}
	printStat("Size", fmt.Sprintf("%dx%d", layout.Width, layout.Height))
	printStat("Moving obstacles", len(layout.Obstacles))
	fmt.Println()

	// 2. Table store
	printSection("Store")
	openCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	backend, err := persist.Open(openCtx, cfg, log)
	if err != nil {
		return fmt.Errorf("store: %w", err)
	}
	defer backend.Close()
	printOK(fmt.Sprintf("%s backend ready", cfg.Store.Backend))
	sink, _ := backend.(persist.StatsSink)
	fmt.Println()

	// 3. Scripts and simulation
	rng := rand.New(rand.NewSource(cfg.Setup.Seed))
	engine, err := scripting.NewEngine(cfg.Setup.ScriptsDir, rng, log)
	if err != nil {
		return fmt.Errorf("scripting: %w", err)
	}
	defer engine.Close()

	s, err := sim.New(cfg, layout, sim.Deps{
		Store:  persist.NewTableStore(backend, log),
		Policy: engine,
		Stats:  sink,
		Log:    log,
		Rand:   rng,
	})
	if err != nil {
		return err
	}
	printGarden(s.Garden().Rows())
	printParams(cfg)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 4. Live feed
	if cfg.Feed.Enabled {
		hub := feed.NewHub(log)
		hub.Attach(s.Bus())
		s.AddSystem(system.Func{P: system.PhaseOutput, Fn: func(time.Duration) { hub.Flush() }})
		go func() {
			if err := hub.Serve(ctx, cfg.Feed.Bind); err != nil {
				log.Error("feed server", zap.Error(err))
			}
		}()
		printOK(fmt.Sprintf("live feed on ws://%s/feed", cfg.Feed.Bind))
	}

	printReady(fmt.Sprintf("training started (run %s)", s.Tracker().RunID()))
	fmt.Println()
	runErr := s.Run(ctx)
	if errors.Is(runErr, context.Canceled) {
		log.Info("interrupted", zap.Int("episode", s.Controller().Episode()))
		runErr = nil
	}

	closeCtx, closeCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer closeCancel()
	if err := s.Close(closeCtx); err != nil {
		log.Warn("close statistics", zap.Error(err))
	}
	if runErr != nil {
		return runErr
	}

	printSummary(s)
	return nil
}

func printParams(cfg *config.Config) {
	printSection("Learner")
	printStat("Type", cfg.Mower.Learner)
	if cfg.Mower.Learner == config.LearnerQ {
		printStat("Greediness", cfg.QLearner.Greediness)
		printStat("Discount", cfg.QLearner.Discount)
		printStat("Learn rate", cfg.QLearner.LearnRate)
		printStat("Initial Q", cfg.QLearner.InitialQ)
		if cfg.Mower.EligibilityTraces {
			printStat("Eligibility gamma", cfg.Mower.Gamma)
		}
		if cfg.Mower.ModelPlanning {
			kind := "Dyna-Q"
			if cfg.Mower.Refined {
				kind = "refined"
			}
			printStat("Planning", fmt.Sprintf("%s, n=%d", kind, cfg.Mower.N))
		}
	}
	printStat("Episode limit", cfg.Episode.Limit)
	printStat("Seed", cfg.Setup.Seed)
	fmt.Println()
}

func printSummary(s *sim.Simulation) {
	rows := s.Tracker().Rows()
	fmt.Println()
	printSection("Summary")
	printStat("Episodes", len(rows))
	printStat("Steps", s.Steps())
	if len(rows) > 0 {
		best := rows[0]
		for _, r := range rows[1:] {
			if r.Steps < best.Steps {
				best = r
			}
		}
		printStat("First episode steps", rows[0].Steps)
		printStat("Last episode steps", rows[len(rows)-1].Steps)
		printStat(fmt.Sprintf("Best (episode %d)", best.Episode), best.Steps)
	}
	fmt.Println()
}
