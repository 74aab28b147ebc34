package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const minimal = `
[episode]
limit = 5

[mower]
learner = "QLearner"
mow_reward = 10
not_mown_reward = -1

[qlearner]
greediness = 0.9
discount = 0.9
learn_rate = 0.7
initial_q = 0.5
`

const randomMinimal = `
[episode]
limit = 1
[mower]
learner = "RandomLearner"
mow_reward = 10
not_mown_reward = -1
`

func TestParseDefaults(t *testing.T) {
	cfg, err := Parse(minimal)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Setup.Seed != 42 {
		t.Errorf("seed = %d, want 42", cfg.Setup.Seed)
	}
	if cfg.Mower.NumRetries != 1 {
		t.Errorf("num_retries = %d, want 1", cfg.Mower.NumRetries)
	}
	if cfg.Episode.Limit != 5 || cfg.QLearner.InitialQ != 0.5 || cfg.Mower.NotMownReward != -1 {
		t.Errorf("file values not applied: %+v", cfg)
	}
	if cfg.QLearner.Greediness != 0.9 || cfg.QLearner.LearnRate != 0.7 || cfg.Mower.MowReward != 10 {
		t.Errorf("learning values not applied: %+v", cfg)
	}
	if cfg.Store.Backend != BackendFile {
		t.Errorf("backend = %q, want file", cfg.Store.Backend)
	}
}

func TestParseDuration(t *testing.T) {
	cfg, err := Parse(minimal + "\n[setup]\ntick_rate = \"250ms\"\n")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Setup.TickRate != 250*time.Millisecond {
		t.Fatalf("tick_rate = %s, want 250ms", cfg.Setup.TickRate)
	}
}

// without removes the line defining key from a fixture.
func without(fixture, key string) string {
	var out []string
	for _, line := range strings.Split(fixture, "\n") {
		if strings.HasPrefix(line, key+" =") {
			continue
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		missing bool
		want    string
	}{
		{"no limit", without(randomMinimal, "limit"), true, "episode.limit"},
		{"no learner", without(randomMinimal, "learner"), true, "mower.learner"},
		{"no mow reward", without(randomMinimal, "mow_reward"), true, "mower.mow_reward"},
		{"no not mown reward", without(minimal, "not_mown_reward"), true, "mower.not_mown_reward"},
		{"no initial q", without(minimal, "initial_q"), true, "qlearner.initial_q"},
		{"no greediness", without(minimal, "greediness"), true, "qlearner.greediness"},
		{"no discount", without(minimal, "discount"), true, "qlearner.discount"},
		{"no learn rate", without(minimal, "learn_rate"), true, "qlearner.learn_rate"},
		{"unknown learner", strings.Replace(randomMinimal, "RandomLearner", "Sarsa", 1), false, "unknown learner"},
		{"wrong type", strings.Replace(randomMinimal, "limit = 1", `limit = "many"`, 1), false, "parse"},
		{"greediness range", strings.Replace(minimal, "greediness = 0.9", "greediness = 1.5", 1), false, "qlearner.greediness"},
		{"bad backend", minimal + `
[store]
backend = "redis"`, false, "unknown backend"},
		{"negative n", randomMinimal + "n = -2\n", false, "mower.n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.data)
			if err == nil {
				t.Fatal("Parse succeeded")
			}
			if tt.missing != errors.Is(err, ErrMissing) {
				t.Errorf("errors.Is(ErrMissing) = %v, want %v (%v)", !tt.missing, tt.missing, err)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestRandomLearnerNeedsNoQLearnerKeys(t *testing.T) {
	if _, err := Parse(randomMinimal); err != nil {
		t.Fatalf("Parse: %v", err)
	}
}

func TestCheckAfterOverride(t *testing.T) {
	cfg, err := Parse(minimal)
	if err != nil {
		t.Fatal(err)
	}
	if err := cfg.Check(); err != nil {
		t.Fatalf("Check: %v", err)
	}
	cfg.Episode.Limit = -3
	if err := cfg.Check(); err == nil || !strings.Contains(err.Error(), "episode.limit") {
		t.Fatalf("Check = %v, want episode.limit error", err)
	}
	cfg.Episode.Limit = 3
	cfg.Setup.Garden = ""
	if err := cfg.Check(); err == nil || !strings.Contains(err.Error(), "setup.garden") {
		t.Fatalf("Check = %v, want setup.garden error", err)
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "smartmower.toml")
	if err := os.WriteFile(path, []byte(minimal), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Fatal("Load of a missing file succeeded")
	}
}

func TestResolvePath(t *testing.T) {
	t.Setenv(EnvPath, "")
	if got := ResolvePath(""); got != DefaultPath {
		t.Errorf("ResolvePath = %q, want %q", got, DefaultPath)
	}
	t.Setenv(EnvPath, "/etc/mower.toml")
	if got := ResolvePath(""); got != "/etc/mower.toml" {
		t.Errorf("ResolvePath = %q, want env value", got)
	}
	if got := ResolvePath("x.toml"); got != "x.toml" {
		t.Errorf("ResolvePath = %q, want flag value", got)
	}
}

func TestShippedConfig(t *testing.T) {
	cfg, err := Load(filepath.Join("..", "..", DefaultPath))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Mower.Learner != LearnerQ || cfg.Database.ConnMaxLifetime != 30*time.Minute {
		t.Fatalf("unexpected config: %+v", cfg)
	}
}
