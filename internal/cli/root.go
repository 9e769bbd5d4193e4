// Package cli implements the babysim CLI commands.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/while-basic/Ollama-AI-Simulator/internal/config"
	"github.com/while-basic/Ollama-AI-Simulator/internal/engine"
	"github.com/while-basic/Ollama-AI-Simulator/internal/store"
)

var (
	dbPath     string
	configPath string
	formatFlag string
	quietFlag  bool
)

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:   "babysim",
	Short: "Developmental memory engine for a learner agent",
	Long: "babysim maintains a learner's associative memory: Hebbian reinforcement,\n" +
		"time decay, dream-cycle consolidation, milestones and growth stages.\n" +
		"State is rebuilt from an append-only SQLite journal on every invocation.",
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&dbPath, "db", "d", "", "Journal path (default: $BABYSIM_DB or ~/.babysim/journal.db)")
	RootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (YAML); defaults apply when omitted")
	RootCmd.PersistentFlags().StringVarP(&formatFlag, "format", "f", "json", "Output format: json or text")
	RootCmd.PersistentFlags().BoolVarP(&quietFlag, "quiet", "q", false, "Suppress log output")
}

func getDBPath() string {
	if dbPath != "" {
		return dbPath
	}
	if env := os.Getenv("BABYSIM_DB"); env != "" {
		return env
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".babysim", "journal.db")
}

// loadEngine builds the engine from configuration and replays the
// journal into it. The returned close function flushes the logger and
// closes the journal.
func loadEngine(ctx context.Context) (*engine.Engine, *store.Journal, func(), error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, nil, err
	}

	logger := zap.NewNop()
	if !quietFlag {
		logger, err = cfg.BuildLogger()
		if err != nil {
			return nil, nil, nil, err
		}
	}

	params, err := cfg.Params()
	if err != nil {
		return nil, nil, nil, err
	}
	params.Logger = logger

	e, err := engine.New(params)
	if err != nil {
		return nil, nil, nil, err
	}

	j, err := store.Open(getDBPath())
	if err != nil {
		return nil, nil, nil, err
	}
	if err := j.Replay(ctx, e); err != nil {
		j.Close()
		return nil, nil, nil, err
	}

	closeAll := func() {
		logger.Sync()
		j.Close()
	}
	return e, j, closeAll, nil
}

func output(v interface{}) {
	if formatFlag == "text" {
		fmt.Printf("%+v\n", v)
		return
	}
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		exitErr("encode output", err)
	}
	fmt.Println(string(b))
}

func exitErr(msg string, err error) {
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
	os.Exit(1)
}
