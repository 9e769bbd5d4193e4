package cli

import (
	"context"
	"fmt"
	"reflect"

	"github.com/spf13/cobra"

	"github.com/while-basic/Ollama-AI-Simulator/internal/config"
	"github.com/while-basic/Ollama-AI-Simulator/internal/engine"
)

var replayVerify bool

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Rebuild state from the journal and report what it contains",
	Long: "Replays the full journal into a fresh engine. With --verify the\n" +
		"journal is replayed twice and the two snapshots compared, proving\n" +
		"the rebuild is deterministic.",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		e, j, closeAll, err := loadEngine(ctx)
		if err != nil {
			exitErr("load engine", err)
		}
		defer closeAll()

		ops, err := j.Ops(ctx)
		if err != nil {
			exitErr("read journal", err)
		}

		verified := false
		if replayVerify {
			cfg, err := config.Load(configPath)
			if err != nil {
				exitErr("load config", err)
			}
			params, err := cfg.Params()
			if err != nil {
				exitErr("config params", err)
			}
			second, err := engine.New(params)
			if err != nil {
				exitErr("build engine", err)
			}
			if err := j.Replay(ctx, second); err != nil {
				exitErr("second replay", err)
			}
			if !reflect.DeepEqual(e.Snapshot(), second.Snapshot()) {
				exitErr("verify", fmt.Errorf("replay produced divergent snapshots"))
			}
			verified = true
		}

		output(struct {
			Ops      int          `json:"ops"`
			Stats    engine.Stats `json:"stats"`
			Verified bool         `json:"verified,omitempty"`
		}{len(ops), e.Stats(), verified})
	},
}

func init() {
	replayCmd.Flags().BoolVar(&replayVerify, "verify", false, "Replay twice and compare snapshots")
	RootCmd.AddCommand(replayCmd)
}
