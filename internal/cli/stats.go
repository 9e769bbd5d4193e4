package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/while-basic/Ollama-AI-Simulator/internal/engine"
	"github.com/while-basic/Ollama-AI-Simulator/internal/store"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show memory and journal statistics",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		e, j, closeAll, err := loadEngine(ctx)
		if err != nil {
			exitErr("load engine", err)
		}
		defer closeAll()

		journalStats, err := j.Stats(ctx, getDBPath())
		if err != nil {
			exitErr("journal stats", err)
		}
		output(struct {
			Memory  engine.Stats `json:"memory"`
			Journal *store.Stats `json:"journal"`
		}{e.Stats(), journalStats})
	},
}

func init() {
	RootCmd.AddCommand(statsCmd)
}
