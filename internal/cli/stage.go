package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/while-basic/Ollama-AI-Simulator/internal/model"
)

var stageCmd = &cobra.Command{
	Use:   "stage",
	Short: "Show the current developmental stage and transition history",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		e, _, closeAll, err := loadEngine(ctx)
		if err != nil {
			exitErr("load engine", err)
		}
		defer closeAll()

		snap := e.Snapshot()
		out := struct {
			Stage        model.Stage                  `json:"stage"`
			TicksInStage int64                        `json:"ticks_in_stage"`
			Evidence     float64                      `json:"evidence"`
			Transitions  []model.StageTransitionEvent `json:"transitions,omitempty"`
		}{snap.Stage, snap.TicksInStage, snap.Evidence, snap.Transitions}

		if formatFlag == "text" {
			fmt.Printf("stage: %s (ticks in stage: %d, evidence: %.2f)\n",
				out.Stage, out.TicksInStage, out.Evidence)
			for _, tr := range out.Transitions {
				fmt.Printf("  tick %-6d %s -> %s\n", tr.Tick, tr.From, tr.To)
			}
			return
		}
		output(out)
	},
}

func init() {
	RootCmd.AddCommand(stageCmd)
}
