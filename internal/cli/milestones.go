package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/while-basic/Ollama-AI-Simulator/internal/milestone"
	"github.com/while-basic/Ollama-AI-Simulator/internal/model"
)

var milestonesPending bool

var milestonesCmd = &cobra.Command{
	Use:   "milestones",
	Short: "Show fired milestones and per-stage progress",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		e, _, closeAll, err := loadEngine(ctx)
		if err != nil {
			exitErr("load engine", err)
		}
		defer closeAll()

		if milestonesPending {
			pending := e.PendingMilestones()
			if formatFlag == "text" {
				for _, d := range pending {
					fmt.Printf("%-24s %s\n", d.ID, d.Title)
				}
				return
			}
			output(pending)
			return
		}

		snap := e.Snapshot()
		out := struct {
			Fired   []model.MilestoneEvent `json:"fired"`
			Summary []milestone.Summary    `json:"summary"`
		}{snap.Milestones, e.MilestoneSummary()}
		if formatFlag == "text" {
			for _, ev := range out.Fired {
				fmt.Printf("tick %-6d %-24s %q\n", ev.Tick, ev.MilestoneID, ev.MatchedText)
			}
			for _, s := range out.Summary {
				fmt.Printf("%-10s %d/%d\n", s.Stage, s.Fired, s.Total)
			}
			return
		}
		output(out)
	},
}

func init() {
	milestonesCmd.Flags().BoolVar(&milestonesPending, "pending", false, "Show not-yet-fired milestones for the current stage")
	RootCmd.AddCommand(milestonesCmd)
}
