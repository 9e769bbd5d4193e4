package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"
)

var dreamTimeout time.Duration

var dreamCmd = &cobra.Command{
	Use:   "dream",
	Short: "Run one consolidation cycle: prune, replay, synthesize",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		e, j, closeAll, err := loadEngine(ctx)
		if err != nil {
			exitErr("load engine", err)
		}
		defer closeAll()

		runCtx := ctx
		if dreamTimeout > 0 {
			var cancel context.CancelFunc
			runCtx, cancel = context.WithTimeout(ctx, dreamTimeout)
			defer cancel()
		}

		report, err := e.Dream(runCtx)
		if err != nil {
			exitErr("dream", err)
		}
		if err := j.AppendDream(ctx, e.Clock()); err != nil {
			exitErr("journal", err)
		}
		output(report)
	},
}

func init() {
	dreamCmd.Flags().DurationVar(&dreamTimeout, "timeout", 0, "Abort the cycle if planning exceeds this duration")
	RootCmd.AddCommand(dreamCmd)
}
