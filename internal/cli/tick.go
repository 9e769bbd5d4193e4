package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var tickCmd = &cobra.Command{
	Use:   "tick N",
	Short: "Advance the simulation clock N ticks and run decay",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		n, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			exitErr("parse ticks", err)
		}
		if n <= 0 {
			exitErr("parse ticks", fmt.Errorf("ticks must be positive, got %d", n))
		}

		ctx := context.Background()
		e, j, closeAll, err := loadEngine(ctx)
		if err != nil {
			exitErr("load engine", err)
		}
		defer closeAll()

		decayed, transition, err := e.AdvanceClock(n)
		if err != nil {
			exitErr("advance clock", err)
		}
		if err := j.AppendTick(ctx, e.Clock(), n); err != nil {
			exitErr("journal", err)
		}
		if transition != nil {
			j.RecordTransition(ctx, *transition)
		}

		out := map[string]interface{}{
			"tick":    e.Clock(),
			"decayed": decayed,
		}
		if transition != nil {
			out["transition"] = transition
		}
		output(out)
	},
}

func init() {
	RootCmd.AddCommand(tickCmd)
}
