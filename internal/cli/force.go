package cli

import (
	"context"

	"github.com/spf13/cobra"
)

// Privileged curriculum operations. These bypass the interaction path
// and are not journaled: they exist for manual intervention while
// authoring a curriculum and do not survive a replay.

var forceReinforceDelta float64

var forcePruneCmd = &cobra.Command{
	Use:   "force-prune CONCEPT",
	Short: "Remove every association touching a concept",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		e, _, closeAll, err := loadEngine(ctx)
		if err != nil {
			exitErr("load engine", err)
		}
		defer closeAll()

		removed, err := e.ForcePrune(args[0])
		if err != nil {
			exitErr("force prune", err)
		}
		output(map[string]interface{}{"concept": args[0], "removed": removed})
	},
}

var forceReinforceCmd = &cobra.Command{
	Use:   "force-reinforce SOURCE TARGET",
	Short: "Strengthen one association outside the interaction path",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		e, _, closeAll, err := loadEngine(ctx)
		if err != nil {
			exitErr("load engine", err)
		}
		defer closeAll()

		a, err := e.ForceReinforce(args[0], args[1], forceReinforceDelta)
		if err != nil {
			exitErr("force reinforce", err)
		}
		output(a)
	},
}

func init() {
	forceReinforceCmd.Flags().Float64Var(&forceReinforceDelta, "delta", 0.3, "Reinforcement delta")
	RootCmd.AddCommand(forcePruneCmd)
	RootCmd.AddCommand(forceReinforceCmd)
}
