package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var neighborsMinWeight float64

var neighborsCmd = &cobra.Command{
	Use:   "neighbors CONCEPT",
	Short: "List a concept's associations, strongest first",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		e, _, closeAll, err := loadEngine(ctx)
		if err != nil {
			exitErr("load engine", err)
		}
		defer closeAll()

		neighbors := e.Neighbors(args[0], neighborsMinWeight)
		if formatFlag == "text" {
			if len(neighbors) == 0 {
				fmt.Printf("no associations for %q\n", args[0])
				return
			}
			for _, n := range neighbors {
				fmt.Printf("%-20s -> %-20s w=%.3f n=%d tag=%s\n",
					n.Source, n.Target, n.Assoc.Weight,
					n.Assoc.ReinforcementCount, n.Assoc.Tag)
			}
			return
		}
		output(neighbors)
	},
}

func init() {
	neighborsCmd.Flags().Float64Var(&neighborsMinWeight, "min-weight", 0, "Hide associations below this weight")
	RootCmd.AddCommand(neighborsCmd)
}
