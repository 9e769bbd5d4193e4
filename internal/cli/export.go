package cli

import (
	"context"
	"encoding/json"
	"os"

	"github.com/spf13/cobra"
)

var exportOutput string

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the full learner state as JSON",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		e, _, closeAll, err := loadEngine(ctx)
		if err != nil {
			exitErr("load engine", err)
		}
		defer closeAll()

		snap := e.Snapshot()
		if exportOutput == "" {
			output(snap)
			return
		}
		b, err := json.MarshalIndent(snap, "", "  ")
		if err != nil {
			exitErr("encode snapshot", err)
		}
		if err := os.WriteFile(exportOutput, b, 0o644); err != nil {
			exitErr("write snapshot", err)
		}
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Write to file instead of stdout")
	RootCmd.AddCommand(exportCmd)
}
