package main

import (
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:           "checked",
		Short:         "ChessKenya tournament server",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newServeCommand(), newMigrateCommand())

	if err := root.Execute(); err != nil {
		color.New(color.FgRed, color.Bold).Fprintf(os.Stderr, "ERROR: %v\n", err)
		os.Exit(1)
	}
}
