package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	flags = globalFlags{}
	root := &cobra.Command{
		Use:           "scenewalk",
		Short:         "Read-only inspection of a running scene-graph runtime",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	addGlobalFlags(root)

	root.AddCommand(newVersionCmd())
	root.AddCommand(newEntitiesCmd())
	root.AddCommand(newComponentsCmd())
	root.AddCommand(newFindCmd())
	root.AddCommand(newCameraCmd())
	root.AddCommand(newWatchCmd())
	root.AddCommand(newServeCmd())
	root.AddCommand(newDemoCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "scenewalk 0.1.0-dev")
		},
	}
}
