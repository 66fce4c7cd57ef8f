// Portal serves the Communicare community portal API.
//
// Usage:
//
//	# Start the server with ~/.config/portal/config.yaml and PORTAL_* overrides
//	portal serve
//
//	# Classify a page path
//	portal routes classify /events/42
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "portal",
		Short: "Communicare community portal",
		Long: `portal serves the Communicare API: landing content, community and
member registration, login and logout, and page access rules.`,
		Version:      version,
		SilenceUsage: true,
	}
	root.AddCommand(newServeCmd(), newRoutesCmd(), newVersionCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "portal by Communicare\n")
			fmt.Fprintf(out, "Version:    %s\n", version)
			fmt.Fprintf(out, "Commit:     %s\n", gitCommit)
			fmt.Fprintf(out, "Build Date: %s\n", buildDate)
		},
	}
}
