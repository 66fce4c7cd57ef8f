package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/communicare/portal/internal/routes"
)

func newRoutesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "routes",
		Short: "Inspect page access rules",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "classify <path>...",
		Short: "Print whether each path is private, public or hybrid",
		Long: `Print the access class of each path.

Examples:
  portal routes classify /events/42
  portal routes classify /login /about '/help?topic=billing'`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, p := range args {
				fmt.Fprintf(w, "%s\t%s\n", routes.Normalize(p), routes.Classify(p))
			}
			return w.Flush()
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "Print the private, public and hybrid route lists",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			t := routes.Lists()
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, group := range []struct {
				class routes.Class
				paths []string
			}{
				{routes.Private, t.Private},
				{routes.Public, t.Public},
				{routes.Hybrid, t.Hybrid},
			} {
				for _, p := range group.paths {
					fmt.Fprintf(w, "%s\t%s\n", group.class, p)
				}
			}
			return w.Flush()
		},
	})
	return cmd
}
