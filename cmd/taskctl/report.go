package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newReportCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Per-tag reports",
	}
	cmd.AddCommand(newReportRelCmd(a), newReportSolvedCmd(a))
	return cmd
}

func newReportRelCmd(a *app) *cobra.Command {
	var user int
	cmd := &cobra.Command{
		Use:   "rel",
		Short: "Tasks grouped by tag",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			uid, err := a.userID(ctx, user)
			if err != nil {
				return err
			}
			groups, err := a.client.Tasks().Rel(ctx, uid)
			if err != nil {
				return err
			}
			return a.render(cmd.OutOrStdout(), groups, func(tw *tabwriter.Writer) {
				fmt.Fprintln(tw, "TAG\tTASK ID\tTITLE\tCLOSED")
				for _, g := range groups {
					if len(g.Tasks) == 0 {
						fmt.Fprintf(tw, "%s\t-\t\t\n", g.TagName)
					}
					for _, t := range g.Tasks {
						fmt.Fprintf(tw, "%s\t%d\t%s\t%t\n", g.TagName, t.ID, deref(t.Title), t.IsClosed())
					}
				}
			})
		},
	}
	cmd.Flags().IntVar(&user, "user", 0, "user ID (default: current user)")
	return cmd
}

func newReportSolvedCmd(a *app) *cobra.Command {
	var user int
	cmd := &cobra.Command{
		Use:   "solved",
		Short: "Resolved and unresolved task counts per tag",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			uid, err := a.userID(ctx, user)
			if err != nil {
				return err
			}
			counts, err := a.client.Tasks().Solved(ctx, uid)
			if err != nil {
				return err
			}
			return a.render(cmd.OutOrStdout(), counts, func(tw *tabwriter.Writer) {
				fmt.Fprintln(tw, "TAG\tRESOLVED\tUNRESOLVED")
				for _, c := range counts {
					fmt.Fprintf(tw, "%s\t%d\t%d\n", c.TagName, c.Resolved, c.Unresolved)
				}
			})
		},
	}
	cmd.Flags().IntVar(&user, "user", 0, "user ID (default: current user)")
	return cmd
}
