package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/wadjakorntonsri/go-shortlinks/pkg/core/domain"
)

func newStatsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "stats [CODE]",
		Short: "Show statistics for all links, or click details for one",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if len(args) == 1 {
				ls, err := a.stats.Link(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return printLinkStats(out, ls)
			}

			snap, err := a.stats.Snapshot(cmd.Context())
			if err != nil {
				return err
			}
			return printSnapshot(out, snap)
		},
	}
}

func printSnapshot(w io.Writer, snap *domain.StatsSnapshot) error {
	if snap.Warning != "" {
		fmt.Fprintf(w, "warning: %s\n", snap.Warning)
	}
	fmt.Fprintf(w, "Links: %d (active %d, expired %d)  Clicks: %d\n\n",
		snap.TotalLinks, snap.ActiveLinks, snap.ExpiredLinks, snap.TotalClicks)
	if len(snap.Links) == 0 {
		fmt.Fprintln(w, "No links yet.")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CODE\tSTATUS\tCLICKS\t24H\tCREATED\tORIGINAL")
	for _, l := range snap.Links {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\t%s\n",
			l.ShortCode, l.Status, l.TotalClicks, l.ClicksLast24h, l.CreatedAt.Local().Format(time.DateTime), l.OriginalURL)
	}
	return tw.Flush()
}

func printLinkStats(w io.Writer, ls *domain.LinkStats) error {
	fmt.Fprintf(w, "Code:      %s\n", ls.ShortCode)
	fmt.Fprintf(w, "Original:  %s\n", ls.OriginalURL)
	fmt.Fprintf(w, "Status:    %s\n", ls.Status)
	fmt.Fprintf(w, "Expires:   %s\n", ls.ExpiresAt.Local().Format(time.DateTime))
	fmt.Fprintf(w, "Clicks:    %d (%d in the last 24h)\n", ls.TotalClicks, ls.ClicksLast24h)
	if ls.LastClick != nil {
		fmt.Fprintf(w, "Last:      %s\n", ls.LastClick.Local().Format(time.DateTime))
	}
	if len(ls.RecentClicks) == 0 {
		return nil
	}

	fmt.Fprintln(w)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "WHEN\tREFERRER\tUSER AGENT")
	for _, c := range ls.RecentClicks {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", c.Timestamp.Local().Format(time.DateTime), c.Referrer, c.UserAgent)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if ls.MoreClicks > 0 {
		fmt.Fprintf(w, "... and %d more\n", ls.MoreClicks)
	}
	return nil
}
