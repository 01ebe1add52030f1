package main

import (
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/wadjakorntonsri/go-shortlinks/pkg/core/domain"
)

func newCreateCmd(a *app) *cobra.Command {
	var (
		urls     []string
		codes    []string
		validity int
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Shorten up to 5 URLs in one all-or-nothing batch",
		Long: `Shorten one or more URLs. Every entry is validated first and nothing is
stored unless the whole batch is valid.

Example:
  shortlinks create --url https://go.dev --url example.com --code "" --code docs1`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(codes) > len(urls) {
				return errors.New("more --code flags than --url flags")
			}
			if !cmd.Flags().Changed("validity") {
				validity = a.cfg.DefaultValidityMinutes
			}

			reqs := make([]domain.CreationRequest, len(urls))
			for i, u := range urls {
				reqs[i] = domain.CreationRequest{URL: u, ValidityMinutes: validity}
				if i < len(codes) {
					reqs[i].CustomShortcode = codes[i]
				}
			}

			links, err := a.links.CreateLinks(cmd.Context(), reqs)
			if err != nil {
				var batchErr *domain.BatchError
				if errors.As(err, &batchErr) {
					for _, e := range batchErr.Entries {
						fmt.Fprintf(cmd.ErrOrStderr(), "  %s: %v\n", urls[e.Index], e.Err)
					}
				}
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "CODE\tSHORT URL\tORIGINAL\tEXPIRES")
			for _, l := range links {
				fmt.Fprintf(tw, "%s\t%s/%s\t%s\t%s\n",
					l.ShortCode, a.cfg.BaseURL, l.ShortCode, l.OriginalURL, l.ExpiresAt.Local().Format(time.DateTime))
			}
			return tw.Flush()
		},
	}

	cmd.Flags().StringArrayVarP(&urls, "url", "u", nil, "URL to shorten (repeatable)")
	cmd.Flags().StringArrayVarP(&codes, "code", "c", nil, "custom shortcode for the URL at the same position")
	cmd.Flags().IntVarP(&validity, "validity", "v", domain.DefaultValidityMinutes, "validity in minutes (1 to 43200)")
	cmd.MarkFlagRequired("url")
	return cmd
}
