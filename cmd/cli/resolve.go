package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wadjakorntonsri/go-shortlinks/pkg/core/domain"
)

func newResolveCmd(a *app) *cobra.Command {
	var rc domain.RequestContext

	cmd := &cobra.Command{
		Use:   "resolve CODE",
		Short: "Resolve a shortcode and record a click",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var code string
			if len(args) == 1 {
				code = args[0]
			}
			if rc.UserAgent == "" {
				rc.UserAgent = "shortlinks-cli"
			}

			out := a.links.Resolve(cmd.Context(), code, rc)
			if out.ClickErr != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: click not recorded: %v\n", out.ClickErr)
			}
			if !out.Redirecting() {
				return errors.New(out.Reason)
			}
			fmt.Fprintln(cmd.OutOrStdout(), out.Destination)
			return nil
		},
	}

	cmd.Flags().StringVar(&rc.UserAgent, "user-agent", "", "user agent recorded with the click")
	cmd.Flags().StringVar(&rc.Referrer, "referrer", "", "referrer recorded with the click")
	return cmd
}
