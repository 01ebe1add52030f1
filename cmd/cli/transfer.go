package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/wadjakorntonsri/go-shortlinks/pkg/core/domain"
)

func newExportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "export",
		Short: "Dump every link with its clicks as JSON on stdout",
		RunE: func(cmd *cobra.Command, args []string) error {
			links, err := a.repo.GetAll(cmd.Context())
			if err != nil {
				return fmt.Errorf("export failed: %w", err)
			}
			if links == nil {
				links = []domain.ShortLink{}
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(links)
		},
	}
}

func newImportCmd(a *app) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Load links from an export file, skipping codes that already exist",
		RunE: func(cmd *cobra.Command, args []string) error {
			var r io.Reader = cmd.InOrStdin()
			if file != "-" {
				f, err := os.Open(file)
				if err != nil {
					return err
				}
				defer f.Close()
				r = f
			}

			var links []domain.ShortLink
			if err := json.NewDecoder(r).Decode(&links); err != nil {
				return fmt.Errorf("decode failed: %w", err)
			}

			existing, err := a.repo.ListShortcodes(cmd.Context())
			if err != nil {
				return err
			}

			var batch []domain.ShortLink
			for _, l := range links {
				if _, ok := existing[l.ShortCode]; ok {
					slog.Info("skipping existing code", slog.String("short_code", l.ShortCode))
					continue
				}
				existing[l.ShortCode] = struct{}{}
				batch = append(batch, l)
			}

			if len(batch) > 0 {
				if err := a.repo.SaveBatch(cmd.Context(), batch); err != nil {
					return fmt.Errorf("import failed: %w", err)
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d links\n", len(batch))
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "JSON file to import, - for stdin")
	cmd.MarkFlagRequired("file")
	return cmd
}
