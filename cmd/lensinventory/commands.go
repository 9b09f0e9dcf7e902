package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"LensInventory/internal/app"
	"LensInventory/internal/config"
	"LensInventory/internal/domain"
	"LensInventory/internal/logging"
)

func newRootCmd(out io.Writer, in io.Reader) *cobra.Command {
	var logLevel string

	root := &cobra.Command{
		Use:           "lensinventory",
		Short:         "Turn product pictures into marketplace-ready listings",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "override logging.level")

	setup := func(ctx context.Context) (*app.Application, error) {
		cfg := config.Load()
		if logLevel != "" {
			cfg.Logging.Level = logLevel
		}
		logger := logging.NewWithFormat(os.Stderr, cfg.Logging.Level, cfg.Logging.Format)
		return app.New(ctx, cfg, logger)
	}

	root.AddCommand(newServeCmd(setup), newGenerateCmd(setup, out, in), newPlatformsCmd(setup, out))
	return root
}

type setupFunc func(ctx context.Context) (*app.Application, error)

func newServeCmd(setup setupFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := setup(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()
			return a.Serve(cmd.Context())
		},
	}
}

func newGenerateCmd(setup setupFunc, out io.Writer, in io.Reader) *cobra.Command {
	var (
		analysisPath string
		platforms    []string
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate listings from a product analysis JSON file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			analysis, err := readAnalysis(analysisPath, in)
			if err != nil {
				return err
			}

			a, err := setup(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			result, err := a.Listings().FromAnalysis(cmd.Context(), "", analysis, splitList(platforms))
			if err != nil {
				return fmt.Errorf("generate listings: %w", err)
			}

			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			enc.SetEscapeHTML(false)
			return enc.Encode(result)
		},
	}
	cmd.Flags().StringVarP(&analysisPath, "analysis", "a", "-", "product analysis JSON file, - for stdin")
	cmd.Flags().StringSliceVarP(&platforms, "platform", "p", nil, "target platforms (default: configured platforms)")
	return cmd
}

func newPlatformsCmd(setup setupFunc, out io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "platforms",
		Short: "List the platform profiles of the rule book",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := setup(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tTITLE\tDESCRIPTION\tTAGS\tBLOCKS")
			for _, p := range a.Rules().Platforms().Profiles() {
				fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%s\n", p.ID, p.TitleLengthLimit,
					p.DescriptionLengthLimit, p.TagsCountLimit, strings.Join(p.Blocks, ","))
			}
			return tw.Flush()
		},
	}
}

func readAnalysis(path string, in io.Reader) (domain.ProductAnalysis, error) {
	var r io.Reader = in
	if path != "" && path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return domain.ProductAnalysis{}, fmt.Errorf("open analysis: %w", err)
		}
		defer f.Close()
		r = f
	}

	var analysis domain.ProductAnalysis
	if err := json.NewDecoder(r).Decode(&analysis); err != nil {
		return domain.ProductAnalysis{}, fmt.Errorf("decode analysis: %w", err)
	}
	return analysis, nil
}

func splitList(values []string) []string {
	var out []string
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

