package commands

import (
	"ansible-matrix/internal/pipeline"
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(scrapeCmd)
}

// newFetcher builds the http client for the release docs, tests swap it
// for a canned page.
var newFetcher = func(cfg Config, verbose bool) (pipeline.Fetcher, error) {
	return cfg.newClient(verbose)
}

// prepare resolves the config file and flags into a pipeline config and an
// http client.
func prepare(cmd *cobra.Command) (Config, pipeline.Config, pipeline.Fetcher, error) {
	cfg, err := loadConfig(flags.config)
	if err != nil {
		return cfg, pipeline.Config{}, nil, fmt.Errorf("failed to read config: %w", err)
	}
	applyFlags(cmd, &cfg)

	pcfg, err := cfg.pipelineConfig()
	if err != nil {
		return cfg, pcfg, nil, fmt.Errorf("invalid config: %w", err)
	}
	pcfg.ShowReleases = flags.showReleases

	fetcher, err := newFetcher(cfg, flags.verbose)
	if err != nil {
		return cfg, pcfg, nil, fmt.Errorf("failed to initialize client: %w", err)
	}
	return cfg, pcfg, fetcher, nil
}

func execute(ctx context.Context, pcfg pipeline.Config, fetcher pipeline.Fetcher, out io.Writer) (pipeline.Result, error) {
	t1 := time.Now()
	result, err := pipeline.Run(ctx, pcfg, fetcher, out)
	if err != nil {
		return result, fmt.Errorf("failed to build version matrix: %w", err)
	}
	t2 := time.Now()

	slog.Debug("scraping time", "seconds", t2.Sub(t1).Seconds())
	return result, nil
}

var scrapeCmd = &cobra.Command{
	Use:   "scrape [--url <page>] [--show-releases] [--format table|plain]",
	Short: "Scrapes the release docs and prints the version pairs, never writes anything.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, pcfg, fetcher, err := prepare(cmd)
		if err != nil {
			return err
		}
		// scrape is read-only whatever the config says
		pcfg.DryRun = true

		slog.Info("scraping release docs", "url", cfg.Url)
		_, err = execute(cmd.Context(), pcfg, fetcher, cmd.OutOrStdout())
		return err
	},
}
