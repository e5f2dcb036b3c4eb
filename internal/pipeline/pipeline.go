package pipeline

import (
	"ansible-matrix/internal/matrix"
	"ansible-matrix/internal/scrapers/ansibledocs"
	"ansible-matrix/internal/workflow"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("ansible-matrix.internal.pipeline")

// Fetcher returns the raw html of the release and maintenance page.
type Fetcher interface {
	FetchPage(ctx context.Context) ([]byte, error)
}

type Config struct {
	WorkflowPath string
	KeyPath      []string
	// when true (the default) the workflow file is never written
	DryRun bool
	// also print the release -> core version mapping
	ShowReleases bool
	Format       Format
	Parse        ansibledocs.ParseOptions
}

func DefaultConfig() Config {
	return Config{
		WorkflowPath: workflow.DefaultPath,
		KeyPath:      workflow.DefaultKeyPath,
		DryRun:       true,
		Format:       FormatTable,
		Parse:        ansibledocs.DefaultParseOptions(),
	}
}

type Result struct {
	Releases *matrix.ReleaseMap
	Cores    *matrix.CoreMap
	Pairs    []matrix.VersionPair
	// true if the workflow file was rewritten
	Written bool
}

// Run scrapes the page, joins the two tables, prints the result to `out` and,
// unless cfg.DryRun is set, writes the pairs into the workflow file.
func Run(ctx context.Context, cfg Config, fetcher Fetcher, out io.Writer) (Result, error) {
	ctx, span := tracer.Start(ctx, "Run")
	defer span.End()

	result, err := run(ctx, cfg, fetcher, out)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "pipeline failed")
		return result, err
	}
	span.SetAttributes(
		attribute.Int("pairs", len(result.Pairs)),
		attribute.Bool("written", result.Written),
	)
	return result, nil
}

func run(ctx context.Context, cfg Config, fetcher Fetcher, out io.Writer) (Result, error) {
	var result Result

	body, err := fetcher.FetchPage(ctx)
	if err != nil {
		return result, err
	}
	doc, err := ansibledocs.ParseDocument(body)
	if err != nil {
		return result, err
	}

	result.Releases, err = ansibledocs.ParseReleases(ctx, doc, cfg.Parse)
	if err != nil {
		return result, err
	}
	result.Cores, err = ansibledocs.ParseCores(ctx, doc, cfg.Parse)
	if err != nil {
		return result, err
	}
	slog.DebugContext(
		ctx, "parsed tables",
		"releases", result.Releases.Len(),
		"cores", result.Cores.Len(),
	)

	result.Pairs, err = matrix.Join(ctx, result.Releases, result.Cores)
	if err != nil {
		return result, err
	}

	if cfg.ShowReleases {
		err = RenderReleases(out, result.Releases, cfg.Format)
		if err != nil {
			return result, err
		}
	}
	err = RenderPairs(out, result.Pairs, cfg.Format)
	if err != nil {
		return result, err
	}

	if cfg.DryRun {
		slog.InfoContext(
			ctx, "dry run, workflow left untouched",
			"path", cfg.WorkflowPath,
			"entries", len(result.Pairs),
		)
		return result, nil
	}

	keyPath := cfg.KeyPath
	if len(keyPath) == 0 {
		keyPath = workflow.DefaultKeyPath
	}
	err = workflow.UpdateMatrix(cfg.WorkflowPath, keyPath, result.Pairs)
	if err != nil {
		return result, fmt.Errorf("update %s: %w", strings.Join(keyPath, "."), err)
	}
	result.Written = true

	return result, nil
}
