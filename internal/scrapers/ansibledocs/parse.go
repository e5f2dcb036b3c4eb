package ansibledocs

import (
	"ansible-matrix/internal/matrix"
	"ansible-matrix/lib/htmlutil"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var meter = otel.Meter("ansible-matrix.scrapers.ansibledocs")

var rowsSkipped, _ = meter.Int64Counter("ansibledocs.rows_skipped")

// StatusInDevelopment marks releases that have not shipped yet, they are
// never part of the matrix.
const StatusInDevelopment = "In development (unreleased)"

var ErrUnknownStrategy = errors.New("unknown extraction strategy")

// VersionStrategy decides how the release version is read out of the first
// cell of a release table row.
type VersionStrategy string

const (
	// the first whitespace delimited token, "10.0.0 (EOL)" -> "10.0.0"
	VersionFirstToken VersionStrategy = "first-token"
	// the whole cell with surrounding whitespace trimmed
	VersionFullText VersionStrategy = "full-text"
)

// InterpreterStrategy decides how the python versions of a core table row
// are read.
type InterpreterStrategy string

const (
	// column 3 (controller python), only the newest version is kept:
	// "Python 3.9, Python 3.10 - 3.12" -> ["3.12"]
	InterpreterControllerLatest InterpreterStrategy = "controller-latest"
	// column 1, comma separated: "3.9, 3.10,3.11" -> ["3.9", "3.10", "3.11"]
	InterpreterCommaList InterpreterStrategy = "comma-list"
)

type ParseOptions struct {
	Releases    htmlutil.TableQuery
	Cores       htmlutil.TableQuery
	Version     VersionStrategy
	Interpreter InterpreterStrategy
}

func DefaultParseOptions() ParseOptions {
	return ParseOptions{
		Releases: htmlutil.TableQuery{
			Header: "Core version dependency",
			Fuzzy:  true,
		},
		Cores: htmlutil.TableQuery{
			Header: "Controller Python",
			Fuzzy:  true,
		},
		Version:     VersionFirstToken,
		Interpreter: InterpreterControllerLatest,
	}
}

func (s VersionStrategy) extract(cell string) (string, error) {
	switch s {
	case VersionFirstToken, "":
		fields := strings.Fields(cell)
		if len(fields) == 0 {
			return "", nil
		}
		return fields[0], nil
	case VersionFullText:
		return strings.TrimSpace(cell), nil
	}
	return "", fmt.Errorf("%w: version strategy %q", ErrUnknownStrategy, string(s))
}

func (s InterpreterStrategy) minCells() (int, error) {
	switch s {
	case InterpreterControllerLatest, "":
		return 5, nil
	case InterpreterCommaList:
		return 2, nil
	}
	return 0, fmt.Errorf("%w: interpreter strategy %q", ErrUnknownStrategy, string(s))
}

func (s InterpreterStrategy) extract(cells []string) []string {
	switch s {
	case InterpreterCommaList:
		var out []string
		for _, v := range strings.Split(cells[1], ",") {
			v = strings.TrimSpace(v)
			if v == "" {
				continue
			}
			out = append(out, v)
		}
		return out
	default:
		listed := strings.Split(strings.TrimSpace(cells[3]), ", ")
		tokens := strings.Fields(listed[len(listed)-1])
		if len(tokens) == 0 {
			return nil
		}
		return []string{tokens[len(tokens)-1]}
	}
}

func skipRow(ctx context.Context, table, reason string) {
	rowsSkipped.Add(ctx, 1, metric.WithAttributes(
		attribute.String("table", table),
		attribute.String("reason", reason),
	))
}

// ParseReleases reads the community release table into a release -> core
// version map. Rows with fewer than 3 cells and releases still in
// development are left out.
func ParseReleases(ctx context.Context, doc *goquery.Document, opts ParseOptions) (*matrix.ReleaseMap, error) {
	ctx, span := tracer.Start(ctx, "ParseReleases")
	defer span.End()

	if _, err := opts.Version.extract(""); err != nil {
		return nil, err
	}

	table, err := htmlutil.FindTable(ctx, doc, opts.Releases)
	if err != nil {
		return nil, fmt.Errorf("release table: %w", err)
	}

	releases := matrix.NewReleaseMap()
	for _, row := range htmlutil.DataRows(table) {
		cells := htmlutil.Cells(row)
		if len(cells) < 3 {
			skipRow(ctx, "releases", "short")
			continue
		}

		version, _ := opts.Version.extract(cells[0])
		status := strings.TrimSpace(cells[1])
		core := strings.TrimSpace(cells[2])

		if version == "" {
			slog.WarnContext(ctx, "release row has no version", "status", status, "core", core)
			skipRow(ctx, "releases", "empty")
			continue
		}
		if status == StatusInDevelopment {
			slog.DebugContext(ctx, "skipping unreleased version", "release", version)
			skipRow(ctx, "releases", "unreleased")
			continue
		}

		releases.Set(version, core)
	}

	span.SetAttributes(attribute.Int("releases", releases.Len()))
	return releases, nil
}

// ParseCores reads the ansible-core support table into a core version ->
// python versions map.
func ParseCores(ctx context.Context, doc *goquery.Document, opts ParseOptions) (*matrix.CoreMap, error) {
	ctx, span := tracer.Start(ctx, "ParseCores")
	defer span.End()

	minCells, err := opts.Interpreter.minCells()
	if err != nil {
		return nil, err
	}

	table, err := htmlutil.FindTable(ctx, doc, opts.Cores)
	if err != nil {
		return nil, fmt.Errorf("core table: %w", err)
	}

	cores := matrix.NewCoreMap()
	for _, row := range htmlutil.DataRows(table) {
		cells := htmlutil.Cells(row)
		if len(cells) < minCells {
			skipRow(ctx, "cores", "short")
			continue
		}

		core := strings.TrimSpace(cells[0])
		cores.Set(core, opts.Interpreter.extract(cells))
	}

	span.SetAttributes(attribute.Int("cores", cores.Len()))
	return cores, nil
}
