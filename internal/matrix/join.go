package matrix

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
)

var tracer = otel.Tracer("ansible-matrix.internal.matrix")
var meter = otel.Meter("ansible-matrix.internal.matrix")

var pairsEmitted, _ = meter.Int64Counter("matrix.pairs_emitted")
var releasesUnmatched, _ = meter.Int64Counter("matrix.releases_unmatched")

var ErrMalformedVersion = errors.New("malformed release version")

// Tag returns the major.minor part of a release version, "2.15.3" -> "2.15".
func Tag(version string) (string, error) {
	segments := strings.Split(version, ".")
	if len(segments) < 2 {
		return "", fmt.Errorf("%w: %q has no minor component", ErrMalformedVersion, version)
	}
	return segments[0] + "." + segments[1], nil
}

// Join emits one VersionPair for every python version of every release's
// core version. Output follows the insertion order of `releases` and then the
// order of each core's python list. Releases whose core version is missing
// from `cores` produce nothing.
func Join(ctx context.Context, releases *ReleaseMap, cores *CoreMap) ([]VersionPair, error) {
	ctx, span := tracer.Start(ctx, "Join")
	defer span.End()

	pairs := []VersionPair{}
	for _, release := range releases.Keys() {
		core, _ := releases.Get(release)
		pythons, ok := cores.Get(core)
		if !ok {
			slog.DebugContext(ctx, "release has no matching core version", "release", release, "core", core)
			releasesUnmatched.Add(ctx, 1)
			continue
		}
		if len(pythons) == 0 {
			continue
		}

		tag, err := Tag(release)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to derive tag")
			return nil, err
		}

		for _, python := range pythons {
			pairs = append(pairs, VersionPair{
				Ansible: release,
				Python:  python,
				Tag:     tag,
			})
		}
	}

	pairsEmitted.Add(ctx, int64(len(pairs)), metric.WithAttributes(
		attribute.Int("releases", releases.Len()),
	))
	span.SetAttributes(attribute.Int("pairs", len(pairs)))
	return pairs, nil
}
