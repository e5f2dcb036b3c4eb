package commands

import (
	"ansible-matrix/lib/telemetry"
	"ansible-matrix/lib/util/serviceutil"
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/attribute"
)

// overridden at build time with -ldflags "-X ansible-matrix/cmd/ansible-matrix/commands.version=..."
var version = "dev"

var flags struct {
	config              string
	url                 string
	verbose             bool
	showReleases        bool
	format              string
	versionStrategy     string
	interpreterStrategy string
	bypassCloudflare    bool
}

var tel telemetry.Telemetry

var rootCmd = &cobra.Command{
	Use:     "ansible-matrix",
	Short:   "ansible-matrix derives the ansible/python build matrix from the ansible release docs.",
	Version: version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		telemetry.InitSlog(flags.verbose)

		var err error
		tel, err = telemetry.SetupFromEnv(cmd.Context(), telemetry.Options{
			ServiceName:    "ansible-matrix",
			ServiceVersion: version,
			Attributes:     []attribute.KeyValue{attribute.String("cli.command", cmd.Name())},
		})
		if errors.Is(err, telemetry.ErrNoConfig) {
			slog.Debug("telemetry disabled, no telemetry.json5 found")
			return nil
		}
		if err != nil {
			slog.Warn("failed to setup telemetry", "err", err)
		}
		return nil
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	pflags := rootCmd.PersistentFlags()
	pflags.StringVar(&flags.config, "config", "ansible-matrix.json5", "The configuration file, a missing file means defaults.")
	pflags.StringVar(&flags.url, "url", "", "The release and maintenance page to scrape.")
	pflags.BoolVarP(&flags.verbose, "verbose", "v", false, "Enable debug logs and dump http messages to .dev/resty.")
	pflags.BoolVar(&flags.showReleases, "show-releases", false, "Also print the community -> core version mapping.")
	pflags.StringVar(&flags.format, "format", "table", "Output format, one of: table, plain.")
	pflags.StringVar(&flags.versionStrategy, "version-strategy", "", "How release versions are read: first-token, full-text.")
	pflags.StringVar(&flags.interpreterStrategy, "interpreter-strategy", "", "How python versions are read: controller-latest, comma-list.")
	pflags.BoolVar(&flags.bypassCloudflare, "bypass-cloudflare", false, "Wrap the http transport with cloudflare-bp.")
}

func shutdownTelemetry() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	err := tel.Shutdown(ctx)
	if err != nil {
		slog.Warn("failed to shutdown telemetry", "err", err)
	}
	tel = telemetry.Telemetry{}
}

// ExecuteContext runs the cli and exits non-zero on failure, spans and
// metrics are flushed before exiting either way.
func ExecuteContext(ctx context.Context) {
	err := rootCmd.ExecuteContext(ctx)
	shutdownTelemetry()
	if err != nil {
		serviceutil.Fatal("ansible-matrix failed", err)
	}
}
