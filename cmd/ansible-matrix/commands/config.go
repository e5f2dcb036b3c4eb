package commands

import (
	"ansible-matrix/internal/pipeline"
	"ansible-matrix/internal/scrapers/ansibledocs"
	"ansible-matrix/internal/workflow"
	"ansible-matrix/lib/configutil"
	"ansible-matrix/lib/htmlutil"
	"ansible-matrix/lib/restyutil"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"
)

type WorkflowConfig struct {
	Path    string   `json:"path"`
	KeyPath []string `json:"key_path"`
}

// Config is the shape of ansible-matrix.json5.
type Config struct {
	Url              string `json:"url"`
	TimeoutSeconds   int    `json:"timeout_seconds"`
	BypassCloudflare bool   `json:"bypass_cloudflare"`

	Workflow WorkflowConfig `json:"workflow"`
	// defaults to true, nothing is written unless this is explicitly false
	DryRun *bool `json:"dry_run"`

	// nil means locate the table by its default header
	ReleasesTable       *htmlutil.TableQuery `json:"releases_table"`
	CoresTable          *htmlutil.TableQuery `json:"cores_table"`
	VersionStrategy     string               `json:"version_strategy"`
	InterpreterStrategy string               `json:"interpreter_strategy"`

	Format string `json:"format"`
}

var defaultConfig = Config{
	Url:            ansibledocs.DefaultUrl,
	TimeoutSeconds: 30,
	Workflow: WorkflowConfig{
		Path:    workflow.DefaultPath,
		KeyPath: workflow.DefaultKeyPath,
	},
	VersionStrategy:     string(ansibledocs.VersionFirstToken),
	InterpreterStrategy: string(ansibledocs.InterpreterControllerLatest),
	Format:              string(pipeline.FormatTable),
}

// loadConfig reads the config file at `path` (a missing file is fine) and
// fills in defaults for everything left unset.
func loadConfig(path string) (Config, error) {
	cfg, err := configutil.ReadConfig[Config](path)
	if errors.Is(err, os.ErrNotExist) {
		slog.Debug("no config file found, using defaults", "path", path)
		cfg = Config{}
	} else if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	// pointer fields are resolved by hand, mergo would merge into the pointee
	dryRun := cfg.DryRun
	releases := cfg.ReleasesTable
	cores := cfg.CoresTable
	cfg.DryRun, cfg.ReleasesTable, cfg.CoresTable = nil, nil, nil

	cfg, err = configutil.WithDefaults(cfg, defaultConfig)
	if err != nil {
		return Config{}, err
	}

	if dryRun == nil {
		dryRun = new(bool)
		*dryRun = true
	}
	defaultParse := ansibledocs.DefaultParseOptions()
	if releases == nil {
		releases = &defaultParse.Releases
	}
	if cores == nil {
		cores = &defaultParse.Cores
	}
	cfg.DryRun, cfg.ReleasesTable, cfg.CoresTable = dryRun, releases, cores

	return cfg, nil
}

// applyFlags overrides config values with any flag the user explicitly set.
func applyFlags(cmd *cobra.Command, cfg *Config) {
	changed := cmd.Flags().Changed
	if changed("url") {
		cfg.Url = flags.url
	}
	if changed("format") {
		cfg.Format = flags.format
	}
	if changed("version-strategy") {
		cfg.VersionStrategy = flags.versionStrategy
	}
	if changed("interpreter-strategy") {
		cfg.InterpreterStrategy = flags.interpreterStrategy
	}
	if changed("bypass-cloudflare") {
		cfg.BypassCloudflare = flags.bypassCloudflare
	}
}

func (c Config) pipelineConfig() (pipeline.Config, error) {
	format := pipeline.Format(c.Format)
	if err := format.Validate(); err != nil {
		return pipeline.Config{}, err
	}

	out := pipeline.DefaultConfig()
	out.WorkflowPath = c.Workflow.Path
	out.KeyPath = c.Workflow.KeyPath
	out.DryRun = c.DryRun == nil || *c.DryRun
	out.Format = format
	out.Parse = ansibledocs.ParseOptions{
		Releases:    *c.ReleasesTable,
		Cores:       *c.CoresTable,
		Version:     ansibledocs.VersionStrategy(c.VersionStrategy),
		Interpreter: ansibledocs.InterpreterStrategy(c.InterpreterStrategy),
	}
	return out, nil
}

func (c Config) newClient(verbose bool) (*ansibledocs.Client, error) {
	opts := ansibledocs.ClientOptions{
		Url:              c.Url,
		Timeout:          time.Duration(c.TimeoutSeconds) * time.Second,
		BypassCloudflare: c.BypassCloudflare,
	}
	if verbose {
		output, err := restyutil.NewFilesystemOutput(".dev/resty")
		if err != nil {
			return nil, err
		}
		slog.Debug("dumping http messages", "dir", output.Dir())
		opts.Output = output
	}
	return ansibledocs.NewClient(opts)
}
