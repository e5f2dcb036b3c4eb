package commands

import (
	"ansible-matrix/internal/pipeline"
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"
)

const page = `<html><body>
<table>
  <tr><th>Ansible Community Package Release</th><th>Status</th><th>Core version dependency</th></tr>
  <tr><td>11.0.0</td><td>In development (unreleased)</td><td>2.18</td></tr>
  <tr><td>10.1.0</td><td>Current</td><td>2.17</td></tr>
</table>
<table>
  <tr><th>Version</th><th>Support</th><th>End Of Life</th><th>Controller Python</th><th>Target Python</th></tr>
  <tr><td>2.17</td><td>GA</td><td>Nov 2025</td><td>Python 3.10 - 3.12</td><td>Python 3.7 - 3.12</td></tr>
</table>
</body></html>`

const workflowYaml = `jobs:
  publish-harness-ansible:
    strategy:
      matrix:
        versions: []
`

const updatedYaml = `jobs:
  publish-harness-ansible:
    strategy:
      matrix:
        versions:
          - ansible: 10.1.0
            python: "3.12"
            tag: "10.1"
`

type pageFetcher struct{}

func (pageFetcher) FetchPage(context.Context) ([]byte, error) {
	return []byte(page), nil
}

func resetFlags(set *pflag.FlagSet) {
	set.VisitAll(func(f *pflag.Flag) {
		f.Value.Set(f.DefValue)
		f.Changed = false
	})
}

// cobra keeps flag values between executions of the same command tree
func resetCli() {
	rootCmd.SetArgs(nil)
	rootCmd.SetOut(nil)
	resetFlags(rootCmd.PersistentFlags())
	for _, cmd := range []*cobra.Command{scrapeCmd, updateCmd} {
		resetFlags(cmd.Flags())
	}
}

// runCli executes the root command with `args` against a canned page and
// returns what was printed and the config the fetcher was built from.
func runCli(t *testing.T, args ...string) (string, Config, error) {
	t.Helper()

	previousLogger := slog.Default()
	previousFetcher := newFetcher
	var fetcherCfg Config
	newFetcher = func(cfg Config, verbose bool) (pipeline.Fetcher, error) {
		fetcherCfg = cfg
		return pageFetcher{}, nil
	}
	t.Cleanup(func() {
		newFetcher = previousFetcher
		slog.SetDefault(previousLogger)
		resetCli()
	})

	resetCli()
	var out bytes.Buffer
	rootCmd.SetArgs(args)
	rootCmd.SetOut(&out)
	err := rootCmd.ExecuteContext(context.Background())
	shutdownTelemetry()
	return out.String(), fetcherCfg, err
}

// writeFiles creates a workflow file and a config pointing at it with
// dry_run disabled.
func writeFiles(t *testing.T) (dir, configPath, workflowPath string) {
	dir = t.TempDir()
	workflowPath = filepath.Join(dir, "publish-harness.yaml")
	require.NoError(t, os.WriteFile(workflowPath, []byte(workflowYaml), 0644))

	configPath = filepath.Join(dir, "ansible-matrix.json5")
	require.NoError(t, os.WriteFile(configPath, []byte(`{
		url: "https://mirror.example.com/release_and_maintenance.html",
		dry_run: false,
		workflow: { path: "`+workflowPath+`" },
	}`), 0644))
	return dir, configPath, workflowPath
}

func readFile(t *testing.T, path string) string {
	content, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(content)
}

func TestScrapeNeverWrites(t *testing.T) {
	_, configPath, workflowPath := writeFiles(t)

	out, cfg, err := runCli(t, "scrape", "--config", configPath, "--format", "plain")
	require.NoError(t, err)
	require.Equal(t, "https://mirror.example.com/release_and_maintenance.html", cfg.Url)
	require.Contains(t, out, "ansible=10.1.0 python=3.12 tag=10.1")
	require.Equal(t, workflowYaml, readFile(t, workflowPath))
}

func TestUpdateUsesConfigDryRun(t *testing.T) {
	_, configPath, workflowPath := writeFiles(t)

	_, _, err := runCli(t, "update", "--config", configPath)
	require.NoError(t, err)
	require.Equal(t, updatedYaml, readFile(t, workflowPath))
}

func TestUpdateFlagsOverrideConfig(t *testing.T) {
	dir, configPath, workflowPath := writeFiles(t)
	other := filepath.Join(dir, "other.yaml")
	require.NoError(t, os.WriteFile(other, []byte(workflowYaml), 0644))

	_, cfg, err := runCli(t,
		"update",
		"--config", configPath,
		"--url", "https://docs.example.com/page.html",
		"--workflow", other,
	)
	require.NoError(t, err)
	require.Equal(t, "https://docs.example.com/page.html", cfg.Url)
	require.Equal(t, updatedYaml, readFile(t, other))
	require.Equal(t, workflowYaml, readFile(t, workflowPath))

	_, _, err = runCli(t, "update", "--config", configPath, "--dry-run")
	require.NoError(t, err)
	require.Equal(t, workflowYaml, readFile(t, workflowPath))
}

func TestUpdateDryRunByDefault(t *testing.T) {
	dir := t.TempDir()
	workflowPath := filepath.Join(dir, "publish-harness.yaml")
	require.NoError(t, os.WriteFile(workflowPath, []byte(workflowYaml), 0644))

	out, _, err := runCli(t,
		"update",
		"--config", filepath.Join(dir, "missing.json5"),
		"--workflow", workflowPath,
	)
	require.NoError(t, err)
	require.Contains(t, out, "10.1.0")
	require.Equal(t, workflowYaml, readFile(t, workflowPath))

	_, _, err = runCli(t,
		"update",
		"--config", filepath.Join(dir, "missing.json5"),
		"--workflow", workflowPath,
		"--dry-run=false",
	)
	require.NoError(t, err)
	require.Equal(t, updatedYaml, readFile(t, workflowPath))
}

func TestCommandErrorsAreReturned(t *testing.T) {
	_, _, err := runCli(t, "scrape", "--config", filepath.Join(t.TempDir(), "missing.json5"), "--format", "xml")
	require.ErrorContains(t, err, "invalid config")
}
