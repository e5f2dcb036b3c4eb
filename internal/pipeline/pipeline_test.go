package pipeline

import (
	"ansible-matrix/internal/matrix"
	"ansible-matrix/internal/workflow"
	"ansible-matrix/lib/htmlutil"
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

const page = `<html><body>
<table><tr><th>Intro</th></tr><tr><td>ignored</td></tr></table>
<table>
  <tr><th>Ansible Community Package Release</th><th>Status</th><th>Core version dependency</th></tr>
  <tr><td>11.0.0</td><td>In development (unreleased)</td><td>2.18</td></tr>
  <tr><td>10.1.0</td><td>Current</td><td>2.17</td></tr>
  <tr><td>9.7.0 (EOL)</td><td>Unmaintained</td><td>2.16</td></tr>
  <tr><td>3.4.0</td><td>Unmaintained</td><td>2.10</td></tr>
</table>
<table>
  <tr><th>Version</th><th>Support</th><th>End Of Life</th><th>Controller Python</th><th>Target Python</th></tr>
  <tr><td>2.17</td><td>GA</td><td>Nov 2025</td><td>Python 3.10 - 3.12</td><td>Python 3.7 - 3.12</td></tr>
  <tr><td>2.16</td><td>Security</td><td>May 2025</td><td>Python 3.10 - 3.12</td><td>Python 2.7, Python 3.6 - 3.12</td></tr>
</table>
</body></html>`

var expectedPairs = []matrix.VersionPair{
	{Ansible: "10.1.0", Python: "3.12", Tag: "10.1"},
	{Ansible: "9.7.0", Python: "3.12", Tag: "9.7"},
}

type staticFetcher struct {
	body  string
	err   error
	calls int
}

func (f *staticFetcher) FetchPage(context.Context) ([]byte, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return []byte(f.body), nil
}

const workflowYaml = `jobs:
  publish-harness-ansible:
    strategy:
      matrix:
        versions: []
`

func writeWorkflow(t testing.TB) string {
	path := filepath.Join(t.TempDir(), "publish-harness.yaml")
	err := os.WriteFile(path, []byte(workflowYaml), 0644)
	if err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRunDryRunByDefault(t *testing.T) {
	path := writeWorkflow(t)
	cfg := DefaultConfig()
	cfg.WorkflowPath = path

	var out bytes.Buffer
	result, err := Run(context.Background(), cfg, &staticFetcher{body: page}, &out)
	require.NoError(t, err)
	require.False(t, result.Written)
	if diff := cmp.Diff(expectedPairs, result.Pairs); diff != "" {
		t.Fatal(diff)
	}

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, workflowYaml, string(data))

	require.Contains(t, out.String(), "10.1.0")
	require.Contains(t, out.String(), "9.7")
}

func TestRunWritesWorkflow(t *testing.T) {
	path := writeWorkflow(t)
	cfg := DefaultConfig()
	cfg.WorkflowPath = path
	cfg.DryRun = false

	var out bytes.Buffer
	result, err := Run(context.Background(), cfg, &staticFetcher{body: page}, &out)
	require.NoError(t, err)
	require.True(t, result.Written)

	first, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(first), "ansible: 10.1.0")
	require.Contains(t, string(first), `python: "3.12"`)

	_, err = Run(context.Background(), cfg, &staticFetcher{body: page}, &out)
	require.NoError(t, err)
	second, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, string(first), string(second))
}

func TestRunPlainOutput(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Format = FormatPlain
	cfg.ShowReleases = true

	var out bytes.Buffer
	_, err := Run(context.Background(), cfg, &staticFetcher{body: page}, &out)
	require.NoError(t, err)

	expected := strings.Join([]string{
		"Community and core versions:",
		"10.1.0 : 2.17",
		"9.7.0 : 2.16",
		"3.4.0 : 2.10",
		"Combined version pairs:",
		"ansible=10.1.0 python=3.12 tag=10.1",
		"ansible=9.7.0 python=3.12 tag=9.7",
		"",
	}, "\n")
	require.Equal(t, expected, out.String())
}

func TestRunFetchError(t *testing.T) {
	fetchErr := errors.New("connection refused")
	fetcher := &staticFetcher{err: fetchErr}

	_, err := Run(context.Background(), DefaultConfig(), fetcher, &bytes.Buffer{})
	require.ErrorIs(t, err, fetchErr)
	require.Equal(t, 1, fetcher.calls)
}

func TestRunMissingTable(t *testing.T) {
	_, err := Run(
		context.Background(),
		DefaultConfig(),
		&staticFetcher{body: "<html><body><p>moved</p></body></html>"},
		&bytes.Buffer{},
	)
	require.ErrorIs(t, err, htmlutil.ErrTableNotFound)
}

func TestRunMissingWorkflowKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "publish-harness.yaml")
	require.NoError(t, os.WriteFile(path, []byte("jobs: {}\n"), 0644))

	cfg := DefaultConfig()
	cfg.WorkflowPath = path
	cfg.DryRun = false

	_, err := Run(context.Background(), cfg, &staticFetcher{body: page}, &bytes.Buffer{})
	require.ErrorIs(t, err, workflow.ErrKeyNotFound)
}

func TestRenderUnknownFormat(t *testing.T) {
	err := RenderPairs(&bytes.Buffer{}, expectedPairs, "csv")
	require.Error(t, err)
}
