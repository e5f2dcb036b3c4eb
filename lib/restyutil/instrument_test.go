package restyutil

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/require"
)

func TestInstrumentClientDumpsMessages(t *testing.T) {
	previous := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
	defer slog.SetDefault(previous)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Test", "yes")
		w.Write([]byte("<html>ok</html>"))
	}))
	defer server.Close()

	output, err := NewFilesystemOutput(filepath.Join(t.TempDir(), "resty"))
	require.NoError(t, err)

	client := resty.New()
	InstrumentClient(client, nil, output)

	res, err := client.R().Get(server.URL)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, res.StatusCode())

	dump, err := os.ReadFile(filepath.Join(output.Dir(), "1"))
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(string(dump), "---- REQUEST ----"))
	require.Contains(t, string(dump), "X-Test: yes")
	require.Contains(t, string(dump), "<html>ok</html>")
}

func TestInstrumentClientWithoutOutput(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	client := resty.New()
	InstrumentClient(client, nil, nil)

	res, err := client.R().Get(server.URL)
	require.NoError(t, err)
	require.Equal(t, "ok", res.String())
}

func TestNewFilesystemOutputClearsDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "resty")
	require.NoError(t, os.MkdirAll(dir, 0777))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "stale"), []byte("old"), 0600))

	output, err := NewFilesystemOutput(dir)
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(output.Dir(), "stale"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestFormatHeaders(t *testing.T) {
	headers := http.Header{}
	headers.Add("B", "2")
	headers.Add("A", "1")
	headers.Add("A", "3")
	require.Equal(t, "A: 1\nA: 3\nB: 2", formatHeaders(headers))
	require.Equal(t, "", formatHeaders(http.Header{}))
}

func TestFormatRequestBody(t *testing.T) {
	get, err := http.NewRequest(http.MethodGet, "http://example.com", nil)
	require.NoError(t, err)
	require.Equal(t, noBody, formatRequestBody(get))

	nilReader, err := http.NewRequest(http.MethodPost, "http://example.com", strings.NewReader("x"))
	require.NoError(t, err)
	nilReader.GetBody = func() (io.ReadCloser, error) { return nil, nil }
	require.Equal(t, noBody, formatRequestBody(nilReader))

	post, err := http.NewRequest(http.MethodPost, "http://example.com", strings.NewReader("payload=1"))
	require.NoError(t, err)
	require.Equal(t, "payload=1", formatRequestBody(post))
}

func TestInstrumentClientDumpsPostBody(t *testing.T) {
	previous := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
	defer slog.SetDefault(previous)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("created"))
	}))
	defer server.Close()

	output, err := NewFilesystemOutput(filepath.Join(t.TempDir(), "resty"))
	require.NoError(t, err)

	client := resty.New()
	InstrumentClient(client, nil, output)

	_, err = client.R().SetBody("payload=1").Post(server.URL)
	require.NoError(t, err)

	dump, err := os.ReadFile(filepath.Join(output.Dir(), "1"))
	require.NoError(t, err)
	require.Contains(t, string(dump), "payload=1")
	require.Contains(t, string(dump), "created")
}
