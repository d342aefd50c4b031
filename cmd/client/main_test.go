package main

import (
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/atinyakov/venditori/internal/client"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type roundTripperFunc func(req *http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func stubClient(status int, body string, header http.Header) *client.Client {
	return client.New("http://example.com", "tok", &http.Client{
		Timeout: time.Second,
		Transport: roundTripperFunc(func(req *http.Request) (*http.Response, error) {
			if header == nil {
				header = http.Header{}
			}
			return &http.Response{StatusCode: status, Header: header, Body: io.NopCloser(strings.NewReader(body))}, nil
		}),
	})
}

func TestRun_BackupSavesFile(t *testing.T) {
	out := filepath.Join(t.TempDir(), "copy.zip")
	c := stubClient(http.StatusOK, "zip-bytes", http.Header{
		"Content-Disposition": {`attachment; filename="backup_manual_20240102_030405.zip"`},
	})

	require.NoError(t, run(context.Background(), c, "backup", options{out: out}))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "zip-bytes", string(data))

	entries, err := os.ReadDir(filepath.Dir(out))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary download file should be removed")
}

func TestRun_BackupFailureLeavesNothing(t *testing.T) {
	dir := t.TempDir()
	c := stubClient(http.StatusInternalServerError, `{"error":"backup failed: boom"}`, nil)

	err := run(context.Background(), c, "backup", options{out: filepath.Join(dir, "b.zip")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "backup failed: boom")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRun_InsertRejectsBadFile(t *testing.T) {
	in := filepath.Join(t.TempDir(), "v.json")
	require.NoError(t, os.WriteFile(in, []byte("{"), 0o600))

	err := run(context.Background(), stubClient(http.StatusOK, "{}", nil), "insert", options{in: in})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid vendor file")
}

func TestRun_UnknownCommand(t *testing.T) {
	err := run(context.Background(), stubClient(http.StatusOK, "", nil), "fly", options{})
	assert.EqualError(t, err, "unknown command: fly")
}
