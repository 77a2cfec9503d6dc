package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quiet() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRunRequiresCommand(t *testing.T) {
	var out bytes.Buffer
	err := run(context.Background(), nil, &out, quiet())
	require.EqualError(t, err, "missing command")
	assert.Contains(t, out.String(), "refdata import")
}

func TestRunRejectsUnknownCommand(t *testing.T) {
	var out bytes.Buffer
	err := run(context.Background(), []string{"reindex"}, &out, quiet())
	require.EqualError(t, err, `unknown command "reindex"`)
}

func TestRefdataImportValidatesFileBeforeConnecting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "options.csv")
	require.NoError(t, os.WriteFile(path, []byte("kind,value\nstatus,Archived\n"), 0o600))

	err := run(context.Background(), []string{"--dsn", "postgres://invalid:1/none", "refdata", "import", path}, io.Discard, quiet())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "option list is fixed")
}

func TestRefdataImportUsage(t *testing.T) {
	err := run(context.Background(), []string{"refdata", "export"}, io.Discard, quiet())
	require.EqualError(t, err, "usage: apexctl refdata import <file.csv>")
}
