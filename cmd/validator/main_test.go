package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const workbookCSV = `ID,Date,Location,URL,Status,Type,Notes
r1,2025-01-05,City Hall,http://example.com/photo.jpg,validated,National,
r2,2025-01-06,Park,,pending,,
r3,,Bridge,http://x,rejected,,blurry
`

func TestSummaryCommand(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "protests.csv"), []byte(workbookCSV), 0o644))

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"summary", "protests.csv"})
	require.NoError(t, cmd.Execute())

	text := out.String()
	assert.Contains(t, text, "total      3")
	assert.Contains(t, text, "pending    1")
	assert.Contains(t, text, "validated  1")
	assert.Contains(t, text, "rejected   1")
	assert.Contains(t, text, "National")

	_, err := os.Stat(filepath.Join(dir, ".validator", "config.yaml"))
	assert.NoError(t, err, "config.yaml should be created on first run")
}

func TestSummaryWithoutWorkbookFails(t *testing.T) {
	chdir(t, t.TempDir())
	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"summary"})
	err := cmd.Execute()
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "no workbook"), err.Error())
}

func TestSummaryMissingColumnFails(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.csv"), []byte("ID,Date,Location\nr1,2025-01-05,Park\n"), 0o644))
	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"summary", "bad.csv"})
	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "URL")
}

// chdir changes the working directory for the duration of the test,
// mirroring testing.T.Chdir (Go 1.24+) for older toolchains.
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(old) })
}
