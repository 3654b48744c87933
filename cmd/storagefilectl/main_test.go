package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuildThenDumpRoundTrip(t *testing.T) {
	dir := t.TempDir()
	specPath := filepath.Join(dir, "objects.yaml")
	outPath := filepath.Join(dir, "storage.img")

	specYAML := `
objects:
  - page_device:
      page_count: 10
      page_size_log2: 12
  - page_device:
      page_count: 20
      page_size_log2: 13
      device_id: 99
`
	require.NoError(t, os.WriteFile(specPath, []byte(specYAML), 0644))

	var buildOut bytes.Buffer
	err := runBuild([]string{"-spec", specPath, "-out", outPath}, &buildOut)
	require.NoError(t, err)
	require.Contains(t, buildOut.String(), "wrote 2 object(s)")

	var dumpOut bytes.Buffer
	err = runDump([]string{"-in", outPath}, &dumpOut)
	require.NoError(t, err)

	out := dumpOut.String()
	require.Contains(t, out, "1 block(s) in chain")
	require.Contains(t, out, "page_count=10")
	require.Contains(t, out, "page_size_log2=12")
	require.Contains(t, out, "device_id=99")
	require.Contains(t, out, "page_count=20")
}

func TestBuildRequiresSpecAndOut(t *testing.T) {
	var out bytes.Buffer
	err := runBuild(nil, &out)
	require.Error(t, err)
}

func TestDumpRequiresIn(t *testing.T) {
	var out bytes.Buffer
	err := runDump(nil, &out)
	require.Error(t, err)
}
