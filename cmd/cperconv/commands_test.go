package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arloliu/cper/compress"
	"github.com/arloliu/cper/format"
	"github.com/arloliu/cper/generator"
	"github.com/arloliu/cper/internal/config"
)

// resetGlobals restores flag variables and settings around a test.
func resetGlobals(t *testing.T) {
	t.Helper()

	reset := func() {
		settings = config.Default()
		settings.Workers = 2
		sectionType = ""
		single = false
		batchToCPER = false
		batchKeepDup = false
		genList = false
		genSections = []string{"generic"}
		genCount = 1
		genSeed = 0
	}
	reset()
	t.Cleanup(reset)
}

func writeFile(t *testing.T, path string, data []byte) string {
	t.Helper()

	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, data, 0o600))

	return path
}

func sample(t *testing.T, seed uint64, keys ...string) []byte {
	t.Helper()

	data, err := generator.NewSeeded(seed).Record(keys...)
	require.NoError(t, err)

	return data
}

// captureOutput captures stdout while running fn.
func captureOutput(t *testing.T, fn func() error) (string, error) {
	t.Helper()

	orig := os.Stdout
	r, w, err := os.Pipe()
	require.NoError(t, err)
	os.Stdout = w

	fnErr := fn()

	w.Close()
	os.Stdout = orig

	var buf bytes.Buffer
	_, err = buf.ReadFrom(r)
	require.NoError(t, err)

	return buf.String(), fnErr
}

func TestToIRAndBack(t *testing.T) {
	resetGlobals(t)
	dir := t.TempDir()
	data := sample(t, 1, "generic", "ia32x64", "cxlcomponent")
	in := writeFile(t, filepath.Join(dir, "in.cper"), data)

	for _, f := range []format.TreeFormat{format.TreeJSON, format.TreeYAML, format.TreeCBOR} {
		t.Run(f.String(), func(t *testing.T) {
			settings.Format = f
			tree := filepath.Join(dir, "tree"+f.Ext())
			require.NoError(t, runToIR([]string{in, tree}))

			back := filepath.Join(dir, "back-"+f.String()+".cper")
			require.NoError(t, runToCPER([]string{tree, back}, nil))

			got, err := os.ReadFile(back)
			require.NoError(t, err)
			assert.Equal(t, data, got)
		})
	}
}

func TestToIRStdout(t *testing.T) {
	resetGlobals(t)
	in := writeFile(t, filepath.Join(t.TempDir(), "in.cper"), sample(t, 2, "memory"))

	out, err := captureOutput(t, func() error { return runToIR([]string{in}) })
	require.NoError(t, err)
	assert.Contains(t, out, `"sectionDescriptors"`)
	assert.Contains(t, out, "Platform Memory")
}

func TestToIRSingleSection(t *testing.T) {
	resetGlobals(t)
	dir := t.TempDir()
	_, payload, err := generator.NewSeeded(3).Section("pcie")
	require.NoError(t, err)
	in := writeFile(t, filepath.Join(dir, "payload.bin"), payload)

	sectionType = "pcie"
	tree := filepath.Join(dir, "section.json")
	require.NoError(t, runToIR([]string{in, tree}))

	single = true
	back := filepath.Join(dir, "back.bin")
	require.NoError(t, runToCPER([]string{tree, back}, nil))

	got, err := os.ReadFile(back)
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestToIRMalformed(t *testing.T) {
	resetGlobals(t)
	in := writeFile(t, filepath.Join(t.TempDir(), "bad.cper"), []byte("CPER"))

	err := runToIR([]string{in, filepath.Join(t.TempDir(), "out.json")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad.cper")
}

func TestCompressedOutputAndInput(t *testing.T) {
	resetGlobals(t)
	dir := t.TempDir()
	data := sample(t, 4, "arm", "firmware")
	in := writeFile(t, filepath.Join(dir, "in.cper"), data)

	settings.Compression = format.CompressionLZ4
	tree := filepath.Join(dir, "tree.json.lz4")
	require.NoError(t, runToIR([]string{in, tree}))

	raw, err := os.ReadFile(tree)
	require.NoError(t, err)
	assert.Equal(t, format.CompressionLZ4, compress.Detect(raw))

	settings.Compression = format.CompressionNone
	back := filepath.Join(dir, "back.cper")
	require.NoError(t, runToCPER([]string{tree, back}, nil))

	got, err := os.ReadFile(back)
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestParseSectionType(t *testing.T) {
	g, err := parseSectionType("memory")
	require.NoError(t, err)
	assert.Equal(t, "a5bc1114-6f64-4ede-b863-3e83ed7c83b1", g.String())

	g, err = parseSectionType("{A5BC1114-6F64-4EDE-B863-3E83ED7C83B1}")
	require.NoError(t, err)
	assert.Equal(t, "a5bc1114-6f64-4ede-b863-3e83ed7c83b1", g.String())

	_, err = parseSectionType("bogus")
	require.Error(t, err)
}

func TestGenerate(t *testing.T) {
	resetGlobals(t)
	dir := t.TempDir()

	genSeed = 9
	genSections = []string{"generic", "dmarvtd"}
	genCount = 3
	require.NoError(t, runGenerate([]string{dir}))

	files, err := listFiles(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"record-0001.cper", "record-0002.cper", "record-0003.cper"}, files)

	first, err := os.ReadFile(filepath.Join(dir, files[0]))
	require.NoError(t, err)
	assert.Equal(t, sample(t, 9, "generic", "dmarvtd"), first)
}

func TestGenerateSingleFile(t *testing.T) {
	resetGlobals(t)
	path := filepath.Join(t.TempDir(), "out.cper")

	genSeed = 5
	genSections = []string{"memory", "pcie"}
	out, err := captureOutput(t, func() error { return runGenerate([]string{path}) })
	require.NoError(t, err)
	assert.Empty(t, out, "a named output is not echoed to stdout")

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, sample(t, 5, "memory", "pcie"), got)
}

func TestGenerateRequiresDirectory(t *testing.T) {
	resetGlobals(t)
	genCount = 2
	require.Error(t, runGenerate(nil))

	genCount = 0
	require.Error(t, runGenerate(nil))
}

func TestGenerateList(t *testing.T) {
	resetGlobals(t)
	genList = true

	out, err := captureOutput(t, func() error { return runGenerate(nil) })
	require.NoError(t, err)
	for _, key := range generator.Keys() {
		assert.Contains(t, out, key)
	}
}

func TestBatchDedupe(t *testing.T) {
	resetGlobals(t)
	in, out := t.TempDir(), t.TempDir()

	a := sample(t, 10, "memory")
	b := sample(t, 11, "pcie")
	writeFile(t, filepath.Join(in, "a.cper"), a)
	writeFile(t, filepath.Join(in, "nested", "b.cper"), b)
	writeFile(t, filepath.Join(in, "copy.cper"), a)
	writeFile(t, filepath.Join(in, "junk.cper"), []byte("not a record"))

	stats, err := runBatch(context.Background(), in, out, 3)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.converted)
	assert.Equal(t, 1, stats.duplicates)
	assert.Equal(t, 1, stats.failed)

	assert.FileExists(t, filepath.Join(out, "nested", "b.json"))

	// Exactly one of the two identical inputs was converted.
	_, errA := os.Stat(filepath.Join(out, "a.json"))
	_, errCopy := os.Stat(filepath.Join(out, "copy.json"))
	assert.True(t, (errA == nil) != (errCopy == nil))
}

func TestBatchKeepDuplicates(t *testing.T) {
	resetGlobals(t)
	in, out := t.TempDir(), t.TempDir()

	a := sample(t, 12, "generic")
	writeFile(t, filepath.Join(in, "a.cper"), a)
	writeFile(t, filepath.Join(in, "b.cper"), a)

	batchKeepDup = true
	stats, err := runBatch(context.Background(), in, out, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.converted)
	assert.Zero(t, stats.duplicates)
}

func TestBatchToCPER(t *testing.T) {
	resetGlobals(t)
	records, trees, back := t.TempDir(), t.TempDir(), t.TempDir()

	data := sample(t, 13, "ccixper", "cxlprotocol")
	writeFile(t, filepath.Join(records, "r.cper"), data)

	settings.Format = format.TreeYAML
	settings.Compression = format.CompressionZstd
	_, err := runBatch(context.Background(), records, trees, 2)
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(trees, "r.yaml.zst"))

	settings.Compression = format.CompressionNone
	batchToCPER = true
	stats, err := runBatch(context.Background(), trees, back, 2)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.converted)

	got, err := os.ReadFile(filepath.Join(back, "r.cper"))
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestBatchInvalidWorkers(t *testing.T) {
	resetGlobals(t)
	_, err := runBatch(context.Background(), t.TempDir(), t.TempDir(), 0)
	require.Error(t, err)
}

func TestStripExt(t *testing.T) {
	assert.Equal(t, "a", stripExt("a.cper"))
	assert.Equal(t, "a", stripExt("a.json.zst"))
	assert.Equal(t, "dir/a.b", stripExt("dir/a.b.yaml"))
	assert.Equal(t, "a", stripExt("a"))
}
