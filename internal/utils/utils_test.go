package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatWithCommas(t *testing.T) {
	tests := map[int]string{
		0:       "0",
		999:     "999",
		1000:    "1,000",
		209557:  "209,557",
		1234567: "1,234,567",
		-1234:   "-1,234",
		-123456: "-123,456",
		-12:     "-12",
	}
	for n, want := range tests {
		assert.Equal(t, want, FormatWithCommas(n), "n=%d", n)
	}
}

func TestFormatCoordinate(t *testing.T) {
	v := 44.549999
	assert.Equal(t, "44.549999", FormatCoordinate(&v))
	assert.Equal(t, "-", FormatCoordinate(nil))
}

func TestConfigFileRoundTrip(t *testing.T) {
	type section struct {
		Limit int      `toml:"limit" yaml:"limit"`
		Files []string `toml:"files" yaml:"files"`
	}
	type doc struct {
		Main section `toml:"main" yaml:"main"`
	}
	want := doc{Main: section{Limit: 7, Files: []string{"a.json", "b.json"}}}

	for _, name := range []string{"c.toml", "c.yaml"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)
			require.NoError(t, SaveConfigFile(want, path))

			var got doc
			require.NoError(t, LoadConfigFile(path, &got))
			assert.Equal(t, want, got)

			raw, err := ParseWithRecovery(path)
			require.NoError(t, err)
			main, ok := ExtractSection(raw, "main")
			require.True(t, ok)
			limit, ok := ExtractInt(main, "limit")
			assert.True(t, ok)
			assert.Equal(t, 7, limit)
			files, ok := ExtractStrings(main, "files")
			assert.True(t, ok)
			assert.Equal(t, want.Main.Files, files)
		})
	}
}

func TestExtractHelpers(t *testing.T) {
	data := map[string]any{"n": int64(3), "b": true, "s": "x", "l": []any{"a", 1, "b"}}

	_, ok := ExtractInt(data, "s")
	assert.False(t, ok)
	b, ok := ExtractBool(data, "b")
	assert.True(t, ok && b)
	s, ok := ExtractString(data, "s")
	assert.True(t, ok)
	assert.Equal(t, "x", s)
	l, _ := ExtractStrings(data, "l")
	assert.Equal(t, []string{"a", "b"}, l)
	_, ok = ExtractSection(data, "n")
	assert.False(t, ok)
}

func TestResolveDataFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.json", "a.json", "c.msgpack"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("[]"), 0o644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.json"), 0o755))

	pr := &PathResolver{workDir: dir, executableDir: t.TempDir(), configDir: t.TempDir()}

	got, err := pr.ResolveDataFiles([]string{"*.json", "c.msgpack", "a.json"})
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "a.json"),
		filepath.Join(dir, "b.json"),
		filepath.Join(dir, "c.msgpack"),
	}, got)

	abs := filepath.Join(dir, "b.json")
	got, err = pr.ResolveDataFiles([]string{abs})
	require.NoError(t, err)
	assert.Equal(t, []string{abs}, got)

	_, err = pr.ResolveDataFiles([]string{"missing.json"})
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestIsYAML(t *testing.T) {
	assert.True(t, IsYAML("a.yaml"))
	assert.True(t, IsYAML("A.YML"))
	assert.False(t, IsYAML("a.toml"))
}
