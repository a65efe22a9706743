package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/bastiangx/placeserve/pkg/catalog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefaultConfig(t *testing.T) {
	c := DefaultConfig()
	assert.Equal(t, 100, c.Server.MaxLimit)
	assert.Equal(t, []string{"data/cities.json"}, c.Catalog.Files)
	assert.Equal(t, catalog.SortStable, c.SortStrategy())
	assert.Equal(t, 500*time.Millisecond, c.WatchDebounce())
	assert.Equal(t, 256, c.Cache.Size)
}

func TestLoadConfigTOML(t *testing.T) {
	path := writeConfig(t, "config.toml", `
[server]
max_limit = 20
live = true

[catalog]
files = ["a.json", "b.msgpack.gz"]
sort = "partition"
watch = true
reload_schedule = "@every 1h"

[metrics]
addr = ":9090"
`)

	c, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 20, c.Server.MaxLimit)
	assert.True(t, c.Server.Live)
	assert.Equal(t, 16, c.Server.LiveBuffer, "missing values keep defaults")
	assert.Equal(t, []string{"a.json", "b.msgpack.gz"}, c.Catalog.Files)
	assert.Equal(t, catalog.SortPartition, c.SortStrategy())
	assert.True(t, c.Catalog.Watch)
	assert.Equal(t, "@every 1h", c.Catalog.ReloadSchedule)
	assert.Equal(t, ":9090", c.Metrics.Addr)
	assert.Equal(t, 10, c.CLI.DefaultLimit)
}

func TestLoadConfigYAML(t *testing.T) {
	path := writeConfig(t, "config.yaml", `
server:
  max_limit: 5
catalog:
  files:
    - cities.json
cache:
  size: 0
`)

	c, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 5, c.Server.MaxLimit)
	assert.Equal(t, []string{"cities.json"}, c.Catalog.Files)
	assert.Equal(t, 0, c.Cache.Size)
}

func TestLoadConfigPartialRecovery(t *testing.T) {
	// max_limit has the wrong type, everything else is usable
	path := writeConfig(t, "config.toml", `
[server]
max_limit = "lots"
live = true

[catalog]
files = ["x.json"]

[cli]
default_limit = 3
`)

	c, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 100, c.Server.MaxLimit)
	assert.True(t, c.Server.Live)
	assert.Equal(t, []string{"x.json"}, c.Catalog.Files)
	assert.Equal(t, 3, c.CLI.DefaultLimit)
}

func TestLoadConfigGarbage(t *testing.T) {
	c, err := LoadConfig(writeConfig(t, "config.toml", "[[[ not toml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), c)
}

func TestLoadConfigValidates(t *testing.T) {
	c, err := LoadConfig(writeConfig(t, "config.toml", `
[server]
max_limit = -1
live_buffer = 0

[catalog]
sort = "bogo"

[cache]
size = -5

[cli]
default_limit = 0
`))
	require.NoError(t, err)
	def := DefaultConfig()
	assert.Equal(t, def.Server.MaxLimit, c.Server.MaxLimit)
	assert.Equal(t, def.Server.LiveBuffer, c.Server.LiveBuffer)
	assert.Equal(t, "stable", c.Catalog.Sort)
	assert.Equal(t, 0, c.Cache.Size)
	assert.Equal(t, def.CLI.DefaultLimit, c.CLI.DefaultLimit)
}

func TestInitConfigCreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")

	c, err := InitConfig(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), c)
	assert.FileExists(t, path)

	again, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, c, again)
}

func TestLoadConfigWithPriorityCustomPath(t *testing.T) {
	path := writeConfig(t, "custom.toml", "[cli]\ndefault_limit = 7\n")

	c, used, err := LoadConfigWithPriority(path)
	require.NoError(t, err)
	assert.Equal(t, path, used)
	assert.Equal(t, 7, c.CLI.DefaultLimit)
}

func TestUpdate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	c := DefaultConfig()
	limit, live := 42, true
	require.NoError(t, c.Update(path, &limit, &live))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 42, loaded.Server.MaxLimit)
	assert.True(t, loaded.Server.Live)
}

func TestGetActiveConfigPath(t *testing.T) {
	assert.True(t, filepath.IsAbs(GetActiveConfigPath("rel/config.toml")))
}
