package configutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

type testConfig struct {
	Name    string   `json:"name"`
	Years   []string `json:"years"`
	Timeout int      `json:"timeout"`
}

func TestReadConfigMergesLocal(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "observatorio.json5")

	err := os.WriteFile(path, []byte(`{
		// comments are allowed
		name: "default",
		years: ["2023", "2021"],
		timeout: 3,
	}`), 0600)
	require.NoError(t, err)
	err = os.WriteFile(filepath.Join(dir, "observatorio.local.json5"), []byte(`{timeout: 9}`), 0600)
	require.NoError(t, err)

	cfg, err := ReadConfig[testConfig](path)
	require.NoError(t, err)
	require.Equal(t, "default", cfg.Name)
	require.Equal(t, []string{"2023", "2021"}, cfg.Years)
	require.Equal(t, 9, cfg.Timeout)
}

func TestReadConfigMissing(t *testing.T) {
	_, err := ReadConfig[testConfig](filepath.Join(t.TempDir(), "nothing.json5"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestReadOverDefaults(t *testing.T) {
	defaults := testConfig{Name: "builtin", Years: []string{"2015"}, Timeout: 5}

	cfg, err := ReadOverDefaults(filepath.Join(t.TempDir(), "nothing.json5"), defaults)
	require.NoError(t, err)
	require.Equal(t, defaults, cfg)

	dir := t.TempDir()
	path := filepath.Join(dir, "cfg.json5")
	require.NoError(t, os.WriteFile(path, []byte(`{years: ["2019"]}`), 0600))

	cfg, err = ReadOverDefaults(path, defaults)
	require.NoError(t, err)
	require.Equal(t, "builtin", cfg.Name)
	require.Equal(t, []string{"2019"}, cfg.Years)
	require.Equal(t, 5, cfg.Timeout)
}

func TestLocalName(t *testing.T) {
	require.Equal(t, "a/b.local.json5", LocalName("a/b.json5"))
	require.Equal(t, "telemetry.local.json5", LocalName("telemetry.json5"))
}
