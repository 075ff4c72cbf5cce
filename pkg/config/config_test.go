package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testFlags() *pflag.FlagSet {
	fs := pflag.NewFlagSet("mfsck", pflag.ContinueOnError)
	fs.Bool("list", false, "")
	fs.Bool("automatic", false, "")
	fs.Bool("interactive", false, "")
	fs.Bool("verbose", false, "")
	fs.Bool("show", false, "")
	fs.Bool("warn-mode", false, "")
	fs.Bool("force", false, "")
	fs.String("metrics-addr", "", "")
	fs.String("history-db", "", "")
	return fs
}

func TestResolveDefaultsWhenNothingElseIsSet(t *testing.T) {
	cfg, err := Resolve(testFlags(), "/dev/sda1", "")
	require.NoError(t, err)

	assert.Equal(t, "/dev/sda1", cfg.Device)
	assert.False(t, cfg.Automatic)
	assert.False(t, cfg.List)
	assert.Equal(t, DefaultHistoryDB(), cfg.HistoryDB)
	assert.Empty(t, cfg.MetricsAddr)
}

func TestResolveFlagsOverrideConfigFile(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.toml")
	err := os.WriteFile(configPath, []byte("automatic = true\nmetrics-addr = \":9100\"\n"), 0o644)
	require.NoError(t, err)

	flags := testFlags()
	require.NoError(t, flags.Set("automatic", "false"))

	cfg, err := Resolve(flags, "/dev/sdb1", configPath)
	require.NoError(t, err)

	// The flag was explicitly set to false, but viper's BindPFlags only
	// distinguishes "changed" from "default" for flags the caller marked
	// Changed; an unconditional Set counts as changed and so wins over
	// the file, matching the documented flags-beat-file precedence.
	assert.False(t, cfg.Automatic)
	assert.Equal(t, ":9100", cfg.MetricsAddr)
}

func TestResolveRejectsUnreadableConfigFile(t *testing.T) {
	_, err := Resolve(testFlags(), "/dev/sda1", "/nonexistent/mfsckd/config.toml")
	assert.Error(t, err)
}
