// Package config resolves a checker run's flag bundle from, in order of
// precedence, explicit command-line flags, environment variables, and an
// optional TOML/YAML config file under the user's home directory --
// falling back to built-in defaults when none of those say otherwise.
package config

import (
	"fmt"
	"path/filepath"
	"strings"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// RunConfig is the fully-resolved flag bundle for one invocation.
type RunConfig struct {
	Device      string
	List        bool
	Automatic   bool
	Interactive bool
	Verbose     bool
	Show        bool
	WarnMode    bool
	Force       bool
	MetricsAddr string
	HistoryDB   string
}

// DefaultHistoryDB returns the default path for the run-history database,
// under the user's home directory, following the teacher's ".<tool>d"
// config-directory convention.
func DefaultHistoryDB() string {
	home, err := homedir.Dir()
	if err != nil {
		return ".mfsckd/history.db"
	}
	return filepath.Join(home, ".mfsckd", "history.db")
}

// Resolve builds a RunConfig from flags, overlaying a config file (if one
// is given or found at the default location) and environment variables
// under the MFSCK_ prefix, with flags always taking final precedence.
func Resolve(flags *pflag.FlagSet, device string, configPath string) (RunConfig, error) {

	v := viper.New()
	v.SetEnvPrefix("MFSCK")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	v.SetDefault("history-db", DefaultHistoryDB())
	v.SetDefault("metrics-addr", "")

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return RunConfig{}, fmt.Errorf("reading config file %s: %w", configPath, err)
		}
	} else {
		home, err := homedir.Dir()
		if err == nil {
			v.SetConfigName("config")
			v.SetConfigType("toml")
			v.AddConfigPath(filepath.Join(home, ".mfsckd"))
			_ = v.ReadInConfig()
		}
	}

	if err := v.BindPFlags(flags); err != nil {
		return RunConfig{}, fmt.Errorf("binding flags: %w", err)
	}

	return RunConfig{
		Device:      device,
		List:        v.GetBool("list"),
		Automatic:   v.GetBool("automatic"),
		Interactive: v.GetBool("interactive"),
		Verbose:     v.GetBool("verbose"),
		Show:        v.GetBool("show"),
		WarnMode:    v.GetBool("warn-mode"),
		Force:       v.GetBool("force"),
		MetricsAddr: v.GetString("metrics-addr"),
		HistoryDB:   v.GetString("history-db"),
	}, nil
}
