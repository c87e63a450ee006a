// Package config holds lorekeep's viper defaults and the flag-or-config
// lookups used by the command line.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/kittclouds/lorekeep/internal/store"
)

const EnvPrefix = "LOREKEEP"

// Backends understood by the "backend" key.
const (
	BackendSQLite = "sqlite"
	BackendFS     = "fs"
	BackendMemory = "memory"
)

// DefaultQuotaBytes mirrors the usual per-origin browser storage limit.
const DefaultQuotaBytes = 5 * 1024 * 1024

// SetDefaults registers every lorekeep key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("data_dir", "~/.lorekeep")
	v.SetDefault("backend", BackendSQLite)
	v.SetDefault("storage.key", store.DefaultKey)
	v.SetDefault("storage.quota_bytes", DefaultQuotaBytes)
	v.SetDefault("storage.keep_versions", store.DefaultKeepVersions)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
	v.SetDefault("logging.add_source", false)
}

// Init wires env lookup and reads cfgFile when given, or
// ~/.lorekeep/config.yaml when it exists.
func Init(v *viper.Viper, cfgFile string) error {
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	cfgFile = strings.TrimSpace(cfgFile)
	if cfgFile == "" {
		def := ExpandHomePath("~/.lorekeep/config.yaml")
		if _, err := os.Stat(def); err != nil {
			return nil
		}
		cfgFile = def
	}

	v.SetConfigFile(ExpandHomePath(cfgFile))
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}
	return nil
}

// Settings is the resolved storage configuration.
type Settings struct {
	DataDir      string
	Backend      string
	Key          string
	QuotaBytes   int
	KeepVersions int
}

type Reader interface {
	GetString(string) string
	GetInt(string) int
}

// SettingsFromReader resolves and validates the storage keys.
func SettingsFromReader(r Reader) (Settings, error) {
	s := Settings{
		DataDir:      ExpandHomePath(r.GetString("data_dir")),
		Backend:      strings.ToLower(strings.TrimSpace(r.GetString("backend"))),
		Key:          strings.TrimSpace(r.GetString("storage.key")),
		QuotaBytes:   r.GetInt("storage.quota_bytes"),
		KeepVersions: r.GetInt("storage.keep_versions"),
	}
	switch s.Backend {
	case BackendSQLite, BackendFS, BackendMemory:
	case "":
		s.Backend = BackendSQLite
	default:
		return s, fmt.Errorf("unknown backend: %s", s.Backend)
	}
	if s.Key == "" {
		s.Key = store.DefaultKey
	}
	if s.QuotaBytes < 0 {
		return s, fmt.Errorf("storage.quota_bytes must be >= 0, got %d", s.QuotaBytes)
	}
	return s, nil
}

func SettingsFromViper() (Settings, error) {
	return SettingsFromReader(viper.GetViper())
}

func ExpandHomePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return ""
	}
	if p == "~" || strings.HasPrefix(p, "~/") {
		home, err := os.UserHomeDir()
		if err != nil || strings.TrimSpace(home) == "" {
			return filepath.Clean(p)
		}
		if p == "~" {
			return filepath.Clean(home)
		}
		return filepath.Clean(filepath.Join(home, strings.TrimPrefix(p, "~/")))
	}
	return filepath.Clean(p)
}

// FlagOrViperString prefers an explicitly set flag, then viperKey, then the
// flag default. The prompt.* keys are read this way.
func FlagOrViperString(cmd *cobra.Command, flagName, viperKey string) string {
	v, _ := cmd.Flags().GetString(flagName)
	if cmd.Flags().Changed(flagName) {
		return v
	}
	if viperKey != "" && viper.IsSet(viperKey) {
		return viper.GetString(viperKey)
	}
	return v
}

func FlagOrViperBool(cmd *cobra.Command, flagName, viperKey string) bool {
	v, _ := cmd.Flags().GetBool(flagName)
	if cmd.Flags().Changed(flagName) {
		return v
	}
	if viperKey != "" && viper.IsSet(viperKey) {
		return viper.GetBool(viperKey)
	}
	return v
}

func FlagOrViperStringSlice(cmd *cobra.Command, flagName, viperKey string) []string {
	v, _ := cmd.Flags().GetStringSlice(flagName)
	if cmd.Flags().Changed(flagName) {
		return v
	}
	if viperKey != "" && viper.IsSet(viperKey) {
		return viper.GetStringSlice(viperKey)
	}
	return v
}
