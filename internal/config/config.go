package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gfl-labs/divineos/internal/branding"
	"github.com/spf13/viper"
)

const (
	fileName = "config"
	fileType = "yaml"
)

// Known configuration keys.
const (
	KeyMirror        = "mirror"
	KeyOnFailure     = "on_failure"
	KeyUpdateCommand = "update_command"
	KeyLogLevel      = "log_level"
)

// Dir returns the config directory. DIVINEOS_HOME wins over ~/.divineos.
func Dir() string {
	if dir := os.Getenv(branding.EnvVar("HOME")); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", branding.HomeDir())
	}
	return filepath.Join(home, branding.HomeDir())
}

// FilePath returns the full path to the config file.
func FilePath() string {
	return filepath.Join(Dir(), fileName+"."+fileType)
}

// EnsureDir creates the config directory if it does not exist.
func EnsureDir() error {
	dir := Dir()
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}
	return nil
}

// Load initializes Viper to read from the config file and environment.
// A missing file is not an error; a malformed one is.
func Load() error {
	viper.SetConfigFile(FilePath())
	viper.SetConfigType(fileType)
	viper.SetEnvPrefix(branding.EnvPrefix())
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, statErr := os.Stat(FilePath()); os.IsNotExist(statErr) {
			return nil
		}
		return fmt.Errorf("reading config file %s: %w", FilePath(), err)
	}
	return nil
}

// Get returns a config value by key. Returns empty string if not set.
func Get(key string) string {
	return viper.GetString(key)
}

// Set validates a key-value pair against the schema, then writes it to the
// config file. Only settings already in the file are written back alongside
// it; values from the environment never reach the file.
func Set(key, value string) error {
	result, err := ValidateSettings(map[string]interface{}{key: value})
	if err != nil {
		return err
	}
	if !result.Valid {
		return result.Err()
	}

	if err := EnsureDir(); err != nil {
		return err
	}

	configFile := FilePath()
	file := viper.New()
	file.SetConfigFile(configFile)
	file.SetConfigType(fileType)
	if _, err := os.Stat(configFile); err == nil {
		if err := file.ReadInConfig(); err != nil {
			return fmt.Errorf("reading config file %s: %w", configFile, err)
		}
	}
	file.Set(key, value)

	if err := file.WriteConfigAs(configFile); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	viper.Set(key, value)
	return nil
}

// Mirror returns the release mirror URL, or "" for GitHub.
func Mirror() string { return Get(KeyMirror) }

// OnFailure returns the configured failure policy name, or "" for the default.
func OnFailure() string { return Get(KeyOnFailure) }

// UpdateCommand returns the external update command line, or "" to use the
// built-in release updater.
func UpdateCommand() string { return Get(KeyUpdateCommand) }

// LogLevel returns the configured log level name.
func LogLevel() string { return Get(KeyLogLevel) }
