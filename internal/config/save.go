package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// fileConfig mirrors Config with yaml tags for writing the starter file.
// Durations render as strings ("9s") which viper parses back.
type fileConfig struct {
	Endpoint    string         `yaml:"endpoint"`
	UserAgent   string         `yaml:"user_agent"`
	AutoRefresh bool           `yaml:"auto_refresh"`
	Poll        map[string]any `yaml:"poll"`
	Retry       map[string]any `yaml:"retry"`
	Log         map[string]any `yaml:"log"`
}

// WriteDefault writes a starter config file at configPath. It refuses to
// overwrite an existing file.
func WriteDefault(configPath string) error {
	if _, err := os.Stat(configPath); err == nil {
		return fmt.Errorf("config already exists at %s", configPath)
	}

	defaults := Default()
	starter := fileConfig{
		Endpoint:    "https://dispatch.example.com/api",
		UserAgent:   defaults.UserAgent,
		AutoRefresh: defaults.AutoRefresh,
		Poll: map[string]any{
			"freshness": defaults.Poll.Freshness.String(),
			"liveness":  defaults.Poll.Liveness.String(),
		},
		Retry: map[string]any{
			"max_attempts": defaults.Retry.MaxAttempts,
			"delay":        defaults.Retry.Delay.String(),
		},
		Log: map[string]any{
			"enabled": false,
			"level":   defaults.Log.Level,
		},
	}

	var buf bytes.Buffer
	buf.WriteString("# livery configuration\n")
	encoder := yaml.NewEncoder(&buf)
	encoder.SetIndent(2)
	if err := encoder.Encode(starter); err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	_ = encoder.Close()

	return writeAtomic(configPath, buf.Bytes())
}

// writeAtomic writes to a temp file in the target directory, then renames.
func writeAtomic(configPath string, data []byte) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	temp, err := os.CreateTemp(dir, ".livery.yaml.tmp.*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tempPath := temp.Name()

	if _, err := temp.Write(data); err != nil {
		_ = temp.Close()
		_ = os.Remove(tempPath)
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := temp.Close(); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("closing temp file: %w", err)
	}

	if err := os.Rename(tempPath, configPath); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("renaming temp file: %w", err)
	}

	return nil
}
