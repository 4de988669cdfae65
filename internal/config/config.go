package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

const ConfigFileName = "retro-sync.yaml"

// Config is the fully enumerated configuration for retro-sync. Every
// recognized option lives here; unknown keys in the YAML are ignored.
type Config struct {
	ProjectName string  `yaml:"project_name"`
	Device      Device  `yaml:"device"`
	Build       Build   `yaml:"build"`
	Sync        Sync    `yaml:"sync"`
	Viewer      Viewer  `yaml:"viewer"`
}

// Device describes how to reach the remote hardware CLI.
type Device struct {
	CLIPath string `yaml:"cli_path"`
	Host    string `yaml:"host"`
	Port    string `yaml:"port"`
}

// Build describes the assembler invocation.
type Build struct {
	AssemblerPath string `yaml:"assembler_path"`
	OutputDir     string `yaml:"output_dir"`
}

// Sync describes the local cache and save watching.
type Sync struct {
	CacheRoot string   `yaml:"cache_root"`
	Editor    string   `yaml:"editor"`
	Ignores   []string `yaml:"ignores"`
}

// Viewer describes the external binary-file viewer.
type Viewer struct {
	Command string `yaml:"command"`
}

// DefaultIgnores are editor droppings that must never trigger an upload.
var DefaultIgnores = []string{"*.swp", "*.swo", "*~", ".#*", "*.tmp"}

// ApplyDefaults fills unset options with their fixed defaults.
func ApplyDefaults(cfg *Config) {
	if cfg.Sync.CacheRoot == "" {
		cfg.Sync.CacheRoot = filepath.Join(".retro-sync", "cache")
	}
	if cfg.Sync.Editor == "" {
		if ed := os.Getenv("EDITOR"); ed != "" {
			cfg.Sync.Editor = ed
		} else {
			cfg.Sync.Editor = "nano"
		}
	}
	if len(cfg.Sync.Ignores) == 0 {
		cfg.Sync.Ignores = append([]string{}, DefaultIgnores...)
	}
	if cfg.Build.OutputDir == "" {
		cfg.Build.OutputDir = filepath.Join(".retro-sync", "build")
	}
}

// ValidateConfig validates the configuration for required fields and paths.
func ValidateConfig(cfg *Config) error {
	var validationErrors []string

	if strings.TrimSpace(cfg.ProjectName) == "" {
		validationErrors = append(validationErrors, "project_name cannot be empty")
	}

	if strings.TrimSpace(cfg.Device.CLIPath) == "" {
		validationErrors = append(validationErrors, "device.cli_path cannot be empty")
	}

	if strings.TrimSpace(cfg.Device.Port) != "" {
		if port, err := strconv.Atoi(cfg.Device.Port); err != nil || port <= 0 || port > 65535 {
			validationErrors = append(validationErrors, "device.port must be a valid number between 1-65535")
		}
	}

	// Assembler is optional (sync/browse work without it) but when set the
	// binary must exist so build failures are reported up front, not mid-build.
	if p := strings.TrimSpace(cfg.Build.AssemblerPath); p != "" && strings.ContainsRune(p, os.PathSeparator) {
		if _, err := os.Stat(p); os.IsNotExist(err) {
			validationErrors = append(validationErrors, fmt.Sprintf("build.assembler_path does not exist: %s", p))
		}
	}

	if len(validationErrors) > 0 {
		return fmt.Errorf("configuration validation failed:\n%s", strings.Join(validationErrors, "\n"))
	}

	return nil
}

// ConfigExists checks if retro-sync.yaml exists in the current directory.
func ConfigExists() bool {
	_, err := os.Stat(ConfigFileName)
	return !os.IsNotExist(err)
}

// GetConfigPath returns the absolute path of the config file.
func GetConfigPath() string {
	abs, err := filepath.Abs(ConfigFileName)
	if err != nil {
		return ConfigFileName
	}
	return abs
}

// LoadAndValidateConfig loads retro-sync.yaml, applies defaults and validates.
func LoadAndValidateConfig() (*Config, error) {
	if !ConfigExists() {
		return nil, errors.New("retro-sync.yaml not found. Please run 'retro-sync init' first")
	}

	data, err := os.ReadFile(ConfigFileName)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %v", err)
	}

	var cfg Config
	err = yaml.Unmarshal(data, &cfg)
	if err != nil {
		return nil, fmt.Errorf("error parsing config file: %v", err)
	}

	ApplyDefaults(&cfg)

	if err := ValidateConfig(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// WriteDefaultConfig writes a starter retro-sync.yaml to the current
// directory. It refuses to overwrite an existing config.
func WriteDefaultConfig() error {
	if ConfigExists() {
		return errors.New("config file already exists")
	}

	cfg := Config{
		ProjectName: filepath.Base(mustGetwd()),
		Device: Device{
			CLIPath: "retrolink",
			Host:    "",
			Port:    "",
		},
		Build: Build{
			AssemblerPath: "kickass",
		},
	}
	ApplyDefaults(&cfg)

	data, err := yaml.Marshal(&cfg)
	if err != nil {
		return fmt.Errorf("error generating config: %v", err)
	}

	if err := os.WriteFile(ConfigFileName, data, 0644); err != nil {
		return fmt.Errorf("error writing %s: %v", ConfigFileName, err)
	}

	return nil
}

func mustGetwd() string {
	wd, err := os.Getwd()
	if err != nil {
		return "retro-sync"
	}
	return wd
}
