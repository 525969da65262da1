package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fenilsonani/orgest/internal/security"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Display         DisplayConfig    `yaml:"display"`
	Folders         FolderConfig     `yaml:"folders"`
	Sorting         SortingConfig    `yaml:"sorting"`
	Transcoder      TranscoderConfig `yaml:"transcoder"`
	Normalize       NormalizeConfig  `yaml:"normalize"`
	ExcludePatterns []string         `yaml:"exclude_patterns"`
	Logging         LoggingConfig    `yaml:"logging"`
}

// DisplayConfig controls console presentation during a run
type DisplayConfig struct {
	ShowBanners       bool `yaml:"show_banners"`
	PauseBetweenSteps bool `yaml:"pause_between_steps"`
	Verbose           bool `yaml:"verbose_mode"`
	ClearConsole      bool `yaml:"clear_console"`
}

// FolderConfig names the reserved working folders created under the root
type FolderConfig struct {
	Trash         string   `yaml:"trash"`
	Images        string   `yaml:"images"`
	Videos        string   `yaml:"videos"`
	Backup        string   `yaml:"backup"`
	Failures      string   `yaml:"failures"`
	VendorBackups []string `yaml:"vendor_backups"`
}

// SortingConfig holds the extension allow-lists used by the sorter
type SortingConfig struct {
	ImageExtensions   []string `yaml:"image_extensions"`
	VideoExtensions   []string `yaml:"video_extensions"`
	PendingExtensions []string `yaml:"pending_extensions"`
}

// TranscoderConfig holds settings for the external transcoding tool
type TranscoderConfig struct {
	Command               string              `yaml:"command"`
	AutoInstall           bool                `yaml:"auto_install"`
	InstallTimeoutSeconds int                 `yaml:"install_timeout_seconds"`
	InstallCommands       map[string][]string `yaml:"install_commands"` // keyed by GOOS
}

// NormalizeConfig holds image normalization settings
type NormalizeConfig struct {
	MaxDimension int      `yaml:"max_dimension"`
	JPEGQuality  int      `yaml:"jpeg_quality"`
	WEBPQuality  int      `yaml:"webp_quality"`
	PNGOptimize  bool     `yaml:"png_optimize"`
	AutoOrient   bool     `yaml:"auto_orient"`
	Extensions   []string `yaml:"extensions"`
}

// LoggingConfig holds logger construction settings
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	File   string `yaml:"file"`
}

// Load loads configuration from a file
func Load(configPath string) (*Config, error) {
	// If config doesn't exist, return default config
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return GetDefault(), nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Start from defaults so a partial file only overrides what it names
	config := GetDefault()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// Save saves configuration to a file
func Save(config *Config, configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	folders := map[string]string{
		"trash":    c.Folders.Trash,
		"images":   c.Folders.Images,
		"videos":   c.Folders.Videos,
		"backup":   c.Folders.Backup,
		"failures": c.Folders.Failures,
	}
	seen := make(map[string]string, len(folders))
	for key, name := range folders {
		if err := validateFolderName(name); err != nil {
			return fmt.Errorf("folders.%s: %w", key, err)
		}
		if other, ok := seen[name]; ok {
			return fmt.Errorf("folders.%s and folders.%s share the name %q", key, other, name)
		}
		seen[name] = key
	}
	for _, name := range c.Folders.VendorBackups {
		if err := validateFolderName(name); err != nil {
			return fmt.Errorf("folders.vendor_backups: %w", err)
		}
	}

	for _, ext := range c.allExtensions() {
		if !strings.HasPrefix(ext, ".") {
			return fmt.Errorf("extension must start with a dot: %q", ext)
		}
	}

	if strings.TrimSpace(c.Transcoder.Command) == "" {
		return fmt.Errorf("transcoder.command must not be empty")
	}
	if c.Transcoder.InstallTimeoutSeconds < 0 {
		return fmt.Errorf("transcoder.install_timeout_seconds must be >= 0")
	}

	if c.Normalize.MaxDimension <= 0 {
		return fmt.Errorf("normalize.max_dimension must be > 0")
	}
	if c.Normalize.JPEGQuality < 1 || c.Normalize.JPEGQuality > 100 {
		return fmt.Errorf("normalize.jpeg_quality must be between 1 and 100")
	}
	if c.Normalize.WEBPQuality < 1 || c.Normalize.WEBPQuality > 100 {
		return fmt.Errorf("normalize.webp_quality must be between 1 and 100")
	}

	for _, pattern := range c.ExcludePatterns {
		if err := security.ValidateIgnorePattern(pattern); err != nil {
			return fmt.Errorf("invalid exclude pattern '%s': %w", pattern, err)
		}
	}

	switch strings.ToLower(c.Logging.Format) {
	case "", "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}

	return nil
}

func (c *Config) allExtensions() []string {
	var all []string
	all = append(all, c.Sorting.ImageExtensions...)
	all = append(all, c.Sorting.VideoExtensions...)
	all = append(all, c.Sorting.PendingExtensions...)
	all = append(all, c.Normalize.Extensions...)
	return all
}

func validateFolderName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("folder name must not be empty")
	}
	if name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("folder name must be a single path segment: %q", name)
	}
	return nil
}

// ReservedFolders returns every folder name the pipeline creates under the root
func (c *Config) ReservedFolders() []string {
	names := []string{
		c.Folders.Trash,
		c.Folders.Images,
		c.Folders.Videos,
		c.Folders.Backup,
		c.Folders.Failures,
	}
	return append(names, c.Folders.VendorBackups...)
}

// GetConfigPath returns the default config path
func GetConfigPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}

	configDir := filepath.Join(homeDir, ".config", "orgest")
	return filepath.Join(configDir, "config.yaml"), nil
}

// EnsureConfigExists creates a default config file if it doesn't exist
func EnsureConfigExists() (string, error) {
	configPath, err := GetConfigPath()
	if err != nil {
		return "", err
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		if err := Save(GetDefault(), configPath); err != nil {
			return "", err
		}
	}

	return configPath, nil
}
