package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// =============================================================================
// GetDefault Tests
// =============================================================================

func TestGetDefault(t *testing.T) {
	cfg := GetDefault()

	if cfg == nil {
		t.Fatal("GetDefault returned nil")
	}

	if !cfg.Display.ShowBanners {
		t.Error("expected ShowBanners to be enabled by default")
	}
	if cfg.Display.PauseBetweenSteps {
		t.Error("expected PauseBetweenSteps to be disabled by default")
	}
	if cfg.Display.Verbose {
		t.Error("expected Verbose to be disabled by default")
	}
	if !cfg.Display.ClearConsole {
		t.Error("expected ClearConsole to be enabled by default")
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestGetDefaultFolders(t *testing.T) {
	cfg := GetDefault()

	tests := []struct {
		name string
		got  string
		want string
	}{
		{"trash", cfg.Folders.Trash, "basura"},
		{"images", cfg.Folders.Images, "Imagenes"},
		{"videos", cfg.Folders.Videos, "Videos"},
		{"backup", cfg.Folders.Backup, "sin_edit"},
		{"failures", cfg.Folders.Failures, "fallos"},
	}

	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("expected %s folder %q, got %q", tt.name, tt.want, tt.got)
		}
	}

	if len(cfg.ReservedFolders()) != 6 {
		t.Errorf("expected 6 reserved folders, got %d", len(cfg.ReservedFolders()))
	}
}

func TestGetDefaultNormalize(t *testing.T) {
	cfg := GetDefault()

	if cfg.Normalize.MaxDimension != 5000 {
		t.Errorf("expected MaxDimension 5000, got %d", cfg.Normalize.MaxDimension)
	}
	if cfg.Normalize.JPEGQuality != 85 {
		t.Errorf("expected JPEGQuality 85, got %d", cfg.Normalize.JPEGQuality)
	}
	if cfg.Normalize.WEBPQuality != 85 {
		t.Errorf("expected WEBPQuality 85, got %d", cfg.Normalize.WEBPQuality)
	}
	if !cfg.Normalize.PNGOptimize {
		t.Error("expected PNGOptimize to be enabled by default")
	}
}

func TestGetDefaultTranscoder(t *testing.T) {
	cfg := GetDefault()

	if cfg.Transcoder.Command != "ffmpeg" {
		t.Errorf("expected transcoder command ffmpeg, got %q", cfg.Transcoder.Command)
	}
	for _, goos := range []string{"linux", "darwin", "windows"} {
		if len(cfg.Transcoder.InstallCommands[goos]) == 0 {
			t.Errorf("expected install commands for %s", goos)
		}
	}
}

// =============================================================================
// Load Tests
// =============================================================================

func TestLoadNonExistentFile(t *testing.T) {
	cfg, err := Load("/nonexistent/path/config.yaml")
	if err != nil {
		t.Fatalf("Load should not error for non-existent file: %v", err)
	}

	if cfg == nil {
		t.Fatal("Load returned nil config")
	}
	if cfg.Folders.Trash != "basura" {
		t.Error("expected default trash folder")
	}
}

func TestLoadValidConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
display:
  show_banners: false
  pause_between_steps: true
  verbose_mode: true
  clear_console: false
folders:
  trash: papelera
normalize:
  max_dimension: 2048
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Display.ShowBanners {
		t.Error("expected ShowBanners to be false")
	}
	if !cfg.Display.PauseBetweenSteps {
		t.Error("expected PauseBetweenSteps to be true")
	}
	if !cfg.Display.Verbose {
		t.Error("expected Verbose to be true")
	}
	if cfg.Folders.Trash != "papelera" {
		t.Errorf("expected trash folder papelera, got %q", cfg.Folders.Trash)
	}
	if cfg.Normalize.MaxDimension != 2048 {
		t.Errorf("expected MaxDimension 2048, got %d", cfg.Normalize.MaxDimension)
	}
}

func TestLoadPartialConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	// Only override one value
	configContent := `
normalize:
  jpeg_quality: 70
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Normalize.JPEGQuality != 70 {
		t.Errorf("expected JPEGQuality 70, got %d", cfg.Normalize.JPEGQuality)
	}
	// Defaults preserved for unspecified values
	if cfg.Normalize.MaxDimension != 5000 {
		t.Errorf("expected default MaxDimension 5000, got %d", cfg.Normalize.MaxDimension)
	}
	if cfg.Folders.Backup != "sin_edit" {
		t.Errorf("expected default backup folder, got %q", cfg.Folders.Backup)
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
display:
  show_banners: [invalid
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	_, err := Load(configPath)
	if err == nil {
		t.Error("expected error for invalid YAML")
	}
}

func TestLoadInvalidValues(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		errorMsg string
	}{
		{
			name:     "zero max dimension",
			content:  "normalize:\n  max_dimension: 0\n",
			errorMsg: "max_dimension",
		},
		{
			name:     "jpeg quality out of range",
			content:  "normalize:\n  jpeg_quality: 150\n",
			errorMsg: "jpeg_quality",
		},
		{
			name:     "nested folder name",
			content:  "folders:\n  trash: a/b\n",
			errorMsg: "single path segment",
		},
		{
			name:     "duplicate folder names",
			content:  "folders:\n  trash: sin_edit\n",
			errorMsg: "share the name",
		},
		{
			name:     "extension without dot",
			content:  "sorting:\n  image_extensions: [jpg]\n",
			errorMsg: "must start with a dot",
		},
		{
			name:     "empty transcoder command",
			content:  "transcoder:\n  command: \"\"\n",
			errorMsg: "transcoder.command",
		},
		{
			name:     "traversal in exclude pattern",
			content:  "exclude_patterns:\n  - \"../outside\"\n",
			errorMsg: "invalid exclude pattern",
		},
		{
			name:     "unknown log format",
			content:  "logging:\n  format: xml\n",
			errorMsg: "logging.format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			configPath := filepath.Join(t.TempDir(), "config.yaml")
			if err := os.WriteFile(configPath, []byte(tt.content), 0644); err != nil {
				t.Fatalf("failed to write test config: %v", err)
			}

			_, err := Load(configPath)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.errorMsg) {
				t.Errorf("expected error containing %q, got %q", tt.errorMsg, err.Error())
			}
		})
	}
}

// =============================================================================
// Save Tests
// =============================================================================

func TestSaveAndLoadRoundTrip(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := GetDefault()
	cfg.Display.Verbose = true
	cfg.Folders.VendorBackups = []string{"YaRespaldo", "OldBackups"}

	if err := Save(cfg, configPath); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if !loaded.Display.Verbose {
		t.Error("expected Verbose to survive round trip")
	}
	if len(loaded.Folders.VendorBackups) != 2 {
		t.Errorf("expected 2 vendor backup folders, got %v", loaded.Folders.VendorBackups)
	}
}

func TestGetConfigPath(t *testing.T) {
	path, err := GetConfigPath()
	if err != nil {
		t.Fatalf("GetConfigPath failed: %v", err)
	}

	if !strings.HasSuffix(path, filepath.Join(".config", "orgest", "config.yaml")) {
		t.Errorf("unexpected config path: %s", path)
	}
}

func TestEnsureConfigExists(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	path, err := EnsureConfigExists()
	if err != nil {
		t.Fatalf("EnsureConfigExists failed: %v", err)
	}

	if _, err := os.Stat(path); err != nil {
		t.Errorf("expected config file to be created: %v", err)
	}
}

// =============================================================================
// HistoryStore Tests
// =============================================================================

func TestHistoryStoreSaveListPrune(t *testing.T) {
	store, err := NewHistoryStoreAt(filepath.Join(t.TempDir(), "runs"))
	if err != nil {
		t.Fatalf("NewHistoryStoreAt failed: %v", err)
	}

	now := time.Now()
	records := []*RunRecord{
		{ID: "old", Root: "/data", StartedAt: now.AddDate(0, 0, -40)},
		{ID: "new", Root: "/data", StartedAt: now, Processed: 3},
	}
	for _, r := range records {
		if err := store.Save(r); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
	}

	listed, err := store.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(listed) != 2 {
		t.Fatalf("expected 2 records, got %d", len(listed))
	}
	if listed[0].ID != "new" {
		t.Errorf("expected newest record first, got %s", listed[0].ID)
	}

	removed, err := store.Prune(30)
	if err != nil {
		t.Fatalf("Prune failed: %v", err)
	}
	if removed != 1 {
		t.Errorf("expected 1 pruned record, got %d", removed)
	}

	if _, err := store.Load("old"); err == nil {
		t.Error("expected pruned record to be gone")
	}
}

func TestHistoryStoreRejectsMissingID(t *testing.T) {
	store, err := NewHistoryStoreAt(t.TempDir())
	if err != nil {
		t.Fatalf("NewHistoryStoreAt failed: %v", err)
	}

	if err := store.Save(&RunRecord{}); err == nil {
		t.Error("expected error for record without id")
	}
}
