package config

// GetDefault returns the default configuration
func GetDefault() *Config {
	return &Config{
		Display: DisplayConfig{
			ShowBanners:       true,
			PauseBetweenSteps: false,
			Verbose:           false,
			ClearConsole:      true,
		},
		Folders: FolderConfig{
			Trash:         "basura",
			Images:        "Imagenes",
			Videos:        "Videos",
			Backup:        "sin_edit",
			Failures:      "fallos",
			VendorBackups: []string{"YaRespaldo"},
		},
		Sorting: SortingConfig{
			ImageExtensions:   []string{".jpg", ".jpeg", ".png", ".gif", ".bmp", ".tiff", ".tif", ".ico"},
			VideoExtensions:   []string{".mp4", ".avi", ".mov", ".mkv", ".wmv", ".flv", ".mpeg", ".mpg"},
			PendingExtensions: []string{".webp", ".ts"},
		},
		Transcoder: TranscoderConfig{
			Command:               "ffmpeg",
			AutoInstall:           true,
			InstallTimeoutSeconds: 300,
			InstallCommands: map[string][]string{
				"windows": {
					"winget install --id Gyan.FFmpeg -e --silent --accept-package-agreements --accept-source-agreements",
					"choco install ffmpeg -y",
				},
				"linux": {
					"sudo apt update",
					"sudo apt install -y ffmpeg",
				},
				"darwin": {
					"brew install ffmpeg",
				},
			},
		},
		Normalize: NormalizeConfig{
			MaxDimension: 5000,
			JPEGQuality:  85,
			WEBPQuality:  85,
			PNGOptimize:  true,
			AutoOrient:   false, // keep pixel layout untouched unless asked
			Extensions:   []string{".jpg", ".jpeg", ".png", ".bmp", ".tiff", ".webp"},
		},
		ExcludePatterns: []string{
			".git/",
			".DS_Store",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}
