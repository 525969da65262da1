package platform

import "path/filepath"

// getMacOSInfo returns platform-specific information for macOS
func getMacOSInfo(homeDir, username string) *Info {
	return &Info{
		OS:         MacOS,
		HomeDir:    homeDir,
		Username:   username,
		CacheDir:   filepath.Join(homeDir, "Library/Caches"),
		Installers: []string{"brew", "port"},
	}
}
