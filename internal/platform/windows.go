package platform

import "path/filepath"

// getWindowsInfo returns platform-specific information for Windows
func getWindowsInfo(homeDir, username string) *Info {
	return &Info{
		OS:         Windows,
		HomeDir:    homeDir,
		Username:   username,
		CacheDir:   filepath.Join(homeDir, "AppData", "Local"),
		Installers: []string{"winget", "choco", "scoop"},
	}
}
