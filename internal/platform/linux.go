package platform

import "path/filepath"

// getLinuxInfo returns platform-specific information for Linux
func getLinuxInfo(homeDir, username string) *Info {
	return &Info{
		OS:         Linux,
		HomeDir:    homeDir,
		Username:   username,
		CacheDir:   filepath.Join(homeDir, ".cache"),
		Installers: []string{"apt", "apt-get", "dnf", "pacman", "zypper"},
	}
}
