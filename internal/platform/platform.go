package platform

import (
	"os"
	"os/user"
	"path/filepath"
	"runtime"
)

// Platform represents the operating system platform
type Platform string

const (
	MacOS   Platform = "darwin"
	Linux   Platform = "linux"
	Windows Platform = "windows"
	Unknown Platform = "unknown"
)

// Info contains platform-specific information used for provisioning and
// per-user state
type Info struct {
	OS       Platform
	HomeDir  string
	Username string
	CacheDir string
	// Installers lists the package managers the platform usually ships,
	// in the order they are worth trying
	Installers []string
}

// Detect returns the current platform
func Detect() Platform {
	return fromGOOS(runtime.GOOS)
}

func fromGOOS(goos string) Platform {
	switch goos {
	case "darwin":
		return MacOS
	case "linux":
		return Linux
	case "windows":
		return Windows
	default:
		return Unknown
	}
}

// Key returns the GOOS-style key used for per-platform configuration maps
func (p Platform) Key() string {
	return string(p)
}

// GetInfo returns platform-specific information
func GetInfo() (*Info, error) {
	currentUser, err := user.Current()
	if err != nil {
		return nil, err
	}

	info := infoFor(Detect(), currentUser.HomeDir, currentUser.Username)
	if info == nil {
		return nil, ErrUnsupportedPlatform
	}
	return info, nil
}

// InstallersFor returns the package managers usually found on p, most
// preferred first. Unknown platforms have none.
func InstallersFor(p Platform) []string {
	if info := infoFor(p, "", ""); info != nil {
		return info.Installers
	}
	return nil
}

func infoFor(p Platform, homeDir, username string) *Info {
	switch p {
	case MacOS:
		return getMacOSInfo(homeDir, username)
	case Linux:
		return getLinuxInfo(homeDir, username)
	case Windows:
		return getWindowsInfo(homeDir, username)
	default:
		return nil
	}
}

// GetUserCacheDir returns the user's cache directory
func GetUserCacheDir() (string, error) {
	if Detect() == Linux {
		// Try XDG_CACHE_HOME first
		if cacheDir := os.Getenv("XDG_CACHE_HOME"); cacheDir != "" {
			return cacheDir, nil
		}
		// Fall back to ~/.cache
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(homeDir, ".cache"), nil
	}
	return os.UserCacheDir()
}

// StateDir returns the per-user directory orgest keeps run state in
func StateDir() (string, error) {
	cacheDir, err := GetUserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(cacheDir, "orgest"), nil
}

// Errors
var (
	ErrUnsupportedPlatform = &PlatformError{"unsupported platform"}
)

// PlatformError represents a platform-related error
type PlatformError struct {
	Message string
}

func (e *PlatformError) Error() string {
	return e.Message
}
