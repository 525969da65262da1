package scanner

import (
	"fmt"
	"os"

	"github.com/fenilsonani/orgest/pkg/utils"
)

// HashFunc computes the fingerprint of the file at path
type HashFunc func(path string) (Fingerprint, error)

// FingerprintFile streams the file through SHA-256 in 8 KiB chunks. Zero-byte
// files get EmptyFingerprint without being opened.
func FingerprintFile(path string) (Fingerprint, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("fingerprint %s: %w", path, err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("fingerprint %s: is a directory", path)
	}
	if info.Size() == 0 {
		return EmptyFingerprint, nil
	}

	sum, err := utils.HashFile(path)
	if err != nil {
		return "", fmt.Errorf("fingerprint %s: %w", path, err)
	}
	return Fingerprint(sum), nil
}
