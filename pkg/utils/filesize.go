package utils

import (
	"io/fs"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/dustin/go-humanize/english"
)

const (
	B  = 1
	KB = 1024 * B
	MB = 1024 * KB
	GB = 1024 * MB
)

// FormatBytes converts bytes to human-readable format
func FormatBytes(bytes int64) string {
	if bytes < 0 {
		return "0 B"
	}
	return humanize.IBytes(uint64(bytes))
}

// FormatCount formats an integer with thousands separators
func FormatCount(n int) string {
	return humanize.Comma(int64(n))
}

// Plural formats n with the singular or plural form of word, e.g. "1 error"
func Plural(n int, word string) string {
	return english.Plural(n, word, "")
}

// DirUsage returns the total size and regular file count below dir
func DirUsage(dir string) (int64, int, error) {
	var size int64
	var count int

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// Unreadable entries don't count toward the total
			if d != nil && d.IsDir() && path != dir {
				return fs.SkipDir
			}
			if path == dir {
				return err
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		size += info.Size()
		count++
		return nil
	})

	return size, count, err
}
