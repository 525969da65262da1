//go:build !unix

package security

import (
	"fmt"
	"os"
)

func checkWritable(dir string) error {
	f, err := os.CreateTemp(dir, ".orgest-probe-*")
	if err != nil {
		return fmt.Errorf("create probe file: %w", err)
	}
	name := f.Name()
	f.Close()
	return os.Remove(name)
}
