package fsx

import (
	"fmt"
	"io"
	"os"

	"github.com/fenilsonani/orgest/pkg/utils"
)

// CopyFileVerified copies src to dst, which must not exist, then re-reads dst
// and compares its SHA-256 with the source. dst is removed on any failure.
func CopyFileVerified(src, dst string) (err error) {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return fmt.Errorf("stat source: %w", err)
	}

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_EXCL|os.O_WRONLY, info.Mode().Perm())
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = out.Close()
			_ = os.Remove(dst)
		}
	}()

	srcSum, err := utils.HashReader(io.TeeReader(in, out))
	if err != nil {
		return err
	}
	if err = out.Sync(); err != nil {
		return err
	}
	if err = out.Close(); err != nil {
		return err
	}

	dstSum, err := utils.HashFile(dst)
	if err != nil {
		return fmt.Errorf("verify copy: %w", err)
	}
	if dstSum != srcSum {
		err = fmt.Errorf("copy hash mismatch: %s differs from %s", dst, src)
		return err
	}

	// Carry the modification time over like a rename would
	_ = os.Chtimes(dst, info.ModTime(), info.ModTime())
	return nil
}
