package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
)

// HashChunkSize is the read size used when streaming a file through the hash
const HashChunkSize = 8 * KB

// HashFile computes the SHA-256 of a file, reading it in HashChunkSize chunks
func HashFile(filepath string) (string, error) {
	file, err := os.Open(filepath)
	if err != nil {
		return "", err
	}
	defer file.Close()

	return HashReader(file)
}

// HashReader computes the SHA-256 of everything readable from r
func HashReader(r io.Reader) (string, error) {
	hash := sha256.New()
	if _, err := copyChunks(hash, r); err != nil {
		return "", err
	}

	return hex.EncodeToString(hash.Sum(nil)), nil
}

// copyChunks copies src to dst in writes of at most HashChunkSize bytes.
// Both ends are wrapped so io.CopyBuffer cannot take the WriterTo or
// ReaderFrom shortcut (*os.File has one) and bypass the buffer.
func copyChunks(dst io.Writer, src io.Reader) (int64, error) {
	buf := make([]byte, HashChunkSize)
	return io.CopyBuffer(struct{ io.Writer }{dst}, struct{ io.Reader }{src}, buf)
}

// HashString returns the hex SHA-256 of s
func HashString(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}
