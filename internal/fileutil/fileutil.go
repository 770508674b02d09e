package fileutil

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// WriteFileVerified writes data to dst through a temporary file in the same
// directory, verifies size and SHA-256 of what landed on disk, then renames it
// into place. It returns the hex digest. The temporary file is removed on any
// failure, so dst is either the complete new content or untouched.
func WriteFileVerified(dst string, data []byte, mode os.FileMode) (string, error) {
	dir := filepath.Dir(dst)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(dst)+".*.tmp")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmpPath)
		}
	}()

	want := sha256.Sum256(data)
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return "", fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, mode); err != nil {
		return "", fmt.Errorf("chmod temp file: %w", err)
	}

	got, size, err := HashFile(tmpPath)
	if err != nil {
		return "", err
	}
	if size != int64(len(data)) {
		return "", fmt.Errorf("write size mismatch: expected %d bytes, wrote %d bytes", len(data), size)
	}
	if !bytes.Equal(want[:], got) {
		return "", fmt.Errorf("write hash mismatch: file corrupted during write")
	}

	if err := os.Rename(tmpPath, dst); err != nil {
		return "", fmt.Errorf("rename into place: %w", err)
	}
	committed = true
	return hex.EncodeToString(want[:]), nil
}

// HashFile streams path through SHA-256 and returns the digest and size.
func HashFile(path string) ([]byte, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()

	hasher := sha256.New()
	n, err := io.Copy(hasher, f)
	if err != nil {
		return nil, 0, fmt.Errorf("hash %s: %w", path, err)
	}
	return hasher.Sum(nil), n, nil
}

// MatchesDigest reports whether the file at path exists and has the given
// hex SHA-256 digest.
func MatchesDigest(path, digest string) bool {
	if digest == "" {
		return false
	}
	sum, _, err := HashFile(path)
	if err != nil {
		return false
	}
	return hex.EncodeToString(sum) == digest
}
