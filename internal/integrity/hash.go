package integrity

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"
)

// DigestLen is the length of a hex encoded SHA-1 digest.
const DigestLen = sha1.Size * 2

// Hash returns the lowercase hex SHA-1 digest of everything read from r.
func Hash(r io.Reader) (string, error) {
	h := sha1.New()
	if _, err := io.Copy(h, r); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// HashFile returns the SHA-1 digest of the file at path.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	digest, err := Hash(f)
	if err != nil {
		return "", fmt.Errorf("hash %s: %w", path, err)
	}
	return digest, nil
}

// NormalizeDigest lowercases and trims a digest taken from a config file.
func NormalizeDigest(d string) string {
	return strings.ToLower(strings.TrimSpace(d))
}

func isDigest(d string) bool {
	if len(d) != DigestLen {
		return false
	}
	_, err := hex.DecodeString(d)
	return err == nil
}
