package models

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"
)

// verifyFileSHA256 is the default VerifyFunc. It streams the file at
// path through SHA-256 and compares the digest to expectedHash
// (lowercase hex). Digests are computed incrementally so multi-gigabyte
// model files never need to fit in memory.
func verifyFileSHA256(path string, expectedHash string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("%w: opening file for verification: %v", ErrStorage, err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return fmt.Errorf("%w: reading file for verification: %v", ErrStorage, err)
	}

	actual := hex.EncodeToString(h.Sum(nil))
	if actual != strings.ToLower(expectedHash) {
		return fmt.Errorf("%w: got %s, want %s", ErrIntegrity, actual, expectedHash)
	}
	return nil
}
