package download

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/afero"
)

// ValidHash reports whether s looks like an md5 hex digest. Anything
// else is refused before a single byte is fetched: a config source that
// cannot produce a digest does not get to place files on the device.
func ValidHash(s string) bool {
	if len(s) != 32 {
		return false
	}
	_, err := hex.DecodeString(s)
	return err == nil
}

// fileDigest computes the md5 hex digest of the file at path.
func fileDigest(fs afero.Fs, path string) (string, error) {
	f, err := fs.Open(path)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	h := md5.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("digest %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// digestMatches verifies the file at path against the expected digest.
func digestMatches(fs afero.Fs, path, expected string) (bool, error) {
	actual, err := fileDigest(fs, path)
	if err != nil {
		return false, err
	}
	return strings.EqualFold(actual, expected), nil
}
