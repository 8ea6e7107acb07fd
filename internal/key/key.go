// Package key derives cache keys from request paths and maps them to storage
// locations.
//
// Unlike the raw request path, a key is restricted to the characters that are
// safe to use verbatim as a filename on every OS we care about[1], so that the
// resulting path can never escape the cache directory, without the need of
// things like SecureJoin[2].
//
// [1]: https://en.wikipedia.org/wiki/Filename#Reserved_characters_and_words
// [2]: https://github.com/cyphar/filepath-securejoin
package key

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

const (
	// Extension is appended to the key to form the cache entry's filename.
	Extension = ".jpg"

	maxLength = 128
)

var ErrInvalid = errors.New("invalid key")

// FromPath strips the leading separator from the request path
// and validates the remainder as a key.
func FromPath(path string) (string, error) {
	key := strings.TrimPrefix(path, "/")

	if err := Validate(key); err != nil {
		return "", err
	}

	return key, nil
}

func Validate(key string) error {
	if key == "" {
		return fmt.Errorf("%w: key is empty", ErrInvalid)
	}

	if len(key) > maxLength {
		return fmt.Errorf("%w: key is %d bytes long, but at most %d bytes are allowed",
			ErrInvalid, len(key), maxLength)
	}

	for _, c := range []byte(key) {
		if !isAllowed(c) {
			return fmt.Errorf("%w: key %q contains disallowed character %q", ErrInvalid, key, c)
		}
	}

	return nil
}

// Path returns the location of the cache entry for the key within dir.
//
// The key is expected to be validated beforehand.
func Path(dir string, key string) string {
	return filepath.Join(dir, key+Extension)
}

// FromFilename is the inverse of Path for a filename within the cache directory.
func FromFilename(name string) (string, bool) {
	key, ok := strings.CutSuffix(name, Extension)
	if !ok {
		return "", false
	}

	if err := Validate(key); err != nil {
		return "", false
	}

	return key, true
}

func isAllowed(c byte) bool {
	switch {
	case c >= '0' && c <= '9':
		return true
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
		return true
	case c == '-' || c == '_':
		return true
	default:
		return false
	}
}
