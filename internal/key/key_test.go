package key_test

import (
	"path/filepath"
	"strings"
	"testing"
	"testing/quick"

	"github.com/cirruslabs/catcache/internal/key"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestFromPath(t *testing.T) {
	for _, path := range []string{"/200", "/404", "/teapot", "/A-b_9"} {
		actual, err := key.FromPath(path)
		require.NoError(t, err)
		require.Equal(t, path[1:], actual)
	}

	// UUIDs are handy in tests, make sure they're accepted
	expected := uuid.NewString()

	actual, err := key.FromPath("/" + expected)
	require.NoError(t, err)
	require.Equal(t, expected, actual)
}

func TestFromPathRejectsUnsafe(t *testing.T) {
	for _, path := range []string{
		"",
		"/",
		"//200",
		"/../secret",
		"/../../etc/passwd",
		"/..",
		"/.",
		"/a/b",
		"/a\\b",
		"/200.jpg",
		"/%2e%2e",
		"/null\x00byte",
		"/" + strings.Repeat("1", 129),
	} {
		_, err := key.FromPath(path)
		require.ErrorIs(t, err, key.ErrInvalid, "path %q should be rejected", path)
	}
}

func TestPath(t *testing.T) {
	require.Equal(t, filepath.Join("/cache", "200.jpg"), key.Path("/cache", "200"))
}

func TestFromFilename(t *testing.T) {
	actual, ok := key.FromFilename("200.jpg")
	require.True(t, ok)
	require.Equal(t, "200", actual)

	for _, name := range []string{"200", "200.png", ".jpg", ".put-123", "a.b.jpg"} {
		_, ok := key.FromFilename(name)
		require.False(t, ok, "filename %q should not map to a key", name)
	}
}

func TestValidKeysStayWithinDir(t *testing.T) {
	dir := t.TempDir()

	require.NoError(t, quick.Check(func(candidate string) bool {
		if key.Validate(candidate) != nil {
			return true
		}

		path := key.Path(dir, candidate)

		if filepath.Dir(path) != dir {
			return false
		}

		roundtripped, ok := key.FromFilename(filepath.Base(path))

		return ok && roundtripped == candidate
	}, &quick.Config{
		MaxCount: 100_000,
	}))
}
