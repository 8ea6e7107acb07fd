package disk

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/cirruslabs/catcache/internal/cache"
	keypkg "github.com/cirruslabs/catcache/internal/key"
)

const tmpPattern = ".put-*"

type Entry struct {
	Key     string
	Size    uint64
	ModTime time.Time
}

type Disk struct {
	dir string
}

// New returns a disk cache rooted at dir, creating it
// (along with any intermediate directories) if needed.
func New(dir string) (*Disk, error) {
	if dir == "" {
		return nil, errors.New("cache directory cannot be empty")
	}

	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve cache directory %q: %w", dir, err)
	}

	// Pre-create the disk's directory if not created yet
	if err := os.MkdirAll(absDir, 0755); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("failed to create cache directory %q: %w", absDir, err)
	}

	return &Disk{
		dir: absDir,
	}, nil
}

func (disk *Disk) Dir() string {
	return disk.dir
}

func (disk *Disk) Get(_ context.Context, key string) ([]byte, error) {
	path, err := disk.path(key)
	if err != nil {
		return nil, err
	}

	fi, err := os.Stat(path)
	if err != nil {
		// Convert the error for consumer's convenience
		if errors.Is(err, os.ErrNotExist) {
			return nil, cache.ErrNotFound
		}

		return nil, fmt.Errorf("failed to stat cache entry %q: %w", key, err)
	}

	// Something else took the entry's place, treat it as absent
	if !fi.Mode().IsRegular() {
		return nil, cache.ErrNotFound
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, cache.ErrNotFound
		}

		return nil, fmt.Errorf("failed to read cache entry %q: %w", key, err)
	}

	return data, nil
}

func (disk *Disk) Put(_ context.Context, key string, data []byte) error {
	path, err := disk.path(key)
	if err != nil {
		return err
	}

	// Write into a temporary file in the same directory first,
	// so that the rename below atomically replaces the cache entry
	tmpFile, err := os.CreateTemp(disk.dir, tmpPattern)
	if err != nil {
		return fmt.Errorf("failed to create a temporary file for the cache entry %q: %w",
			key, err)
	}

	if _, err := tmpFile.Write(data); err != nil {
		_ = tmpFile.Close()
		_ = os.Remove(tmpFile.Name())

		return fmt.Errorf("failed to write cache entry %q: %w", key, err)
	}

	if err := tmpFile.Chmod(0644); err != nil {
		_ = tmpFile.Close()
		_ = os.Remove(tmpFile.Name())

		return fmt.Errorf("failed to set permissions on cache entry %q: %w", key, err)
	}

	if err := tmpFile.Close(); err != nil {
		_ = os.Remove(tmpFile.Name())

		return fmt.Errorf("failed to close cache entry %q: %w", key, err)
	}

	if err := os.Rename(tmpFile.Name(), path); err != nil {
		_ = os.Remove(tmpFile.Name())

		return fmt.Errorf("failed to accept cache entry %q: %w", key, err)
	}

	return nil
}

func (disk *Disk) Delete(_ context.Context, key string) error {
	path, err := disk.path(key)
	if err != nil {
		return err
	}

	fi, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cache.ErrNotFound
		}

		return fmt.Errorf("failed to stat cache entry %q: %w", key, err)
	}

	// Get doesn't consider this an entry, so neither do we
	if !fi.Mode().IsRegular() {
		return cache.ErrNotFound
	}

	if err := os.Remove(path); err != nil {
		// Convert the error for consumer's convenience
		if errors.Is(err, os.ErrNotExist) {
			return cache.ErrNotFound
		}

		return fmt.Errorf("failed to delete cache entry %q: %w", key, err)
	}

	return nil
}

// Entries lists the cache entries currently present on disk,
// skipping anything that doesn't look like one.
func (disk *Disk) Entries() ([]Entry, error) {
	dirEntries, err := os.ReadDir(disk.dir)
	if err != nil {
		return nil, err
	}

	var entries []Entry

	for _, dirEntry := range dirEntries {
		if !dirEntry.Type().IsRegular() {
			continue
		}

		key, ok := keypkg.FromFilename(dirEntry.Name())
		if !ok {
			continue
		}

		fi, err := dirEntry.Info()
		if err != nil {
			// Removed concurrently
			if errors.Is(err, os.ErrNotExist) {
				continue
			}

			return nil, err
		}

		entries = append(entries, Entry{
			Key:     key,
			Size:    uint64(fi.Size()),
			ModTime: fi.ModTime(),
		})
	}

	return entries, nil
}

func (disk *Disk) path(key string) (string, error) {
	if err := keypkg.Validate(key); err != nil {
		return "", err
	}

	return keypkg.Path(disk.dir, key), nil
}
