package cache

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
)

// DefaultIndexFile is the placeholder written into the cache directory so a web
// server pointed at it does not produce a directory listing.
const DefaultIndexFile = "index.html"

// EnsureDir creates dir when it is missing and drops an empty index placeholder
// into it. An existing index file is left untouched. An empty index skips the
// placeholder.
func EnsureDir(dir string, perm os.FileMode, index string) error {
	if err := os.MkdirAll(dir, perm); err != nil {
		return &StoreError{Step: StepMkdir, Path: dir, Err: err}
	}
	if index == "" {
		return nil
	}

	indexPath := filepath.Join(dir, index)
	f, err := os.OpenFile(indexPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return nil
		}
		return &StoreError{Step: StepIndex, Path: indexPath, Err: err}
	}
	if err := f.Close(); err != nil {
		return &StoreError{Step: StepIndex, Path: indexPath, Err: err}
	}
	return nil
}
