// Package objectstore implements git-fat's blob store: a flat,
// content-addressed directory under `<git-dir>/fat/objects/`, one file per
// digest, admitted atomically by writing to a temp file in the same
// directory and renaming it into place.
//
// Unlike the teacher project's object store, git-fat objects are never
// sharded into `ab/cdef...` subdirectories (spec.md §3 keeps the layout
// flat) and never compressed (a fat blob is exactly the file's real
// bytes, not a DEFLATEd git object).
package objectstore

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"syscall"

	"github.com/gitfat-go/gitfat/pkg/fatutil/errs"
	"github.com/gitfat-go/gitfat/pkg/placeholder"
)

const pkgName = "objectstore"

// objectMode matches the original's read-only admitted-object permission,
// before umask masking (see getUmask).
const objectMode = 0o444

// getUmask reads the process umask. Go's os package exposes no direct
// getter, so this swaps the umask out and immediately back in, the same
// trick the original's git_utils.py umask() helper uses.
func getUmask() int {
	old := syscall.Umask(0)
	syscall.Umask(old)
	return old
}

// Store is the blob storage contract every git-fat component depends on.
type Store interface {
	// Exists reports whether d is present in the store.
	Exists(d placeholder.Digest) (bool, error)

	// Admit moves the file at tempPath into the store under d, atomically.
	// tempPath must reside on the same filesystem as the store's directory
	// (callers create it with os.CreateTemp(store.Dir(), ...) for exactly
	// this reason) so the rename is atomic.
	Admit(tempPath string, d placeholder.Digest) error

	// List enumerates every digest currently admitted.
	List() ([]placeholder.Digest, error)

	// Open returns a reader over the stored blob for d.
	Open(d placeholder.Digest) (io.ReadCloser, error)

	// Remove deletes the stored blob for d. Not an error if absent.
	Remove(d placeholder.Digest) error

	// Dir returns the store's backing directory, so callers can create
	// same-filesystem temp files for Admit.
	Dir() string
}

// FileStore is the flat-directory Store implementation.
type FileStore struct {
	dir string
}

// NewFileStore creates a FileStore rooted at dir. The directory is created
// if absent.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errs.New(pkgName, errs.CodeIOError, "NewFileStore", "create objects directory", err)
	}
	return &FileStore{dir: dir}, nil
}

// Dir implements Store.
func (s *FileStore) Dir() string { return s.dir }

func (s *FileStore) path(d placeholder.Digest) string {
	return filepath.Join(s.dir, string(d))
}

// Exists implements Store.
func (s *FileStore) Exists(d placeholder.Digest) (bool, error) {
	_, err := os.Lstat(s.path(d))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, errs.New(pkgName, errs.CodeIOError, "Exists", fmt.Sprintf("stat %s", d), err)
}

// Admit implements Store. If the digest is already present, tempPath is
// discarded (content-addressed storage: identical digest implies
// identical content, so the existing file wins and the duplicate write is
// silently dropped) — matching the original's `if os.path.exists(objfile)`
// short-circuit in filter_clean.
func (s *FileStore) Admit(tempPath string, d placeholder.Digest) error {
	target := s.path(d)
	if exists, err := s.Exists(d); err != nil {
		return err
	} else if exists {
		os.Remove(tempPath)
		return nil
	}

	mode := os.FileMode(objectMode &^ getUmask())
	if err := os.Chmod(tempPath, mode); err != nil {
		return errs.New(pkgName, errs.CodeIOError, "Admit", "chmod staged object", err)
	}
	if err := os.Rename(tempPath, target); err != nil {
		return errs.New(pkgName, errs.CodeIOError, "Admit", fmt.Sprintf("rename into store for %s", d), err)
	}
	return nil
}

// List implements Store.
func (s *FileStore) List() ([]placeholder.Digest, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, errs.New(pkgName, errs.CodeIOError, "List", "read objects directory", err)
	}

	digests := make([]placeholder.Digest, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		d := placeholder.Digest(e.Name())
		if d.Validate() != nil {
			continue // skip stray non-object files (e.g. leftover temp files)
		}
		digests = append(digests, d)
	}
	return digests, nil
}

// Open implements Store.
func (s *FileStore) Open(d placeholder.Digest) (io.ReadCloser, error) {
	f, err := os.Open(s.path(d))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errs.New(pkgName, errs.CodeMissingBlob, "Open", fmt.Sprintf("digest %s not in store", d), err)
		}
		return nil, errs.New(pkgName, errs.CodeIOError, "Open", fmt.Sprintf("open %s", d), err)
	}
	return f, nil
}

// Remove implements Store.
func (s *FileStore) Remove(d placeholder.Digest) error {
	if err := os.Remove(s.path(d)); err != nil && !os.IsNotExist(err) {
		return errs.New(pkgName, errs.CodeIOError, "Remove", fmt.Sprintf("remove %s", d), err)
	}
	return nil
}
