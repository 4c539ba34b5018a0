// Package filter implements git-fat's clean/smudge filter pair: the two
// streaming transforms git invokes when a large file moves between the
// working tree and the repository.
//
// Both are single-pass: Clean tees stdin to a hash and a staged temp file
// simultaneously, so large files never sit fully in memory. Smudge either
// streams a stored blob back out, or — when the blob is missing locally —
// writes the placeholder back unchanged so the working tree still shows
// something meaningful instead of silently truncating the file.
package filter

import (
	"bufio"
	"crypto/sha1"
	"fmt"
	"io"
	"os"

	"github.com/gitfat-go/gitfat/pkg/fatutil/errs"
	"github.com/gitfat-go/gitfat/pkg/objectstore"
	"github.com/gitfat-go/gitfat/pkg/placeholder"
)

const pkgName = "filter"

// Clean reads the working-tree version of a file from r and writes the
// repository version (a placeholder) to w, admitting the real bytes into
// store as a side effect.
//
// If r already holds a placeholder — the "hanging file" case, where the
// real blob was never checked out because the filter wasn't configured
// when the file was added, or because of a shallow/partial clone — Clean
// passes that placeholder straight through unchanged rather than
// re-hashing and re-storing it as if it were a small ordinary file.
func Clean(r io.Reader, w io.Writer, store objectstore.Store, codec placeholder.Codec) error {
	tmp, err := os.CreateTemp(store.Dir(), ".gitfat-tmp-*")
	if err != nil {
		return errs.New(pkgName, errs.CodeIOError, "Clean", "create staging file", err)
	}
	tmpPath := tmp.Name()
	staged := false
	defer func() {
		if !staged {
			tmp.Close()
			os.Remove(tmpPath)
		}
	}()

	br := bufio.NewReader(r)
	h := sha1.New()

	magicLen := codec.MagicLength()
	first, err := br.Peek(magicLen)
	hanging := false
	if (err == nil || err == io.EOF) && len(first) == magicLen {
		if digest, _, ok, decErr := placeholder.Decode(first, false); decErr == nil && ok {
			hanging = true
			_ = digest
		}
	}

	var size int64
	var out io.Writer = tmp
	if hanging {
		out = w
	}

	mw := io.MultiWriter(h, out)
	n, err := io.Copy(mw, br)
	if err != nil {
		return errs.New(pkgName, errs.CodeIOError, "Clean", "copy input", err)
	}
	size = n

	if hanging {
		return nil
	}

	if err := tmp.Sync(); err != nil {
		return errs.New(pkgName, errs.CodeIOError, "Clean", "sync staging file", err)
	}
	if err := tmp.Close(); err != nil {
		return errs.New(pkgName, errs.CodeIOError, "Clean", "close staging file", err)
	}

	digest := placeholder.Digest(fmt.Sprintf("%x", h.Sum(nil)))
	if err := store.Admit(tmpPath, digest); err != nil {
		return err
	}
	staged = true

	_, err = w.Write(codec.Encode(digest, size))
	if err != nil {
		return errs.New(pkgName, errs.CodeIOError, "Clean", "write placeholder", err)
	}
	return nil
}

// Smudge reads a placeholder from r and writes the real file bytes to w,
// reading the blob out of store. When the referenced digest is absent
// from the store, Smudge does not fail the checkout — it writes the
// placeholder straight through, exactly as the original leaves an
// unexpanded reference so the user can `git fat pull` it later.
func Smudge(r io.Reader, w io.Writer, store objectstore.Store) error {
	body, err := io.ReadAll(r)
	if err != nil {
		return errs.New(pkgName, errs.CodeIOError, "Smudge", "read input", err)
	}

	digest, _, ok, err := placeholder.Decode(body, false)
	if err != nil {
		return err
	}
	if !ok {
		// Not a managed file at all — pass through verbatim.
		_, err := w.Write(body)
		if err != nil {
			return errs.New(pkgName, errs.CodeIOError, "Smudge", "write passthrough", err)
		}
		return nil
	}

	rc, err := store.Open(digest)
	if err != nil {
		if errs.IsCode(err, errs.CodeMissingBlob) {
			_, werr := w.Write(body)
			if werr != nil {
				return errs.New(pkgName, errs.CodeIOError, "Smudge", "write missing-blob placeholder", werr)
			}
			return nil
		}
		return err
	}
	defer rc.Close()

	if _, err := io.Copy(w, rc); err != nil {
		return errs.New(pkgName, errs.CodeIOError, "Smudge", "copy blob", err)
	}
	return nil
}
