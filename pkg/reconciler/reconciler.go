// Package reconciler updates the working tree against the object store:
// finding placeholder files that have a real blob available locally and
// restoring them, per spec.md §4.5's "checkout" operation.
package reconciler

import (
	"context"
	"os"
	"time"

	"github.com/gitfat-go/gitfat/pkg/fatutil/errs"
	"github.com/gitfat-go/gitfat/pkg/objectstore"
	"github.com/gitfat-go/gitfat/pkg/placeholder"
	"github.com/gitfat-go/gitfat/pkg/vcs"
)

const pkgName = "reconciler"

// Orphan is a working-tree file whose content is currently a placeholder
// rather than the real bytes.
type Orphan struct {
	Digest placeholder.Digest
	Path   string
}

// OrphanFiles enumerates every placeholder file in the working tree
// under patterns (or the whole tree if patterns is empty), using `git
// ls-files -z` for the listing and a cheap size check before decoding
// each candidate — a file whose size doesn't match one of magicLengths
// cannot possibly be a placeholder.
func OrphanFiles(ctx context.Context, v vcs.VCS, magicLengths []int, patterns []string) ([]Orphan, error) {
	if len(patterns) == 0 {
		patterns = []string{"."}
	}

	files, err := v.LsFiles(ctx, patterns)
	if err != nil {
		return nil, err
	}

	lens := make(map[int]struct{}, len(magicLengths))
	for _, l := range magicLengths {
		lens[l] = struct{}{}
	}

	var orphans []Orphan
	for _, fname := range files {
		info, err := os.Lstat(fname)
		if err != nil {
			continue // file listed by git but no longer on disk; nothing to reconcile
		}
		if _, candidate := lens[int(info.Size())]; !candidate {
			continue
		}

		body, err := os.ReadFile(fname)
		if err != nil {
			continue
		}
		digest, _, ok, err := placeholder.Decode(body, false)
		if err != nil || !ok {
			continue
		}
		orphans = append(orphans, Orphan{Digest: digest, Path: fname})
	}
	return orphans, nil
}

// Result summarizes what Checkout did.
type Result struct {
	Restored []Orphan
	Missing  []Orphan // placeholders whose blob isn't in the local store
}

// Checkout restores every orphan placeholder in the working tree whose
// blob is present in store, invalidating git's stat cache with the
// mtime+1s trick documented in spec.md §4.5/§9 before re-smudging via
// `checkout-index --force` so the restored file also picks up the
// correct permissions. Missing-blob orphans are always reported in
// Result.Missing whatever showMissing says; Checkout itself logs
// nothing, and displaying them is left to the caller (the checkout
// command prints them, Pull does not).
func Checkout(ctx context.Context, v vcs.VCS, store objectstore.Store, showMissing bool) (Result, error) {
	var result Result

	magicLengths := placeholder.MagicLengths()
	orphans, err := OrphanFiles(ctx, v, magicLengths, nil)
	if err != nil {
		return result, err
	}

	for _, o := range orphans {
		exists, err := store.Exists(o.Digest)
		if err != nil {
			return result, err
		}
		if !exists {
			result.Missing = append(result.Missing, o)
			continue
		}

		if err := bumpMtime(o.Path); err != nil {
			return result, err
		}
		if err := v.CheckoutIndexForce(ctx, o.Path); err != nil {
			return result, err
		}
		result.Restored = append(result.Restored, o)
	}

	if showMissing {
		_ = result.Missing // surfaced to the caller for display; nothing more to do here
	}
	return result, nil
}

// bumpMtime sets fname's mtime one second ahead of its current value,
// preserving atime, so git's stat cache doesn't skip re-smudging a file
// whose content the filter is about to change out from under it.
func bumpMtime(fname string) error {
	info, err := os.Lstat(fname)
	if err != nil {
		return errs.New(pkgName, errs.CodeIOError, "bumpMtime", "stat "+fname, err)
	}

	atime := atimeOf(info)
	mtime := info.ModTime().Add(time.Second)
	if err := os.Chtimes(fname, atime, mtime); err != nil {
		return errs.New(pkgName, errs.CodeIOError, "bumpMtime", "chtimes "+fname, err)
	}
	return nil
}
