// Package scanner implements git-fat's object-graph scan: walking every
// blob reachable from a revision (or the whole ref graph) to find the
// ones that are git-fat placeholders, and collecting the digests they
// reference.
//
// The pipeline is four concurrent stages connected by real git
// subprocesses' pipes, translated from the original's raw
// threading.Thread pump into the same errgroup-governed goroutine shape
// the teacher already uses for its own concurrent config/workdir loads
// (pkg/config/manager.go, pkg/workdir/manager.go):
//
//	rev-list --objects  →  cut to hash  →  cat-file --batch-check
//	  →  filter to blob-sized-like-a-placeholder  →  cat-file --batch
//	  →  decode payload, collect digest
//
// Only the candidate-filtering stage (by object size) is new relative to
// the subprocess-piping idiom borrowed from other_examples' git-copy
// audit tool (listReachableBlobs/scanReachableBlobsForStrings) — the
// header+payload+trailing-LF framing of `cat-file --batch` output is
// identical to that tool's.
package scanner

import (
	"bufio"
	"context"
	"io"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/gitfat-go/gitfat/pkg/fatutil/errs"
	"github.com/gitfat-go/gitfat/pkg/placeholder"
	"github.com/gitfat-go/gitfat/pkg/vcs"
)

const pkgName = "scanner"

// Options controls which part of the history graph ReferencedObjects
// walks.
type Options struct {
	// Rev is the revision to walk (ignored if All is set).
	Rev string
	// All walks every ref, matching `rev-list --objects --all`.
	All bool
}

// ReferencedObjects returns every digest referenced by a placeholder
// reachable from opts' revision scope. lens is the set of magic lengths
// (placeholder.MagicLengths()) used to cheaply pre-filter blob candidates
// by size before reading their content.
func ReferencedObjects(ctx context.Context, v vcs.VCS, lens []int, opts Options) (map[placeholder.Digest]struct{}, error) {
	sizeSet := make(map[int]struct{}, len(lens))
	for _, l := range lens {
		sizeSet[l] = struct{}{}
	}

	g, gctx := errgroup.WithContext(ctx)

	revListOut, revListWait, err := v.RevList(gctx, opts.Rev, opts.All)
	if err != nil {
		return nil, err
	}

	batchCheckIn, batchCheckOut, batchCheckWait, err := v.CatFileBatchCheck(gctx)
	if err != nil {
		return nil, err
	}

	batchIn, batchOut, batchWait, err := v.CatFileBatch(gctx)
	if err != nil {
		return nil, err
	}

	g.Go(func() error { return cutToHash(revListOut, batchCheckIn) })
	g.Go(func() error { return revListWait() })
	g.Go(func() error { return filterCandidates(batchCheckOut, batchIn, sizeSet) })
	g.Go(func() error { return batchCheckWait() })

	referenced := make(map[placeholder.Digest]struct{})
	g.Go(func() error { return collectReferenced(batchOut, referenced) })
	g.Go(func() error { return batchWait() })

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return referenced, nil
}

// cutToHash reads `rev-list --objects` lines (each "<hash>" or "<hash>
// <path>") and writes just the hash, newline-terminated, to out.
func cutToHash(in io.ReadCloser, out io.WriteCloser) error {
	defer in.Close()
	defer out.Close()

	sc := bufio.NewScanner(in)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for sc.Scan() {
		line := sc.Text()
		if line == "" {
			continue
		}
		hash := strings.SplitN(line, " ", 2)[0]
		if _, err := io.WriteString(out, hash+"\n"); err != nil {
			return errs.New(pkgName, errs.CodeIOError, "cutToHash", "write batch-check stdin", err)
		}
	}
	return sc.Err()
}

// filterCandidates reads `cat-file --batch-check` lines ("<hash> <type>
// <size>" or "<hash> missing") and forwards only the hashes of blobs
// whose size matches a known placeholder magic length.
func filterCandidates(in io.ReadCloser, out io.WriteCloser, sizeSet map[int]struct{}) error {
	defer in.Close()
	defer out.Close()

	sc := bufio.NewScanner(in)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) != 3 {
			continue // "<hash> missing" or malformed — not a candidate
		}
		hash, objType, sizeStr := fields[0], fields[1], fields[2]
		if objType != "blob" {
			continue
		}
		size, err := strconv.Atoi(sizeStr)
		if err != nil {
			continue
		}
		if _, ok := sizeSet[size]; !ok {
			continue
		}
		if _, err := io.WriteString(out, hash+"\n"); err != nil {
			return errs.New(pkgName, errs.CodeIOError, "filterCandidates", "write batch stdin", err)
		}
	}
	return sc.Err()
}

// collectReferenced reads `cat-file --batch` records (a "<hash> <type>
// <size>" header line, the object's exact payload, then a trailing LF)
// and decodes each payload as a placeholder, recording the digest it
// references.
func collectReferenced(in io.ReadCloser, referenced map[placeholder.Digest]struct{}) error {
	defer in.Close()
	br := bufio.NewReader(in)

	for {
		header, err := br.ReadString('\n')
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return errs.New(pkgName, errs.CodeIOError, "collectReferenced", "read batch header", err)
		}
		fields := strings.Fields(header)
		if len(fields) != 3 {
			continue // defensive: malformed/missing header line
		}
		size, err := strconv.Atoi(fields[2])
		if err != nil {
			continue
		}

		payload := make([]byte, size)
		if _, err := io.ReadFull(br, payload); err != nil {
			// A short read here means the stream ended mid-record (e.g. the
			// subprocess was killed or stdout closed early). Matching the
			// original, this ends the scan silently rather than failing it.
			return nil
		}
		if _, err := br.Discard(1); err != nil {
			return nil
		}

		digest, _, ok, decErr := placeholder.Decode(payload, false)
		if decErr != nil || !ok {
			continue
		}
		referenced[digest] = struct{}{}
	}
}
