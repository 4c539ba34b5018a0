// Package maintenance implements git-fat's repository upkeep operations:
// garbage collection, integrity verification, locating large blobs by
// path (for generating .gitattributes entries), and history rewriting
// support (index-filter), per spec.md §4.7.
package maintenance

import (
	"bufio"
	"context"
	"crypto/sha1"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/gitfat-go/gitfat/pkg/fatutil/errs"
	"github.com/gitfat-go/gitfat/pkg/filter"
	"github.com/gitfat-go/gitfat/pkg/objectstore"
	"github.com/gitfat-go/gitfat/pkg/placeholder"
	"github.com/gitfat-go/gitfat/pkg/scanner"
	"github.com/gitfat-go/gitfat/pkg/vcs"
)

const pkgName = "maintenance"

// RemovedObject is one blob GC deleted because nothing in history
// references it any longer.
type RemovedObject struct {
	Digest placeholder.Digest
	Bytes  int64
}

// CorruptObject is one blob whose stored content doesn't hash back to
// its own filename.
type CorruptObject struct {
	Digest   placeholder.Digest
	DataHash placeholder.Digest
}

// Report carries the result of whichever maintenance operation produced
// it: GC populates Removed, Verify populates Corrupted.
type Report struct {
	Removed   []RemovedObject
	Corrupted []CorruptObject
}

// GC deletes every blob in store that nothing in the reachable history
// graph references any longer.
func GC(ctx context.Context, v vcs.VCS, store objectstore.Store) (Report, error) {
	referenced, err := scanner.ReferencedObjects(ctx, v, placeholder.MagicLengths(), scanner.Options{Rev: "HEAD"})
	if err != nil {
		return Report{}, err
	}

	catalog, err := store.List()
	if err != nil {
		return Report{}, err
	}

	var report Report
	for _, d := range catalog {
		if _, keep := referenced[d]; keep {
			continue
		}
		size, err := objectSize(store, d)
		if err != nil {
			return report, err
		}
		if err := store.Remove(d); err != nil {
			return report, err
		}
		report.Removed = append(report.Removed, RemovedObject{Digest: d, Bytes: size})
	}
	return report, nil
}

// Verify recomputes every stored blob's SHA-1 and reports any whose
// content no longer matches its filename.
func Verify(store objectstore.Store) (Report, error) {
	catalog, err := store.List()
	if err != nil {
		return Report{}, err
	}

	var report Report
	for _, d := range catalog {
		rc, err := store.Open(d)
		if err != nil {
			return report, err
		}
		h := sha1.New()
		_, copyErr := io.Copy(h, rc)
		rc.Close()
		if copyErr != nil {
			return report, errs.New(pkgName, errs.CodeIOError, "Verify", fmt.Sprintf("hash %s", d), copyErr)
		}

		dataHash := placeholder.Digest(fmt.Sprintf("%x", h.Sum(nil)))
		if dataHash != d {
			report.Corrupted = append(report.Corrupted, CorruptObject{Digest: d, DataHash: dataHash})
		}
	}
	return report, nil
}

// PathSizes is one tracked path whose blob(s) across history exceeded
// the Find threshold, ready to render as a `.gitattributes` candidate
// line.
type PathSizes struct {
	Path    string
	MaxSize int64
	Count   int
}

// Find walks every commit's diff-tree to locate paths that have ever
// held a blob larger than threshold bytes, grouping by path exactly as
// the original's cmd_find/gen_large_blobs pair does — gen_large_blobs
// first narrows the object graph to candidate blob sizes via `cat-file
// --batch-check`, then diff-tree correlates each candidate back to the
// path(s) it was committed under.
func Find(ctx context.Context, v vcs.VCS, threshold int64) ([]PathSizes, error) {
	blobSizes, err := largeBlobs(ctx, v, threshold)
	if err != nil {
		return nil, err
	}
	if len(blobSizes) == 0 {
		return nil, nil
	}

	commits, commitsWait, err := v.RevListCommits(ctx)
	if err != nil {
		return nil, err
	}
	difftree, difftreeWait, err := v.DiffTreeStdin(ctx, commits)
	if err != nil {
		return nil, err
	}

	perPath := make(map[string]map[int64]struct{})
	if err := readDiffTreeZ(difftree, func(newBlob, path string) {
		size, ok := blobSizes[newBlob]
		if !ok {
			return
		}
		if perPath[path] == nil {
			perPath[path] = make(map[int64]struct{})
		}
		perPath[path][size] = struct{}{}
	}); err != nil {
		return nil, err
	}

	if err := commitsWait(); err != nil {
		return nil, err
	}
	if err := difftreeWait(); err != nil {
		return nil, err
	}

	results := make([]PathSizes, 0, len(perPath))
	for path, sizes := range perPath {
		var max int64
		for s := range sizes {
			if s > max {
				max = s
			}
		}
		results = append(results, PathSizes{Path: path, MaxSize: max, Count: len(sizes)})
	}
	sort.Slice(results, func(i, j int) bool { return results[i].MaxSize > results[j].MaxSize })
	return results, nil
}

// largeBlobs narrows the whole object graph down to blobs larger than
// threshold, returning a map from blob hash to size. The rev-list →
// cut-to-hash → cat-file --batch-check pipeline mirrors the first two
// stages of pkg/scanner's ReferencedObjects pipeline, run here under its
// own errgroup since Find's third stage (diff-tree correlation) isn't
// part of the same pipe chain.
func largeBlobs(ctx context.Context, v vcs.VCS, threshold int64) (map[string]int64, error) {
	g, gctx := errgroup.WithContext(ctx)

	revListOut, revListWait, err := v.RevList(gctx, "", true)
	if err != nil {
		return nil, err
	}
	batchCheckIn, batchCheckOut, batchCheckWait, err := v.CatFileBatchCheck(gctx)
	if err != nil {
		return nil, err
	}

	g.Go(func() error { return cutToHash(revListOut, batchCheckIn) })
	g.Go(func() error { return revListWait() })
	g.Go(func() error { return batchCheckWait() })

	sizes := make(map[string]int64)
	sc := bufio.NewScanner(batchCheckOut)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) != 3 || fields[1] != "blob" {
			continue
		}
		size, err := strconv.ParseInt(fields[2], 10, 64)
		if err != nil || size <= threshold {
			continue
		}
		sizes[fields[0]] = size
	}
	if err := sc.Err(); err != nil {
		return nil, errs.New(pkgName, errs.CodeIOError, "largeBlobs", "read batch-check output", err)
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return sizes, nil
}

// cutToHash reads `rev-list` lines (each "<hash>" or "<hash> <path>")
// and writes just the hash, newline-terminated, to out.
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

// readDiffTreeZ parses `diff-tree --stdin -z` raw output: repeated
// NUL-terminated records of the form ":oldmode newmode oldsha newsha
// status\0path\0", invoking fn(newBlobHash, path) for each.
func readDiffTreeZ(r io.Reader, fn func(newBlob, path string)) error {
	sc := bufio.NewScanner(r)
	sc.Split(splitNUL)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)

	for sc.Scan() {
		meta := sc.Text()
		if meta == "" || meta[0] != ':' {
			continue // a commit boundary or empty record, not a change entry
		}
		fields := strings.Fields(meta)
		if len(fields) < 5 {
			continue
		}
		newBlob := fields[3]

		if !sc.Scan() {
			break
		}
		path := sc.Text()
		fn(newBlob, path)
	}
	return sc.Err()
}

func splitNUL(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := indexByte(data, 0); i >= 0 {
		return i + 1, data[:i], nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}

func indexByte(b []byte, c byte) int {
	for i, x := range b {
		if x == c {
			return i
		}
	}
	return -1
}

// IndexFilter rewrites every blob named in the file at listFile (one
// path per line) through the clean filter, so a history rewrite (e.g.
// `git filter-branch` / `git filter-repo`) can swap large blobs for
// placeholders retroactively. Already-filtered blobs are memoized under
// `<git-dir>/fat/index-filter/<oldhash>` so re-running the rewrite over
// the same history doesn't redo the work.
func IndexFilter(ctx context.Context, v vcs.VCS, store objectstore.Store, codec placeholder.Codec, listFile string, manageAttributes bool) error {
	filelist, err := readListFile(listFile)
	if err != nil {
		return err
	}

	gitDir, err := v.GitDir()
	if err != nil {
		return err
	}

	lsOut, lsWait, err := v.LsFilesStage(ctx)
	if err != nil {
		return err
	}
	defer lsOut.Close()

	indexInfoIn, indexInfoWait, err := v.UpdateIndexInfo(ctx)
	if err != nil {
		return err
	}

	memoDir := filepath.Join(gitDir, "fat", "index-filter")
	if err := os.MkdirAll(memoDir, 0o755); err != nil {
		return errs.New(pkgName, errs.CodeIOError, "IndexFilter", "create memo directory", err)
	}

	sc := bufio.NewScanner(lsOut)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for sc.Scan() {
		mode, blobHash, stage, filename, ok := parseLsFilesStage(sc.Text())
		if !ok {
			continue
		}
		if _, want := filelist[filename]; !want {
			continue
		}
		if mode == "120000" {
			continue // symlinks are never fat-filtered
		}

		newHash, err := filterOneBlob(ctx, v, store, codec, memoDir, blobHash)
		if err != nil {
			indexInfoIn.Close()
			return err
		}

		line := fmt.Sprintf("%s %s %s\t%s\n", mode, newHash, stage, filename)
		if _, err := io.WriteString(indexInfoIn, line); err != nil {
			indexInfoIn.Close()
			return errs.New(pkgName, errs.CodeIOError, "IndexFilter", "write update-index line", err)
		}
	}
	if err := sc.Err(); err != nil {
		indexInfoIn.Close()
		return errs.New(pkgName, errs.CodeIOError, "IndexFilter", "read ls-files -s", err)
	}

	if manageAttributes {
		if err := writeGitattributes(ctx, v, filelist, indexInfoIn); err != nil {
			indexInfoIn.Close()
			return err
		}
	}

	if err := indexInfoIn.Close(); err != nil {
		return errs.New(pkgName, errs.CodeIOError, "IndexFilter", "close update-index stdin", err)
	}
	if err := lsWait(); err != nil {
		return err
	}
	if err := indexInfoWait(); err != nil {
		return err
	}

	return nil
}

// writeGitattributes appends "<path> filter=fat -text" lines for every
// path in filelist to .gitattributes' current blob (or starts a fresh
// one at mode 100644 if .gitattributes isn't tracked yet), writes the
// result into git's object store, and emits its update-index line —
// mirroring the original's cmd_index_filter --manage-gitattributes branch.
func writeGitattributes(ctx context.Context, v vcs.VCS, filelist map[string]struct{}, out io.Writer) error {
	mode, stage := "100644", "0"
	var existing []string

	line, ok, err := v.LsFilesStageOne(ctx, ".gitattributes")
	if err != nil {
		return err
	}
	if ok {
		m, hash, s, _, parseOK := parseLsFilesStage(line)
		if !parseOK {
			return errs.New(pkgName, errs.CodeIOError, "writeGitattributes", "parse ls-files -s .gitattributes line", nil)
		}
		mode, stage = m, s

		blobReader, blobWait, err := v.CatFileBlob(ctx, hash)
		if err != nil {
			return err
		}
		content, readErr := io.ReadAll(blobReader)
		blobReader.Close()
		if readErr != nil {
			return errs.New(pkgName, errs.CodeIOError, "writeGitattributes", "read .gitattributes blob", readErr)
		}
		if err := blobWait(); err != nil {
			return err
		}
		if trimmed := strings.TrimRight(string(content), "\n"); trimmed != "" {
			existing = strings.Split(trimmed, "\n")
		}
	}

	paths := make([]string, 0, len(filelist))
	for p := range filelist {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	lines := append([]string{}, existing...)
	for _, p := range paths {
		name := p
		if fields := strings.Fields(p); len(fields) > 0 {
			name = fields[0]
		}
		lines = append(lines, name+" filter=fat -text")
	}

	newHash, err := v.HashObjectStdin(ctx, strings.NewReader(strings.Join(lines, "\n")+"\n"))
	if err != nil {
		return err
	}

	if _, err := fmt.Fprintf(out, "%s %s %s\t.gitattributes\n", mode, newHash, stage); err != nil {
		return errs.New(pkgName, errs.CodeIOError, "writeGitattributes", "write update-index line", err)
	}
	return nil
}

func readListFile(path string) (map[string]struct{}, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errs.New(pkgName, errs.CodeIOError, "readListFile", "open "+path, err)
	}
	defer f.Close()

	set := make(map[string]struct{})
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		set[line] = struct{}{}
	}
	if err := sc.Err(); err != nil {
		return nil, errs.New(pkgName, errs.CodeIOError, "readListFile", "scan "+path, err)
	}
	return set, nil
}

// parseLsFilesStage parses one `git ls-files -s` line: "<mode> <hash>
// <stage>\t<filename>".
func parseLsFilesStage(line string) (mode, hash, stage, filename string, ok bool) {
	tabIdx := strings.IndexByte(line, '\t')
	if tabIdx < 0 {
		return "", "", "", "", false
	}
	fields := strings.Fields(line[:tabIdx])
	if len(fields) != 3 {
		return "", "", "", "", false
	}
	return fields[0], fields[1], fields[2], line[tabIdx+1:], true
}

// filterOneBlob runs the clean filter over git's stored copy of
// blobHash, memoizing the result so subsequent calls for the same
// original hash are instant.
func filterOneBlob(ctx context.Context, v vcs.VCS, store objectstore.Store, codec placeholder.Codec, memoDir, blobHash string) (string, error) {
	memoPath := filepath.Join(memoDir, blobHash)
	if cached, err := os.ReadFile(memoPath); err == nil {
		return strings.TrimSpace(string(cached)), nil
	}

	blobReader, blobWait, err := v.CatFileBlob(ctx, blobHash)
	if err != nil {
		return "", err
	}

	pr, pw := io.Pipe()
	filterErr := make(chan error, 1)
	go func() {
		defer pw.Close()
		defer blobReader.Close()
		filterErr <- filter.Clean(blobReader, pw, store, codec)
	}()

	newHash, err := v.HashObjectStdin(ctx, pr)
	if err != nil {
		return "", err
	}
	if err := <-filterErr; err != nil {
		return "", err
	}
	if err := blobWait(); err != nil {
		return "", err
	}

	if err := os.WriteFile(memoPath, []byte(newHash+"\n"), 0o644); err != nil {
		return "", errs.New(pkgName, errs.CodeIOError, "filterOneBlob", "write memo", err)
	}
	return newHash, nil
}

func objectSize(store objectstore.Store, d placeholder.Digest) (int64, error) {
	rc, err := store.Open(d)
	if err != nil {
		return 0, err
	}
	defer rc.Close()
	n, err := io.Copy(io.Discard, rc)
	if err != nil {
		return 0, errs.New(pkgName, errs.CodeIOError, "objectSize", fmt.Sprintf("size %s", d), err)
	}
	return n, nil
}
