// Package vcstest provides an in-memory fake of pkg/vcs.VCS so the
// scanner, reconciler, maintenance, and syncdriver packages can be tested
// without shelling a real git binary, mirroring how the teacher fakes its
// own ObjectStore and filesystem state in pkg/index and pkg/workdir/internal.
package vcstest

import (
	"bufio"
	"bytes"
	"context"
	"crypto/sha1"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/gitfat-go/gitfat/pkg/fatutil/errs"
)

// Object is one entry in the fake object database.
type Object struct {
	Type    string // "blob", "commit", "tree"
	Size    int64
	Content []byte
}

// Fake implements vcs.VCS entirely in memory.
type Fake struct {
	mu sync.Mutex

	Objects    map[string]Object
	RevListOut []string // lines rev-list would emit, e.g. "<hash>" or "<hash> <path>"
	Config     map[string]string
	ConfigFile map[string]map[string]string
	Files      []string
	DiffTree   [][]byte // NUL-delimited records diff-tree --stdin -z would emit
	Clean      bool

	Checkouts []string // paths passed to CheckoutIndexForce, recorded for assertions
	IndexInfo bytes.Buffer

	LsFilesStageOut   []string // raw "<mode> <hash> <stage>\t<name>" lines
	RevListCommitsOut []string
	GitDirOut         string // overrides GitDir's default "/fake/.git" when set
}

// New returns an empty Fake ready for population by a test.
func New() *Fake {
	return &Fake{
		Objects:    map[string]Object{},
		Config:     map[string]string{},
		ConfigFile: map[string]map[string]string{},
		Clean:      true,
	}
}

// PutBlob registers content under its SHA-1 digest and returns the digest.
func (f *Fake) PutBlob(content []byte) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	sum := fmt.Sprintf("%x", sha1.Sum(content))
	f.Objects[sum] = Object{Type: "blob", Size: int64(len(content)), Content: content}
	return sum
}

func (f *Fake) ConfigGet(key string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.Config[key]
	return v, ok, nil
}

func (f *Fake) ConfigGetFile(file, key string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.ConfigFile[file]
	if !ok {
		return "", false, nil
	}
	v, ok := m[key]
	return v, ok, nil
}

func (f *Fake) ConfigSet(key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Config[key] = value
	return nil
}

func (f *Fake) RevParse(rev string) (string, error) { return rev, nil }

func (f *Fake) GitDir() (string, error) {
	if f.GitDirOut != "" {
		return f.GitDirOut, nil
	}
	return "/fake/.git", nil
}

func (f *Fake) Toplevel() (string, error) { return "/fake", nil }

func (f *Fake) LsFiles(_ context.Context, patterns []string) ([]string, error) {
	return f.Files, nil
}

func (f *Fake) LsFilesStage(_ context.Context) (io.ReadCloser, func() error, error) {
	out := strings.Join(f.LsFilesStageOut, "\n")
	if out != "" {
		out += "\n"
	}
	return io.NopCloser(strings.NewReader(out)), func() error { return nil }, nil
}

func (f *Fake) LsFilesStageOne(_ context.Context, path string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, l := range f.LsFilesStageOut {
		tabIdx := strings.IndexByte(l, '\t')
		if tabIdx < 0 {
			continue
		}
		if l[tabIdx+1:] == path {
			return l, true, nil
		}
	}
	return "", false, nil
}

func (f *Fake) RevListCommits(_ context.Context) (io.ReadCloser, func() error, error) {
	out := strings.Join(f.RevListCommitsOut, "\n")
	if out != "" {
		out += "\n"
	}
	return io.NopCloser(strings.NewReader(out)), func() error { return nil }, nil
}

func (f *Fake) revListLines() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return strings.Join(f.RevListOut, "\n") + "\n"
}

func (f *Fake) RevList(_ context.Context, rev string, all bool) (io.ReadCloser, func() error, error) {
	return io.NopCloser(strings.NewReader(f.revListLines())), func() error { return nil }, nil
}

func (f *Fake) CatFileBatchCheck(_ context.Context) (io.WriteCloser, io.ReadCloser, func() error, error) {
	inR, inW := io.Pipe()
	outR, outW := io.Pipe()

	go func() {
		sc := bufio.NewScanner(inR)
		for sc.Scan() {
			hash := strings.TrimSpace(sc.Text())
			if hash == "" {
				continue
			}
			f.mu.Lock()
			obj, ok := f.Objects[hash]
			f.mu.Unlock()
			if !ok {
				fmt.Fprintf(outW, "%s missing\n", hash)
				continue
			}
			fmt.Fprintf(outW, "%s %s %d\n", hash, obj.Type, obj.Size)
		}
		outW.Close()
	}()

	return inW, outR, func() error { return nil }, nil
}

func (f *Fake) CatFileBatch(_ context.Context) (io.WriteCloser, io.ReadCloser, func() error, error) {
	inR, inW := io.Pipe()
	outR, outW := io.Pipe()

	go func() {
		sc := bufio.NewScanner(inR)
		for sc.Scan() {
			hash := strings.TrimSpace(sc.Text())
			if hash == "" {
				continue
			}
			f.mu.Lock()
			obj, ok := f.Objects[hash]
			f.mu.Unlock()
			if !ok {
				fmt.Fprintf(outW, "%s missing\n", hash)
				continue
			}
			fmt.Fprintf(outW, "%s %s %d\n", hash, obj.Type, obj.Size)
			outW.Write(obj.Content)
			outW.Write([]byte("\n"))
		}
		outW.Close()
	}()

	return inW, outR, func() error { return nil }, nil
}

func (f *Fake) DiffTreeStdin(_ context.Context, revListStdout io.Reader) (io.ReadCloser, func() error, error) {
	go io.Copy(io.Discard, revListStdout)

	f.mu.Lock()
	records := make([][]byte, len(f.DiffTree))
	copy(records, f.DiffTree)
	f.mu.Unlock()

	var buf bytes.Buffer
	for _, r := range records {
		buf.Write(r)
		buf.WriteByte(0)
	}
	return io.NopCloser(bytes.NewReader(buf.Bytes())), func() error { return nil }, nil
}

func (f *Fake) UpdateIndexInfo(_ context.Context) (io.WriteCloser, func() error, error) {
	pr, pw := io.Pipe()
	done := make(chan struct{})
	go func() {
		io.Copy(&f.IndexInfo, pr)
		close(done)
	}()
	return pw, func() error { <-done; return nil }, nil
}

func (f *Fake) CheckoutIndexForce(_ context.Context, path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Checkouts = append(f.Checkouts, path)
	return nil
}

func (f *Fake) HashObjectStdin(_ context.Context, r io.Reader) (string, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return "", errs.New("vcstest", errs.CodeIOError, "HashObjectStdin", "read", err)
	}
	return f.PutBlob(content), nil
}

func (f *Fake) CatFileBlob(_ context.Context, hash string) (io.ReadCloser, func() error, error) {
	f.mu.Lock()
	obj, ok := f.Objects[hash]
	f.mu.Unlock()
	if !ok {
		return nil, nil, errs.New("vcstest", errs.CodeMissingBlob, "CatFileBlob", hash, nil)
	}
	return io.NopCloser(bytes.NewReader(obj.Content)), func() error { return nil }, nil
}

func (f *Fake) IsClean(_ context.Context) (bool, error) {
	return f.Clean, nil
}
