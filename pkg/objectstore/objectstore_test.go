package objectstore

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gitfat-go/gitfat/pkg/placeholder"
)

const digestA = placeholder.Digest("da39a3ee5e6b4b0d3255bfef95601890afd80709")

func newTestStore(t *testing.T) *FileStore {
	t.Helper()
	s, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	return s
}

func stageTemp(t *testing.T, s *FileStore, content string) string {
	t.Helper()
	f, err := os.CreateTemp(s.Dir(), ".gitfat-tmp-*")
	require.NoError(t, err)
	_, err = f.WriteString(content)
	require.NoError(t, err)
	require.NoError(t, f.Close())
	return f.Name()
}

func TestAdmitAndExists(t *testing.T) {
	s := newTestStore(t)

	ok, err := s.Exists(digestA)
	require.NoError(t, err)
	assert.False(t, ok)

	tmp := stageTemp(t, s, "hello world")
	require.NoError(t, s.Admit(tmp, digestA))

	ok, err = s.Exists(digestA)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestAdmitReadOnlyMode(t *testing.T) {
	s := newTestStore(t)
	tmp := stageTemp(t, s, "content")
	require.NoError(t, s.Admit(tmp, digestA))

	info, err := os.Stat(filepath.Join(s.Dir(), string(digestA)))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o444), info.Mode().Perm())
}

func TestAdmitDuplicateDigestKeepsExisting(t *testing.T) {
	s := newTestStore(t)
	tmp1 := stageTemp(t, s, "first")
	require.NoError(t, s.Admit(tmp1, digestA))

	tmp2 := stageTemp(t, s, "second")
	require.NoError(t, s.Admit(tmp2, digestA))

	_, err := os.Stat(tmp2)
	assert.True(t, os.IsNotExist(err), "duplicate temp file should have been discarded")

	rc, err := s.Open(digestA)
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "first", string(data))
}

func TestOpenMissing(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Open(digestA)
	assert.Error(t, err)
}

func TestListSkipsNonObjectFiles(t *testing.T) {
	s := newTestStore(t)
	tmp := stageTemp(t, s, "data")
	require.NoError(t, s.Admit(tmp, digestA))

	stray := filepath.Join(s.Dir(), "not-a-digest")
	require.NoError(t, os.WriteFile(stray, []byte("x"), 0o644))

	digests, err := s.List()
	require.NoError(t, err)
	require.Len(t, digests, 1)
	assert.Equal(t, digestA, digests[0])
}

func TestRemove(t *testing.T) {
	s := newTestStore(t)
	tmp := stageTemp(t, s, "data")
	require.NoError(t, s.Admit(tmp, digestA))

	require.NoError(t, s.Remove(digestA))
	ok, err := s.Exists(digestA)
	require.NoError(t, err)
	assert.False(t, ok)

	// removing an absent digest is not an error
	require.NoError(t, s.Remove(digestA))
}
