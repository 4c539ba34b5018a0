package maintenance

import (
	"context"
	"crypto/sha1"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gitfat-go/gitfat/pkg/objectstore"
	"github.com/gitfat-go/gitfat/pkg/placeholder"
	"github.com/gitfat-go/gitfat/pkg/vcs/vcstest"
)

func tempStore(t *testing.T) *objectstore.FileStore {
	t.Helper()
	store, err := objectstore.NewFileStore(filepath.Join(t.TempDir(), "objects"))
	require.NoError(t, err)
	return store
}

func admit(t *testing.T, store *objectstore.FileStore, content []byte) placeholder.Digest {
	t.Helper()
	tmp, err := os.CreateTemp(store.Dir(), ".tmp-*")
	require.NoError(t, err)
	_, err = tmp.Write(content)
	require.NoError(t, err)
	require.NoError(t, tmp.Close())

	digest := placeholder.Digest(fmt.Sprintf("%x", sha1.Sum(content)))
	require.NoError(t, store.Admit(tmp.Name(), digest))
	return digest
}

func TestGCRemovesUnreferencedObjects(t *testing.T) {
	store := tempStore(t)
	codec := placeholder.NewCodec(placeholder.V2)
	fake := vcstest.New()

	kept := admit(t, store, []byte("kept content"))
	orphan := admit(t, store, []byte("orphan content, longer"))

	blobHash := fake.PutBlob(codec.Encode(kept, 12))
	fake.RevListOut = []string{blobHash + " path/kept.bin"}

	report, err := GC(context.Background(), fake, store)
	require.NoError(t, err)
	require.Len(t, report.Removed, 1)
	assert.Equal(t, orphan, report.Removed[0].Digest)

	stillThere, err := store.Exists(kept)
	require.NoError(t, err)
	assert.True(t, stillThere)

	gone, err := store.Exists(orphan)
	require.NoError(t, err)
	assert.False(t, gone)
}

func TestGCKeepsEverythingWhenAllReferenced(t *testing.T) {
	store := tempStore(t)
	codec := placeholder.NewCodec(placeholder.V2)
	fake := vcstest.New()

	d := admit(t, store, []byte("referenced"))
	blobHash := fake.PutBlob(codec.Encode(d, 10))
	fake.RevListOut = []string{blobHash + " f.bin"}

	report, err := GC(context.Background(), fake, store)
	require.NoError(t, err)
	assert.Empty(t, report.Removed)
}

func TestVerifyReportsCorruption(t *testing.T) {
	store := tempStore(t)

	good := admit(t, store, []byte("good"))

	badDigest := placeholder.Digest("abadabadabadabadabadabadabadabadabadabad")
	tmp, err := os.CreateTemp(store.Dir(), ".tmp-*")
	require.NoError(t, err)
	_, err = tmp.Write([]byte("tampered bytes"))
	require.NoError(t, err)
	require.NoError(t, tmp.Close())
	require.NoError(t, store.Admit(tmp.Name(), badDigest))

	report, err := Verify(store)
	require.NoError(t, err)
	require.Len(t, report.Corrupted, 1)
	assert.Equal(t, badDigest, report.Corrupted[0].Digest)

	// sanity: the untouched object never appears as corrupt
	for _, c := range report.Corrupted {
		assert.NotEqual(t, good, c.Digest)
	}
}

func TestFindGroupsBySizeAndPath(t *testing.T) {
	fake := vcstest.New()

	big := make([]byte, 200)
	small := make([]byte, 10)
	bigHash := fake.PutBlob(big)
	smallHash := fake.PutBlob(small)

	fake.RevListOut = []string{bigHash + " large.bin", smallHash + " small.txt"}
	fake.RevListCommitsOut = []string{"c1"}
	fake.DiffTree = [][]byte{
		[]byte(fmt.Sprintf(":100644 100644 0000000000000000000000000000000000000000 %s M\x00large.bin", bigHash)),
		[]byte(fmt.Sprintf(":100644 100644 0000000000000000000000000000000000000000 %s M\x00small.txt", smallHash)),
	}

	results, err := Find(context.Background(), fake, 100)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "large.bin", results[0].Path)
	assert.Equal(t, int64(200), results[0].MaxSize)
}

func TestFindReturnsNilWhenNothingExceedsThreshold(t *testing.T) {
	fake := vcstest.New()
	hash := fake.PutBlob([]byte("small"))
	fake.RevListOut = []string{hash + " f.txt"}

	results, err := Find(context.Background(), fake, 1<<20)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestIndexFilterRewritesListedBlobs(t *testing.T) {
	store := tempStore(t)
	codec := placeholder.NewCodec(placeholder.V2)
	fake := vcstest.New()
	fake.GitDirOut = t.TempDir()

	content := []byte("a large tracked blob")
	oldHash := fake.PutBlob(content)
	fake.LsFilesStageOut = []string{
		fmt.Sprintf("100644 %s 0\tbig.bin", oldHash),
		"100644 aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa 0\tuntouched.txt",
	}

	listFile := filepath.Join(t.TempDir(), "filelist")
	require.NoError(t, os.WriteFile(listFile, []byte("big.bin\n"), 0o644))

	err := IndexFilter(context.Background(), fake, store, codec, listFile, false)
	require.NoError(t, err)

	assert.Contains(t, fake.IndexInfo.String(), "big.bin")
	assert.NotContains(t, fake.IndexInfo.String(), "untouched.txt")

	digests, err := store.List()
	require.NoError(t, err)
	assert.Len(t, digests, 1)
}

func TestIndexFilterManagesGitattributesWhenAbsent(t *testing.T) {
	store := tempStore(t)
	codec := placeholder.NewCodec(placeholder.V2)
	fake := vcstest.New()
	fake.GitDirOut = t.TempDir()

	content := []byte("a large tracked blob")
	oldHash := fake.PutBlob(content)
	fake.LsFilesStageOut = []string{
		fmt.Sprintf("100644 %s 0\tbig.bin", oldHash),
	}

	listFile := filepath.Join(t.TempDir(), "filelist")
	require.NoError(t, os.WriteFile(listFile, []byte("big.bin\n"), 0o644))

	err := IndexFilter(context.Background(), fake, store, codec, listFile, true)
	require.NoError(t, err)

	assert.Contains(t, fake.IndexInfo.String(), "\t.gitattributes\n")

	var attrHash string
	for line := range strings.SplitSeq(fake.IndexInfo.String(), "\n") {
		if strings.HasSuffix(line, "\t.gitattributes") {
			fields := strings.Fields(line)
			attrHash = fields[1]
		}
	}
	require.NotEmpty(t, attrHash)
	assert.Equal(t, "big.bin filter=fat -text\n", string(fake.Objects[attrHash].Content))
}

func TestIndexFilterManagesGitattributesWhenAlreadyTracked(t *testing.T) {
	store := tempStore(t)
	codec := placeholder.NewCodec(placeholder.V2)
	fake := vcstest.New()
	fake.GitDirOut = t.TempDir()

	existingHash := fake.PutBlob([]byte("existing.txt filter=fat -text\n"))
	fake.LsFilesStageOut = []string{
		fmt.Sprintf("100644 %s 0\t.gitattributes", existingHash),
	}

	content := []byte("a large tracked blob")
	oldHash := fake.PutBlob(content)
	fake.LsFilesStageOut = append(fake.LsFilesStageOut, fmt.Sprintf("100644 %s 0\tbig.bin", oldHash))

	listFile := filepath.Join(t.TempDir(), "filelist")
	require.NoError(t, os.WriteFile(listFile, []byte("big.bin\n"), 0o644))

	err := IndexFilter(context.Background(), fake, store, codec, listFile, true)
	require.NoError(t, err)

	var attrHash string
	for line := range strings.SplitSeq(fake.IndexInfo.String(), "\n") {
		if strings.HasSuffix(line, "\t.gitattributes") {
			fields := strings.Fields(line)
			attrHash = fields[1]
		}
	}
	require.NotEmpty(t, attrHash)
	written := string(fake.Objects[attrHash].Content)
	assert.Contains(t, written, "existing.txt filter=fat -text")
	assert.Contains(t, written, "big.bin filter=fat -text")
}
