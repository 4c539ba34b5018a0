package reconciler

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gitfat-go/gitfat/pkg/objectstore"
	"github.com/gitfat-go/gitfat/pkg/placeholder"
	"github.com/gitfat-go/gitfat/pkg/vcs/vcstest"
)

func writeFile(t *testing.T, dir, name string, content []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, content, 0o644))
	return path
}

func TestOrphanFilesFindsPlaceholders(t *testing.T) {
	dir := t.TempDir()
	codec := placeholder.NewCodec(placeholder.V2)
	digest := placeholder.Digest("da39a3ee5e6b4b0d3255bfef95601890afd80709")
	ph := codec.Encode(digest, 123)

	orig, err := os.Getwd()
	require.NoError(t, err)
	defer os.Chdir(orig)
	require.NoError(t, os.Chdir(dir))

	writeFile(t, dir, "big.bin", ph)
	writeFile(t, dir, "normal.txt", []byte("just text"))

	fake := vcstest.New()
	fake.Files = []string{"big.bin", "normal.txt"}

	orphans, err := OrphanFiles(context.Background(), fake, placeholder.MagicLengths(), nil)
	require.NoError(t, err)
	require.Len(t, orphans, 1)
	assert.Equal(t, "big.bin", orphans[0].Path)
	assert.Equal(t, digest, orphans[0].Digest)
}

func TestCheckoutRestoresAvailableBlob(t *testing.T) {
	dir := t.TempDir()
	orig, err := os.Getwd()
	require.NoError(t, err)
	defer os.Chdir(orig)
	require.NoError(t, os.Chdir(dir))

	store, err := objectstore.NewFileStore(filepath.Join(dir, "objects"))
	require.NoError(t, err)

	content := []byte("the real bytes")
	tmp, err := os.CreateTemp(store.Dir(), ".tmp-*")
	require.NoError(t, err)
	_, err = tmp.Write(content)
	require.NoError(t, err)
	require.NoError(t, tmp.Close())

	digest := placeholder.Digest("aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	require.NoError(t, store.Admit(tmp.Name(), digest))

	codec := placeholder.NewCodec(placeholder.V2)
	writeFile(t, dir, "big.bin", codec.Encode(digest, int64(len(content))))

	fake := vcstest.New()
	fake.Files = []string{"big.bin"}

	result, err := Checkout(context.Background(), fake, store, true)
	require.NoError(t, err)
	require.Len(t, result.Restored, 1)
	assert.Empty(t, result.Missing)
	assert.Equal(t, []string{"big.bin"}, fake.Checkouts)
}

func TestCheckoutReportsMissingBlob(t *testing.T) {
	dir := t.TempDir()
	orig, err := os.Getwd()
	require.NoError(t, err)
	defer os.Chdir(orig)
	require.NoError(t, os.Chdir(dir))

	store, err := objectstore.NewFileStore(filepath.Join(dir, "objects"))
	require.NoError(t, err)

	digest := placeholder.Digest("bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")
	codec := placeholder.NewCodec(placeholder.V2)
	writeFile(t, dir, "big.bin", codec.Encode(digest, 42))

	fake := vcstest.New()
	fake.Files = []string{"big.bin"}

	result, err := Checkout(context.Background(), fake, store, true)
	require.NoError(t, err)
	assert.Empty(t, result.Restored)
	require.Len(t, result.Missing, 1)
	assert.Equal(t, digest, result.Missing[0].Digest)
}
