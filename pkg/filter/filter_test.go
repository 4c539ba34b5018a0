package filter

import (
	"bytes"
	"crypto/sha1"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gitfat-go/gitfat/pkg/objectstore"
	"github.com/gitfat-go/gitfat/pkg/placeholder"
)

func newStore(t *testing.T) objectstore.Store {
	t.Helper()
	s, err := objectstore.NewFileStore(t.TempDir())
	require.NoError(t, err)
	return s
}

func TestCleanAdmitsAndEncodes(t *testing.T) {
	store := newStore(t)
	codec := placeholder.NewCodec(placeholder.V2)
	content := strings.Repeat("large file content ", 1000)

	var out bytes.Buffer
	require.NoError(t, Clean(strings.NewReader(content), &out, store, codec))

	sum := sha1.Sum([]byte(content))
	digest := placeholder.Digest(fmt.Sprintf("%x", sum))

	ok, err := store.Exists(digest)
	require.NoError(t, err)
	assert.True(t, ok)

	gotDigest, gotSize, decoded, err := placeholder.Decode(out.Bytes(), true)
	require.NoError(t, err)
	assert.True(t, decoded)
	assert.Equal(t, digest, gotDigest)
	assert.Equal(t, int64(len(content)), gotSize)
}

func TestCleanThenSmudgeRoundTrip(t *testing.T) {
	store := newStore(t)
	codec := placeholder.NewCodec(placeholder.V2)
	content := strings.Repeat("round trip data\n", 500)

	var placeholderOut bytes.Buffer
	require.NoError(t, Clean(strings.NewReader(content), &placeholderOut, store, codec))

	var restored bytes.Buffer
	require.NoError(t, Smudge(bytes.NewReader(placeholderOut.Bytes()), &restored, store))

	assert.Equal(t, content, restored.String())
}

func TestCleanHangingFilePassthrough(t *testing.T) {
	store := newStore(t)
	codec := placeholder.NewCodec(placeholder.V2)
	digest := placeholder.Digest("da39a3ee5e6b4b0d3255bfef95601890afd80709")
	already := codec.Encode(digest, 7)

	var out bytes.Buffer
	require.NoError(t, Clean(bytes.NewReader(already), &out, store, codec))

	assert.Equal(t, already, out.Bytes())

	exists, err := store.Exists(digest)
	require.NoError(t, err)
	assert.False(t, exists, "hanging placeholder must not be admitted as a blob")
}

func TestSmudgeMissingBlobWritesPlaceholder(t *testing.T) {
	store := newStore(t)
	codec := placeholder.NewCodec(placeholder.V2)
	digest := placeholder.Digest("da39a3ee5e6b4b0d3255bfef95601890afd80709")
	ph := codec.Encode(digest, 99)

	var out bytes.Buffer
	require.NoError(t, Smudge(bytes.NewReader(ph), &out, store))

	gotDigest, gotSize, ok, err := placeholder.Decode(out.Bytes(), true)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, digest, gotDigest)
	assert.Equal(t, int64(99), gotSize)
}

func TestSmudgeNonManagedFilePassthrough(t *testing.T) {
	store := newStore(t)
	content := "an ordinary small file\n"

	var out bytes.Buffer
	require.NoError(t, Smudge(strings.NewReader(content), &out, store))

	assert.Equal(t, content, out.String())
}

func TestCleanDuplicateContentReusesBlob(t *testing.T) {
	store := newStore(t)
	codec := placeholder.NewCodec(placeholder.V2)
	content := "identical bytes"

	var out1, out2 bytes.Buffer
	require.NoError(t, Clean(strings.NewReader(content), &out1, store, codec))
	require.NoError(t, Clean(strings.NewReader(content), &out2, store, codec))

	assert.Equal(t, out1.Bytes(), out2.Bytes())
}
