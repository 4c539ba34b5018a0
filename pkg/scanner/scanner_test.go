package scanner

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gitfat-go/gitfat/pkg/placeholder"
	"github.com/gitfat-go/gitfat/pkg/vcs/vcstest"
)

func TestReferencedObjectsFindsPlaceholders(t *testing.T) {
	fake := vcstest.New()
	codec := placeholder.NewCodec(placeholder.V2)

	digestA := placeholder.Digest("da39a3ee5e6b4b0d3255bfef95601890afd80709")
	digestB := placeholder.Digest("356a192b7913b04c54574d18c28d46e6395428ab")

	placeholderA := codec.Encode(digestA, 1000)
	placeholderB := codec.Encode(digestB, 2000)
	ordinaryBlob := []byte("just some regular tracked file content")

	hashA := fake.PutBlob(placeholderA)
	hashB := fake.PutBlob(placeholderB)
	hashOrdinary := fake.PutBlob(ordinaryBlob)

	fake.RevListOut = []string{
		hashA + " path/a.bin",
		hashB + " path/b.bin",
		hashOrdinary + " README.md",
	}

	lens := placeholder.MagicLengths()
	result, err := ReferencedObjects(context.Background(), fake, lens, Options{Rev: "HEAD"})
	require.NoError(t, err)

	assert.Len(t, result, 2)
	_, ok := result[digestA]
	assert.True(t, ok)
	_, ok = result[digestB]
	assert.True(t, ok)
}

func TestReferencedObjectsEmptyHistory(t *testing.T) {
	fake := vcstest.New()
	lens := placeholder.MagicLengths()
	result, err := ReferencedObjects(context.Background(), fake, lens, Options{All: true})
	require.NoError(t, err)
	assert.Empty(t, result)
}

func TestReferencedObjectsIgnoresNonPlaceholderSizedBlobs(t *testing.T) {
	fake := vcstest.New()
	hash := fake.PutBlob([]byte("short"))
	fake.RevListOut = []string{hash + " tiny.txt"}

	lens := placeholder.MagicLengths()
	result, err := ReferencedObjects(context.Background(), fake, lens, Options{Rev: "HEAD"})
	require.NoError(t, err)
	assert.Empty(t, result)
}
