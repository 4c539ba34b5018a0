package placeholder

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleDigest = Digest("da39a3ee5e6b4b0d3255bfef95601890afd80709")

func TestEncodeV1(t *testing.T) {
	c := NewCodec(V1)
	got := c.Encode(sampleDigest, 42)
	assert.Equal(t, "#$# git-fat da39a3ee5e6b4b0d3255bfef95601890afd80709\n", string(got))
}

func TestEncodeV2(t *testing.T) {
	c := NewCodec(V2)
	got := c.Encode(sampleDigest, 42)
	assert.Equal(t, "#$# git-fat da39a3ee5e6b4b0d3255bfef95601890afd80709                   42\n", string(got))
}

func TestDecodeRoundTrip(t *testing.T) {
	for _, v := range []Version{V1, V2} {
		c := NewCodec(v)
		encoded := c.Encode(sampleDigest, 123)

		digest, size, ok, err := Decode(encoded, true)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, sampleDigest, digest)
		if v == V2 {
			assert.Equal(t, int64(123), size)
		} else {
			assert.Equal(t, int64(-1), size)
		}
	}
}

func TestDecodeNonPlaceholderLenient(t *testing.T) {
	digest, size, ok, err := Decode([]byte("just some ordinary file content"), false)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, digest)
	assert.Zero(t, size)
}

func TestDecodeNonPlaceholderStrict(t *testing.T) {
	_, _, ok, err := Decode([]byte("just some ordinary file content"), true)
	assert.False(t, ok)
	assert.Error(t, err)
}

func TestDecodeMalformedDigest(t *testing.T) {
	_, _, ok, err := Decode([]byte("#$# git-fat not-a-hex-digest\n"), true)
	assert.False(t, ok)
	assert.Error(t, err)
}

func TestDigestValidate(t *testing.T) {
	assert.NoError(t, sampleDigest.Validate())
	assert.Error(t, Digest("tooshort").Validate())
	assert.Error(t, Digest("gggggggggggggggggggggggggggggggggggggg").Validate())
}

func TestDigestShort(t *testing.T) {
	assert.Equal(t, "da39a3e", sampleDigest.Short(7))
	assert.Equal(t, string(sampleDigest), sampleDigest.Short(0))
}

func TestMagicLengths(t *testing.T) {
	lens := MagicLengths()
	require.Len(t, lens, 2)
	assert.Equal(t, lens[0], NewCodec(V1).MagicLength())
	assert.Equal(t, lens[1], NewCodec(V2).MagicLength())
	assert.NotEqual(t, lens[0], lens[1])
}
