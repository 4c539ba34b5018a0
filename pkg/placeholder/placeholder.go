// Package placeholder implements the git-fat placeholder codec: the small
// fixed-width text blob that lives in the repository in place of a large
// file's real bytes.
//
// Two wire versions exist. V1 carries only a digest; V2 appends a
// right-justified 20-character size field so readers can tell a
// placeholder's payload size without touching the object store. Encode
// always produces the version selected at Codec construction; Decode
// accepts either, matching the original's lenient reader.
package placeholder

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gitfat-go/gitfat/pkg/fatutil/errs"
)

const pkgName = "placeholder"

// cookie is the fixed prefix every placeholder begins with.
const cookie = "#$# git-fat "

// Digest is a 40-character lowercase hex SHA-1 digest identifying a blob
// in the object store.
type Digest string

// DigestLength is the length of a valid Digest.
const DigestLength = 40

// Validate reports whether d is a well-formed 40-hex-character digest.
func (d Digest) Validate() error {
	if len(d) != DigestLength {
		return errs.New(pkgName, errs.CodeNotAPlaceholder, "Validate",
			fmt.Sprintf("digest must be %d characters, got %d", DigestLength, len(d)), nil)
	}
	for _, c := range d {
		if !isHexChar(c) {
			return errs.New(pkgName, errs.CodeNotAPlaceholder, "Validate",
				fmt.Sprintf("digest must be hex, found %q", c), nil)
		}
	}
	return nil
}

// String returns the digest as a plain string.
func (d Digest) String() string { return string(d) }

// Short returns the first n characters of the digest, for log lines.
func (d Digest) Short(n int) string {
	if n <= 0 || n > len(d) {
		n = len(d)
	}
	return string(d)[:n]
}

func isHexChar(c rune) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f')
}

// Version selects which wire format Encode produces.
type Version int

const (
	// V1 is the legacy digest-only format.
	V1 Version = 1
	// V2 is the current format, carrying size alongside the digest.
	V2 Version = 2
)

// sizeFieldWidth is the width of V2's right-justified size field.
const sizeFieldWidth = 20

// Codec encodes placeholders in a single selected version. Decode is a
// free function since it must accept either version.
type Codec struct {
	version Version
}

// NewCodec constructs a Codec for the given version. Callers typically
// resolve version once at startup from GIT_FAT_VERSION (spec.md §6).
func NewCodec(v Version) Codec {
	if v != V1 && v != V2 {
		v = V2
	}
	return Codec{version: v}
}

// Encode renders a placeholder for d/size in the codec's configured
// version.
func (c Codec) Encode(d Digest, size int64) []byte {
	switch c.version {
	case V1:
		return []byte(cookie + string(d) + "\n")
	default:
		return []byte(fmt.Sprintf("%s%s %*d\n", cookie, d, sizeFieldWidth, size))
	}
}

// Decode parses a placeholder body. ok reports whether b was recognized
// as a placeholder at all; size is -1 when the body is a V1 placeholder
// (no size field). When strict is false, a non-placeholder body yields
// ok=false and a nil error instead of failing — this is the "hanging
// file" detection path used by Clean, which must tell a real placeholder
// apart from ordinary content without erroring out.
func Decode(b []byte, strict bool) (Digest, int64, bool, error) {
	s := string(b)
	if !strings.HasPrefix(s, cookie) {
		if strict {
			return "", 0, false, errs.New(pkgName, errs.CodeNotAPlaceholder, "Decode",
				"content does not begin with the git-fat cookie", nil)
		}
		return "", 0, false, nil
	}

	fields := strings.Fields(s[len(cookie):])
	if len(fields) == 0 {
		if strict {
			return "", 0, false, errs.New(pkgName, errs.CodeNotAPlaceholder, "Decode",
				"missing digest after cookie", nil)
		}
		return "", 0, false, nil
	}

	digest := Digest(fields[0])
	if err := digest.Validate(); err != nil {
		if strict {
			return "", 0, false, err
		}
		return "", 0, false, nil
	}

	size := int64(-1)
	if len(fields) > 1 {
		n, err := strconv.ParseInt(fields[1], 10, 64)
		if err != nil {
			if strict {
				return "", 0, false, errs.New(pkgName, errs.CodeNotAPlaceholder, "Decode",
					"malformed size field", err)
			}
			return "", 0, false, nil
		}
		size = n
	}

	return digest, size, true, nil
}

// magicLengths is memoized at package init: the byte length of an encoded
// placeholder for each version, computed from a dummy digest/size exactly
// as the original does (encode("dummy"'s sha1, 5) per version). A file of
// any other size on disk cannot possibly be a placeholder, which lets
// OrphanFiles and the filter's hanging-file check skip a full read.
var memoMagicLengths []int

func init() {
	dummy := Digest("829c3804401b0727f70f73d4415e162400cbe57b") // sha1("dummy")
	memoMagicLengths = []int{
		len(NewCodec(V1).Encode(dummy, 5)),
		len(NewCodec(V2).Encode(dummy, 5)),
	}
}

// MagicLengths returns the byte lengths a placeholder may have, one per
// known wire version.
func MagicLengths() []int {
	out := make([]int, len(memoMagicLengths))
	copy(out, memoMagicLengths)
	return out
}

// MagicLength returns the byte length of a placeholder encoded with c's
// version — the length this repository's filter.clean actually produces.
func (c Codec) MagicLength() int {
	switch c.version {
	case V1:
		return memoMagicLengths[0]
	default:
		return memoMagicLengths[1]
	}
}
