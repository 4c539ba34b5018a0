package vcs

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitNUL(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, splitNUL([]byte("a\x00b\x00c\x00")))
	assert.Nil(t, splitNUL([]byte("")))
	assert.Equal(t, []string{"only"}, splitNUL([]byte("only\x00")))
}
