package main

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kittclouds/colibridec/pkg/pattern"
)

func TestLoadClassFileBothDirections(t *testing.T) {
	cf, err := loadClassFile(strings.NewReader("1\thello\n2\tworld\n"))
	require.NoError(t, err)

	c, ok := cf.Encode("hello")
	require.True(t, ok)
	assert.Equal(t, pattern.Class(1), c)
	assert.Equal(t, "world", cf.Word(2))
}

func TestLoadClassFileRejectsMalformedLine(t *testing.T) {
	_, err := loadClassFile(strings.NewReader("not-a-class-line\n"))
	assert.Error(t, err)
}

func TestEncodeLineAllocatesFreshClassForUnknownWords(t *testing.T) {
	cf, err := loadClassFile(strings.NewReader("1\thello\n"))
	require.NoError(t, err)

	out := encodeLine(cf, "hello spaceship spaceship")
	require.Len(t, out, 3)
	assert.Equal(t, pattern.Class(1), out[0])
	assert.True(t, out[1] > 1)
	assert.Equal(t, out[1], out[2], "repeated OOV word reuses the same allocated class")
}

func TestWordFallsBackToUnkForUnmappedClass(t *testing.T) {
	cf, err := loadClassFile(strings.NewReader("1\thello\n"))
	require.NoError(t, err)

	assert.Equal(t, "<unk>", cf.Word(999))
}

func TestDecodeLineJoinsSurfaceWords(t *testing.T) {
	cf, err := loadClassFile(strings.NewReader("1\thello\n2\tworld\n"))
	require.NoError(t, err)

	got := decodeLine(cf, pattern.New(1, 2))
	assert.Equal(t, "hello world", got)
}
