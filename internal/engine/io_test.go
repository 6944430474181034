package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStripBOM(t *testing.T) {
	assert.Equal(t, []byte("x = 1"), stripBOM([]byte("\xEF\xBB\xBFx = 1")))
	assert.Equal(t, []byte("x = 1"), stripBOM([]byte("x = 1")))
}

func TestDecodeInputUTF8(t *testing.T) {
	s, err := decodeInput([]byte("name = 'café'"))
	require.NoError(t, err)
	assert.Equal(t, "name = 'café'", s)
}

func TestDecodeInputLatin1Fallback(t *testing.T) {
	// "café" encoded as Latin-1: 0xE9 is invalid UTF-8 on its own.
	s, err := decodeInput([]byte{'c', 'a', 'f', 0xE9})
	require.NoError(t, err)
	assert.Equal(t, "café", s)
}

func TestDecodeInputEmpty(t *testing.T) {
	_, err := decodeInput(nil)
	require.Error(t, err)
}

func TestRequireInOut(t *testing.T) {
	assert.Error(t, requireInOut(&Options{}))
	assert.Error(t, requireInOut(&Options{InputFile: "a.py"}))
	assert.NoError(t, requireInOut(&Options{InputFile: "a.py", OutputFile: "b.py"}))
	assert.NoError(t, requireInOut(&Options{UseStdin: true, UseStdout: true}))
	assert.NoError(t, requireInOut(&Options{InputFile: "a.py", DryRun: true}))
}
