package engine

import (
	mathrand "math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRng() *mathrand.Rand {
	return mathrand.New(mathrand.NewSource(42))
}

func TestMultilayerRoundTrip(t *testing.T) {
	rng := testRng()
	inputs := []string{
		"ab",
		"hello world",
		"exactly-ten",
		strings.Repeat("xy", 50),
		"punctuation: !@#$^&*()",
	}
	for _, in := range inputs {
		enc, layers, ok := EncodeMultilayer(rng, in)
		require.True(t, ok, "input %q", in)
		require.NotEmpty(t, layers)
		assert.NotEqual(t, in, enc)
		dec, err := DecodeMultilayer(enc, layers)
		require.NoError(t, err)
		assert.Equal(t, in, dec, "layers %v", layers)
	}
}

func TestMultilayerSingleChar(t *testing.T) {
	rng := testRng()
	for i := 0; i < 20; i++ {
		// Reversal is a no-op on a single character; that layer rolls
		// back alone and another one applies instead.
		enc, layers, ok := EncodeMultilayer(rng, "a")
		require.True(t, ok, "trial %d", i)
		require.NotEmpty(t, layers)
		assert.NotEqual(t, "rev", layers[0])
		assert.NotEqual(t, "a", enc)
		dec, err := DecodeMultilayer(enc, layers)
		require.NoError(t, err)
		assert.Equal(t, "a", dec)
	}
}

func TestMultilayerPalindromeStillEncodes(t *testing.T) {
	rng := testRng()
	for i := 0; i < 40; i++ {
		enc, layers, ok := EncodeMultilayer(rng, "racecar")
		require.True(t, ok, "trial %d", i)
		assert.NotEqual(t, "racecar", enc)
		dec, err := DecodeMultilayer(enc, layers)
		require.NoError(t, err)
		assert.Equal(t, "racecar", dec)
	}
}

func TestMultilayerEmptyStringRejected(t *testing.T) {
	_, _, ok := EncodeMultilayer(testRng(), "")
	assert.False(t, ok)
}

func TestMultilayerNonASCIIRoundTrip(t *testing.T) {
	rng := testRng()
	// Many seeds so each layer combination gets exercised.
	for i := 0; i < 50; i++ {
		in := "héllo wörld"
		enc, layers, ok := EncodeMultilayer(rng, in)
		if !ok {
			continue
		}
		dec, err := DecodeMultilayer(enc, layers)
		require.NoError(t, err)
		assert.Equal(t, in, dec, "layers %v", layers)
	}
}

func TestRotRejectsHighCodePoints(t *testing.T) {
	_, ok := rotEncode("okõ") // 0xF5 >= 243 would wrap
	assert.False(t, ok)
	_, ok = rotEncode("\x01") // would land below printable range
	assert.False(t, ok)
	enc, ok := rotEncode("abc")
	require.True(t, ok)
	dec, err := layerDecode("rot", enc)
	require.NoError(t, err)
	assert.Equal(t, "abc", dec)
}

func TestHexGate(t *testing.T) {
	_, ok := layerEncode("hex", strings.Repeat("a", maxHexInput+1))
	assert.False(t, ok)
	_, ok = layerEncode("hex", "héllo")
	assert.False(t, ok, "hex decode is byte-wise and would mangle multibyte text")
	enc, ok := layerEncode("hex", "AB")
	require.True(t, ok)
	assert.Equal(t, "4142", enc)
}

func TestB64Gate(t *testing.T) {
	_, ok := layerEncode("b64", strings.Repeat("a", maxB64Input+1))
	assert.False(t, ok)
	enc, ok := layerEncode("b64", strings.Repeat("a", maxB64Input))
	require.True(t, ok)
	dec, err := layerDecode("b64", enc)
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat("a", maxB64Input), dec)
}

func TestReverseLayer(t *testing.T) {
	enc, ok := layerEncode("rev", "abc")
	require.True(t, ok)
	assert.Equal(t, "cba", enc)
	// Reversal is rune-wise, not byte-wise.
	enc, ok = layerEncode("rev", "aé")
	require.True(t, ok)
	assert.Equal(t, "éa", enc)
}

func TestXORRoundTrip(t *testing.T) {
	rng := testRng()
	for i := 0; i < 50; i++ {
		in := "some secret value"
		enc, key, ok := EncodeXOR(rng, in)
		require.True(t, ok, "trial %d", i)
		assert.NotEqual(t, in, enc)
		assert.GreaterOrEqual(t, len(key), 8)
		assert.LessOrEqual(t, len(key), 16)
		assert.Equal(t, in, DecodeXOR(enc, key))
		for _, r := range enc {
			assert.True(t, r >= 32 && r <= 126, "encoded rune %q out of printable range", r)
		}
	}
}

func TestXORRejectsNonASCII(t *testing.T) {
	_, _, ok := EncodeXOR(testRng(), "héllo")
	assert.False(t, ok)
	_, _, ok = EncodeXOR(testRng(), "")
	assert.False(t, ok)
}

func TestXORKeyAlphanumeric(t *testing.T) {
	rng := testRng()
	for i := 0; i < 20; i++ {
		key := xorKey(rng)
		for _, r := range key {
			assert.True(t, strings.ContainsRune(keyAlphabet, r))
		}
	}
}
