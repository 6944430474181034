package engine

import (
	"encoding/base64"
	"encoding/hex"
	"fmt"
	mathrand "math/rand"
	"strings"
)

// Literal codecs. Each layer is a reversible string transform with its
// own eligibility gate; a string that fails a gate is rejected rather
// than corrupted. The matching decode routines are emitted as source into
// the output program (see decoders.go).

const (
	maxEncodedLen = 500
	maxB64Input   = 100
	maxHexInput   = 50
)

var layerOrder = []string{"b64", "rot", "rev", "hex"}

// layerEncode applies one named layer. ok=false means the value is not
// eligible for this layer and must be left as is.
func layerEncode(name, s string) (string, bool) {
	switch name {
	case "b64":
		if len([]rune(s)) > maxB64Input {
			return "", false
		}
		return base64.StdEncoding.EncodeToString([]byte(s)), true
	case "rot":
		return rotEncode(s)
	case "rev":
		return reverseRunes(s), true
	case "hex":
		if len([]rune(s)) > maxHexInput || !isASCII(s) {
			return "", false
		}
		return hex.EncodeToString([]byte(s)), true
	}
	return "", false
}

// rotEncode shifts every code point by 13 modulo 256. Code points that
// would wrap or land below the printable range make the whole string
// ineligible: a partial rot cannot be reversed.
func rotEncode(s string) (string, bool) {
	var b strings.Builder
	for _, r := range s {
		if r >= 243 || r+13 < 32 {
			return "", false
		}
		b.WriteRune((r + 13) % 256)
	}
	return b.String(), true
}

func reverseRunes(s string) string {
	rs := []rune(s)
	for i, j := 0, len(rs)-1; i < j; i, j = i+1, j-1 {
		rs[i], rs[j] = rs[j], rs[i]
	}
	return string(rs)
}

func isASCII(s string) bool {
	for _, r := range s {
		if r >= 128 {
			return false
		}
	}
	return true
}

// EncodeMultilayer encodes s with one or two randomly chosen layers.
// ok=false means no layer combination was feasible; the caller skips the
// string silently. The returned layer names are in application order.
func EncodeMultilayer(r *mathrand.Rand, s string) (string, []string, bool) {
	if s == "" {
		return "", nil, false
	}
	names := append([]string(nil), layerOrder...)
	ShuffleStrings(r, names)
	want := 1 + r.Intn(2)
	var applied []string
	enc := s
	for _, name := range names {
		if len(applied) == want {
			break
		}
		// Each layer is verified on its own: one that fails its gate,
		// leaves the value unchanged or overshoots the size ceiling is
		// rolled back alone, keeping layers already applied.
		out, ok := layerEncode(name, enc)
		if !ok || out == enc || len(out) >= maxEncodedLen {
			continue
		}
		enc = out
		applied = append(applied, name)
	}
	if len(applied) == 0 {
		return "", nil, false
	}
	return enc, applied, true
}

// DecodeMultilayer reverses EncodeMultilayer, mirroring the emitted
// decode routines exactly.
func DecodeMultilayer(enc string, layers []string) (string, error) {
	s := enc
	for i := len(layers) - 1; i >= 0; i-- {
		var err error
		s, err = layerDecode(layers[i], s)
		if err != nil {
			return "", err
		}
	}
	return s, nil
}

func layerDecode(name, s string) (string, error) {
	switch name {
	case "b64":
		raw, err := base64.StdEncoding.DecodeString(s)
		if err != nil {
			return "", fmt.Errorf("b64 layer: %w", err)
		}
		return string(raw), nil
	case "rot":
		var b strings.Builder
		for _, r := range s {
			b.WriteRune((r - 13 + 256) % 256)
		}
		return b.String(), nil
	case "rev":
		return reverseRunes(s), nil
	case "hex":
		raw, err := hex.DecodeString(s)
		if err != nil {
			return "", fmt.Errorf("hex layer: %w", err)
		}
		return string(raw), nil
	}
	return "", fmt.Errorf("unknown layer %q", name)
}

// EncodeXOR encodes s against a fresh alphanumeric key. Every output code
// point must stay printable ASCII (32-126). Key bytes that would push a
// covered character outside that range are replaced by the nearest
// alphabet byte that keeps every covered character printable; when no
// such byte exists the string is ineligible. ok=false means skip.
func EncodeXOR(r *mathrand.Rand, s string) (enc, key string, ok bool) {
	if s == "" || !isASCII(s) {
		return "", "", false
	}
	chars := []byte(s)
	kb := []byte(xorKey(r))
	for j := range kb {
		b, found := printableKeyByte(chars, j, len(kb), strings.IndexByte(keyAlphabet, kb[j]))
		if !found {
			return "", "", false
		}
		kb[j] = b
	}
	var b strings.Builder
	for i, c := range chars {
		b.WriteByte(c ^ kb[i%len(kb)])
	}
	return b.String(), string(kb), true
}

// printableKeyByte searches the key alphabet, starting at start, for a
// byte that XORs every character it covers (pos, pos+period, ...) into
// the printable range.
func printableKeyByte(chars []byte, pos, period, start int) (byte, bool) {
	if start < 0 {
		start = 0
	}
	for t := 0; t < len(keyAlphabet); t++ {
		k := keyAlphabet[(start+t)%len(keyAlphabet)]
		fits := true
		for i := pos; i < len(chars); i += period {
			if e := chars[i] ^ k; e < 32 || e > 126 {
				fits = false
				break
			}
		}
		if fits {
			return k, true
		}
	}
	return 0, false
}

// DecodeXOR reverses EncodeXOR.
func DecodeXOR(enc, key string) string {
	var b strings.Builder
	i := 0
	for _, c := range enc {
		b.WriteRune(c ^ rune(key[i%len(key)]))
		i++
	}
	return b.String()
}
