package engine

import (
	crand "crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	mathrand "math/rand"
	"strings"
	"time"
)

// InitRNG initializes the RNG. In deterministic mode (seeded=true) uses
// *seedOpt. In random mode, derives a seed from the input hash mixed with
// crypto randomness and writes it to *seedOpt for reproducibility.
func InitRNG(seedOpt *int64, seeded bool, input []byte) *mathrand.Rand {
	if seeded && seedOpt != nil {
		return mathrand.New(mathrand.NewSource(*seedOpt))
	}
	h := sha256.Sum256(input)
	seed := int64(binary.BigEndian.Uint64(h[:8]) & 0x7FFFFFFFFFFFFFFF)
	var b [8]byte
	if _, err := crand.Read(b[:]); err == nil {
		seed ^= int64(binary.BigEndian.Uint64(b[:]) & 0x7FFFFFFFFFFFFFFF)
	} else {
		seed ^= time.Now().UnixNano()
	}
	if seedOpt != nil {
		*seedOpt = seed
	}
	return mathrand.New(mathrand.NewSource(seed))
}

// Alphabets for generated identifiers. Confusables (I, l, 1, O, 0) and
// the occasional Greek letter make generated names hard to tell apart.
var (
	identStart  = []rune("abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ_")
	identRest   = []rune("abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ_0123456789Il1O0Il1O0")
	identGreek  = []rune("αβγδεζηθικλμνξοπρστυφχψω")
	badSuffixes = []string{"__", "_builtin", "_module", "_class"}
)

// NameGen produces obfuscated identifiers. Mappings are memoized so the
// same original name always maps to the same replacement within a run,
// and no two originals ever share a replacement.
type NameGen struct {
	rng            *mathrand.Rand
	mapping        map[string]string
	taken          map[string]bool
	minLen, maxLen int
}

func NewNameGen(rng *mathrand.Rand) *NameGen {
	return &NameGen{
		rng:     rng,
		mapping: make(map[string]string),
		taken:   make(map[string]bool),
		minLen:  8,
		maxLen:  16,
	}
}

// SetLength adjusts the generated identifier length range. Higher
// obfuscation levels use longer names.
func (g *NameGen) SetLength(min, max int) {
	g.minLen, g.maxLen = min, max
}

// Rename returns the replacement for original, generating one on first use.
func (g *NameGen) Rename(original string) string {
	if mapped, ok := g.mapping[original]; ok {
		return mapped
	}
	name := g.fresh()
	g.mapping[original] = name
	g.taken[name] = true
	return name
}

// Fresh returns a new identifier with no original attached, for
// synthesized variables.
func (g *NameGen) Fresh() string {
	name := g.fresh()
	g.taken[name] = true
	return name
}

// Mapped reports whether original already has a replacement.
func (g *NameGen) Mapped(original string) (string, bool) {
	mapped, ok := g.mapping[original]
	return mapped, ok
}

// Mapping returns the accumulated original-to-replacement table.
func (g *NameGen) Mapping() map[string]string { return g.mapping }

func (g *NameGen) fresh() string {
	for {
		name := g.generate()
		if g.taken[name] || isReservedName(name) {
			continue
		}
		if hasBadSuffix(name) {
			continue
		}
		return name
	}
}

func (g *NameGen) generate() string {
	length := g.minLen + g.rng.Intn(g.maxLen-g.minLen+1)
	var b strings.Builder
	if g.rng.Float64() < 0.3 {
		b.WriteRune(identGreek[g.rng.Intn(len(identGreek))])
	} else {
		b.WriteRune(identStart[g.rng.Intn(len(identStart))])
	}
	for i := 1; i < length; i++ {
		if g.rng.Float64() < 0.1 {
			b.WriteRune(identGreek[g.rng.Intn(len(identGreek))])
		} else {
			b.WriteRune(identRest[g.rng.Intn(len(identRest))])
		}
	}
	return b.String()
}

func hasBadSuffix(name string) bool {
	for _, s := range badSuffixes {
		if strings.HasSuffix(name, s) {
			return true
		}
	}
	return false
}

// ShuffleStrings shuffles in place (Fisher-Yates).
func ShuffleStrings(r *mathrand.Rand, a []string) {
	for i := len(a) - 1; i > 0; i-- {
		j := r.Intn(i + 1)
		a[i], a[j] = a[j], a[i]
	}
}

// LCG constants (C standard rand).
const lcgMul = 1103515245
const lcgAdd = 12345

// deriveKeyN produces n deterministic bytes from a seed, for XOR key
// material that stays reproducible under a fixed seed.
func deriveKeyN(seed int64, n int) []byte {
	key := make([]byte, n)
	s := uint32(seed & 0x7FFFFFFF)
	for i := 0; i < n; i++ {
		s = uint32((uint64(s)*lcgMul + lcgAdd) & 0x7FFFFFFF)
		key[i] = byte((s >> 16) & 0xFF)
	}
	return key
}

const keyAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// xorKey generates an alphanumeric key of 8 to 16 characters.
func xorKey(r *mathrand.Rand) string {
	n := 8 + r.Intn(9)
	raw := deriveKeyN(r.Int63(), n)
	b := make([]byte, n)
	for i, v := range raw {
		b[i] = keyAlphabet[int(v)%len(keyAlphabet)]
	}
	return string(b)
}
