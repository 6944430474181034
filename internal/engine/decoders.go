package engine

import "strings"

// Names of the decode routines injected into the output. Single leading
// underscore on purpose: double-underscore names get mangled when a call
// site sits inside a class body.
const (
	decB64Name   = "_dec_b64"
	decRotName   = "_dec_rot"
	decRevName   = "_dec_rev"
	decHexName   = "_dec_hex"
	decTableName = "_DECODERS"
	decMultiName = "_decode_ml"
	decXorName   = "_decode_xor"
)

// multilayerRuntime is the decode support emitted when any string was
// encoded with layered codecs. The routines deliberately stick to plain
// loops and simple slicing so the validation re-parse accepts them.
const multilayerRuntime = `def _dec_b64(s):
    import base64
    return base64.b64decode(s).decode('utf-8')
def _dec_rot(s):
    out = ''
    i = 0
    while i < len(s):
        out = out + chr((ord(s[i]) - 13) % 256)
        i = i + 1
    return out
def _dec_rev(s):
    out = ''
    i = len(s) - 1
    while i >= 0:
        out = out + s[i]
        i = i - 1
    return out
def _dec_hex(s):
    out = ''
    i = 0
    while i < len(s):
        out = out + chr(int(s[i:i + 2], 16))
        i = i + 2
    return out
_DECODERS = {'b64': _dec_b64, 'rot': _dec_rot, 'rev': _dec_rev, 'hex': _dec_hex}
def _decode_ml(s, layers):
    i = len(layers) - 1
    while i >= 0:
        s = _DECODERS[layers[i]](s)
        i = i - 1
    return s
`

// xorRuntime is emitted when any string was XOR-encoded.
const xorRuntime = `def _decode_xor(s, k):
    out = ''
    i = 0
    while i < len(s):
        out = out + chr(ord(s[i]) ^ ord(k[i % len(k)]))
        i = i + 1
    return out
`

// decoderRuntime assembles the decode support a run actually needs.
// Returns "" when no string was encoded.
func decoderRuntime(needed map[string]bool) string {
	var b strings.Builder
	if needed[decMultiName] {
		b.WriteString(multilayerRuntime)
	}
	if needed[decXorName] {
		b.WriteString(xorRuntime)
	}
	return b.String()
}
