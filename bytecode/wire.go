package bytecode

import (
	"bytes"
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// WireVersion is the current chunk wire format version.
// Increment when making incompatible changes to the format.
const WireVersion uint16 = 1

// WireMagic prefixes every serialized chunk: "LXBC" (Loxa ByteCode).
var WireMagic = []byte{'L', 'X', 'B', 'C'}

// cborEncMode holds CBOR encoding options with canonical mode for
// deterministic encoding.
var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("bytecode: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// wireConstant is the serialized form of a constant pool entry.
type wireConstant struct {
	Kind  uint8   `cbor:"1,keyasint"`
	Bool  bool    `cbor:"2,keyasint,omitempty"`
	Int   int64   `cbor:"3,keyasint,omitempty"`
	Float float64 `cbor:"4,keyasint,omitempty"`
	Str   string  `cbor:"5,keyasint,omitempty"`
}

// wireChunk is the serialized form of a Chunk.
type wireChunk struct {
	Version   uint16         `cbor:"1,keyasint"`
	Code      []byte         `cbor:"2,keyasint"`
	Lines     []int          `cbor:"3,keyasint"`
	Constants []wireConstant `cbor:"4,keyasint,omitempty"`
}

// MarshalChunk serializes a Chunk to magic-prefixed CBOR bytes.
func MarshalChunk(c *Chunk) ([]byte, error) {
	w := wireChunk{
		Version: WireVersion,
		Code:    c.code,
		Lines:   c.lines,
	}
	for _, k := range c.constants {
		w.Constants = append(w.Constants, wireConstant{
			Kind:  uint8(k.Kind),
			Bool:  k.Bool,
			Int:   k.Int,
			Float: k.Float,
			Str:   k.Str,
		})
	}

	body, err := cborEncMode.Marshal(&w)
	if err != nil {
		return nil, fmt.Errorf("bytecode: marshal chunk: %w", err)
	}

	buf := make([]byte, 0, len(WireMagic)+len(body))
	buf = append(buf, WireMagic...)
	buf = append(buf, body...)
	return buf, nil
}

// UnmarshalChunk deserializes a Chunk from magic-prefixed CBOR bytes.
func UnmarshalChunk(data []byte) (*Chunk, error) {
	if len(data) < len(WireMagic) {
		return nil, fmt.Errorf("bytecode: data too short: need at least %d bytes, got %d", len(WireMagic), len(data))
	}
	if !bytes.Equal(data[:len(WireMagic)], WireMagic) {
		return nil, fmt.Errorf("bytecode: invalid magic: expected %q, got %q", WireMagic, data[:len(WireMagic)])
	}

	var w wireChunk
	if err := cbor.Unmarshal(data[len(WireMagic):], &w); err != nil {
		return nil, fmt.Errorf("bytecode: unmarshal chunk: %w", err)
	}
	if w.Version > WireVersion {
		return nil, fmt.Errorf("bytecode: chunk version %d is newer than supported version %d", w.Version, WireVersion)
	}
	if len(w.Code) != len(w.Lines) {
		return nil, fmt.Errorf("bytecode: corrupt chunk: %d code bytes but %d line entries", len(w.Code), len(w.Lines))
	}

	c := &Chunk{
		code:  w.Code,
		lines: w.Lines,
	}
	for _, k := range w.Constants {
		c.constants = append(c.constants, Constant{
			Kind:  ConstantKind(k.Kind),
			Bool:  k.Bool,
			Int:   k.Int,
			Float: k.Float,
			Str:   k.Str,
		})
	}
	return c, nil
}
