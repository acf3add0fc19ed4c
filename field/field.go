//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

// Package field defines the prime-field capability the engine is
// parameterized over. A concrete Field is selected once per session;
// all share arithmetic and wire encodings go through this interface.
package field

import (
	"fmt"
	"io"
	"math/big"

	"github.com/markkurossi/cosnark"
)

// Element is an integer modulo the field's prime. Implementations are
// immutable; all operations allocate their result via the Field.
type Element interface {
	// Bytes returns the canonical fixed-width big-endian encoding.
	// The result is always Field.Size() bytes long.
	Bytes() []byte

	// Big returns the element as a non-negative big integer below
	// the modulus.
	Big() *big.Int

	// Equal tests the argument for equality.
	Equal(o Element) bool

	// IsZero tests if the element is zero.
	IsZero() bool

	String() string
}

// Field implements modular arithmetic and canonical encoding for one
// prime modulus.
type Field interface {
	// Name returns the field name, e.g. "bn254".
	Name() string

	// Modulus returns the prime modulus p.
	Modulus() *big.Int

	// Size returns the canonical encoding width ceil(bits(p)/8).
	Size() int

	Zero() Element
	One() Element
	FromUint64(v uint64) Element
	FromBig(v *big.Int) Element

	// Decode decodes a canonical encoding. Undersized, oversized,
	// and non-canonical (>= p) inputs fail with a protocol error.
	Decode(data []byte) (Element, error)

	// Random returns a uniformly random element drawn from rng.
	Random(rng io.Reader) (Element, error)

	Add(a, b Element) Element
	Sub(a, b Element) Element
	Mul(a, b Element) Element
	Neg(a Element) Element
}

// RandomBig returns a uniformly random integer below p. The bias from
// the modular reduction is negligible since 128 extra bits are drawn.
func RandomBig(rng io.Reader, p *big.Int) (*big.Int, error) {
	buf := make([]byte, (p.BitLen()+7)/8+16)
	if _, err := io.ReadFull(rng, buf); err != nil {
		return nil, err
	}
	v := new(big.Int).SetBytes(buf)
	return v.Mod(v, p), nil
}

// DecodeErr returns the protocol error for a malformed canonical
// encoding of the named field.
func DecodeErr(name string, reason string) error {
	return fmt.Errorf("%w: %s: %s", cosnark.ErrProtocol, name, reason)
}
