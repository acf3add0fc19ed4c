//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

// Package bn254 implements the field capability for the BN254 scalar
// field on top of gnark-crypto.
package bn254

import (
	"fmt"
	"io"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/markkurossi/cosnark/field"
)

const name = "bn254"

// Field implements field.Field for the BN254 scalar field.
type Field struct{}

// New creates the BN254 scalar field.
func New() Field {
	return Field{}
}

// Element implements field.Element.
type Element struct {
	v fr.Element
}

// Name implements field.Field.Name.
func (Field) Name() string {
	return name
}

// Modulus implements field.Field.Modulus.
func (Field) Modulus() *big.Int {
	return fr.Modulus()
}

// Size implements field.Field.Size.
func (Field) Size() int {
	return fr.Bytes
}

// Zero implements field.Field.Zero.
func (Field) Zero() field.Element {
	return &Element{}
}

// One implements field.Field.One.
func (Field) One() field.Element {
	var e Element
	e.v.SetOne()
	return &e
}

// FromUint64 implements field.Field.FromUint64.
func (Field) FromUint64(v uint64) field.Element {
	var e Element
	e.v.SetUint64(v)
	return &e
}

// FromBig implements field.Field.FromBig.
func (Field) FromBig(v *big.Int) field.Element {
	var e Element
	e.v.SetBigInt(v)
	return &e
}

// Decode implements field.Field.Decode.
func (Field) Decode(data []byte) (field.Element, error) {
	if len(data) != fr.Bytes {
		return nil, field.DecodeErr(name,
			fmt.Sprintf("encoding length %d, expected %d",
				len(data), fr.Bytes))
	}
	var e Element
	if err := e.v.SetBytesCanonical(data); err != nil {
		return nil, field.DecodeErr(name, "non-canonical encoding")
	}
	return &e, nil
}

// Random implements field.Field.Random.
func (f Field) Random(rng io.Reader) (field.Element, error) {
	v, err := field.RandomBig(rng, fr.Modulus())
	if err != nil {
		return nil, err
	}
	return f.FromBig(v), nil
}

// Add implements field.Field.Add.
func (Field) Add(a, b field.Element) field.Element {
	var e Element
	e.v.Add(val(a), val(b))
	return &e
}

// Sub implements field.Field.Sub.
func (Field) Sub(a, b field.Element) field.Element {
	var e Element
	e.v.Sub(val(a), val(b))
	return &e
}

// Mul implements field.Field.Mul.
func (Field) Mul(a, b field.Element) field.Element {
	var e Element
	e.v.Mul(val(a), val(b))
	return &e
}

// Neg implements field.Field.Neg.
func (Field) Neg(a field.Element) field.Element {
	var e Element
	e.v.Neg(val(a))
	return &e
}

func val(e field.Element) *fr.Element {
	return &e.(*Element).v
}

// Bytes implements field.Element.Bytes.
func (e *Element) Bytes() []byte {
	b := e.v.Bytes()
	return b[:]
}

// Big implements field.Element.Big.
func (e *Element) Big() *big.Int {
	return e.v.BigInt(new(big.Int))
}

// Equal implements field.Element.Equal.
func (e *Element) Equal(o field.Element) bool {
	return e.v.Equal(val(o))
}

// IsZero implements field.Element.IsZero.
func (e *Element) IsZero() bool {
	return e.v.IsZero()
}

func (e *Element) String() string {
	return e.v.String()
}
