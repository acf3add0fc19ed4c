//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

// Package modp implements the field capability for an arbitrary prime
// modulus on top of math/big. It is the reference backend: slower than
// the curve-specific backends but usable with any prime, including the
// small readable primes the tests run with.
package modp

import (
	"fmt"
	"io"
	"math/big"

	"github.com/markkurossi/cosnark/field"
)

// Field implements field.Field for the prime given to New.
type Field struct {
	name string
	p    *big.Int
	size int
}

// New creates a field for the prime p.
func New(p *big.Int) (*Field, error) {
	if p == nil || p.Sign() <= 0 || p.Cmp(big.NewInt(2)) < 0 {
		return nil, fmt.Errorf("modp: invalid modulus %v", p)
	}
	if !p.ProbablyPrime(20) {
		return nil, fmt.Errorf("modp: modulus %v is not prime", p)
	}
	return &Field{
		name: fmt.Sprintf("modp-%v", p),
		p:    new(big.Int).Set(p),
		size: (p.BitLen() + 7) / 8,
	}, nil
}

// NewUint64 creates a field for the small prime p.
func NewUint64(p uint64) (*Field, error) {
	return New(new(big.Int).SetUint64(p))
}

// Element implements field.Element. The value is always in [0, p).
type Element struct {
	fld *Field
	v   *big.Int
}

// Name implements field.Field.Name.
func (f *Field) Name() string {
	return f.name
}

// Modulus implements field.Field.Modulus.
func (f *Field) Modulus() *big.Int {
	return new(big.Int).Set(f.p)
}

// Size implements field.Field.Size.
func (f *Field) Size() int {
	return f.size
}

// Zero implements field.Field.Zero.
func (f *Field) Zero() field.Element {
	return &Element{fld: f, v: new(big.Int)}
}

// One implements field.Field.One.
func (f *Field) One() field.Element {
	return f.FromUint64(1)
}

// FromUint64 implements field.Field.FromUint64.
func (f *Field) FromUint64(v uint64) field.Element {
	return f.reduce(new(big.Int).SetUint64(v))
}

// FromBig implements field.Field.FromBig.
func (f *Field) FromBig(v *big.Int) field.Element {
	return f.reduce(new(big.Int).Set(v))
}

// Decode implements field.Field.Decode.
func (f *Field) Decode(data []byte) (field.Element, error) {
	if len(data) != f.size {
		return nil, field.DecodeErr(f.name,
			fmt.Sprintf("encoding length %d, expected %d",
				len(data), f.size))
	}
	v := new(big.Int).SetBytes(data)
	if v.Cmp(f.p) >= 0 {
		return nil, field.DecodeErr(f.name, "non-canonical encoding")
	}
	return &Element{fld: f, v: v}, nil
}

// Random implements field.Field.Random.
func (f *Field) Random(rng io.Reader) (field.Element, error) {
	v, err := field.RandomBig(rng, f.p)
	if err != nil {
		return nil, err
	}
	return &Element{fld: f, v: v}, nil
}

// Add implements field.Field.Add.
func (f *Field) Add(a, b field.Element) field.Element {
	return f.reduce(new(big.Int).Add(val(a), val(b)))
}

// Sub implements field.Field.Sub.
func (f *Field) Sub(a, b field.Element) field.Element {
	return f.reduce(new(big.Int).Sub(val(a), val(b)))
}

// Mul implements field.Field.Mul.
func (f *Field) Mul(a, b field.Element) field.Element {
	return f.reduce(new(big.Int).Mul(val(a), val(b)))
}

// Neg implements field.Field.Neg.
func (f *Field) Neg(a field.Element) field.Element {
	return f.reduce(new(big.Int).Neg(val(a)))
}

func (f *Field) reduce(v *big.Int) *Element {
	return &Element{fld: f, v: v.Mod(v, f.p)}
}

func val(e field.Element) *big.Int {
	return e.(*Element).v
}

// Bytes implements field.Element.Bytes.
func (e *Element) Bytes() []byte {
	return e.v.FillBytes(make([]byte, e.fld.size))
}

// Big implements field.Element.Big.
func (e *Element) Big() *big.Int {
	return new(big.Int).Set(e.v)
}

// Equal implements field.Element.Equal.
func (e *Element) Equal(o field.Element) bool {
	return e.v.Cmp(val(o)) == 0
}

// IsZero implements field.Element.IsZero.
func (e *Element) IsZero() bool {
	return e.v.Sign() == 0
}

func (e *Element) String() string {
	return e.v.String()
}
