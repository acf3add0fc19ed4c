//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package bls12381_test

import (
	"crypto/rand"
	"errors"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markkurossi/cosnark"
	"github.com/markkurossi/cosnark/field/bls12381"
)

func TestField(t *testing.T) {
	fld := bls12381.New()
	assert.Equal(t, "bls12381", fld.Name())
	assert.Equal(t, 32, fld.Size())

	pm1 := fld.FromBig(new(big.Int).Sub(fld.Modulus(), big.NewInt(1)))
	assert.True(t, fld.Add(pm1, fld.One()).IsZero())
}

func TestArithmetic(t *testing.T) {
	fld := bls12381.New()
	p := fld.Modulus()

	for i := 0; i < 20; i++ {
		a, err := fld.Random(rand.Reader)
		require.NoError(t, err)
		b, err := fld.Random(rand.Reader)
		require.NoError(t, err)

		sum := new(big.Int).Add(a.Big(), b.Big())
		sum.Mod(sum, p)
		assert.Equal(t, 0, fld.Add(a, b).Big().Cmp(sum))

		prod := new(big.Int).Mul(a.Big(), b.Big())
		prod.Mod(prod, p)
		assert.Equal(t, 0, fld.Mul(a, b).Big().Cmp(prod))
	}
}

func TestEncoding(t *testing.T) {
	fld := bls12381.New()

	e, err := fld.Random(rand.Reader)
	require.NoError(t, err)

	decoded, err := fld.Decode(e.Bytes())
	require.NoError(t, err)
	assert.True(t, e.Equal(decoded))

	_, err = fld.Decode(fld.Modulus().FillBytes(make([]byte, fld.Size())))
	assert.True(t, errors.Is(err, cosnark.ErrProtocol))
}
