//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package beaver_test

import (
	"crypto/rand"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markkurossi/cosnark"
	"github.com/markkurossi/cosnark/beaver"
	"github.com/markkurossi/cosnark/field"
	"github.com/markkurossi/cosnark/field/bn254"
	"github.com/markkurossi/cosnark/field/modp"
	"github.com/markkurossi/cosnark/share"
)

func TestDeal(t *testing.T) {
	p97, err := modp.NewUint64(97)
	require.NoError(t, err)

	fields := []field.Field{p97, bn254.New()}

	for _, fld := range fields {
		for _, n := range []int{2, 3, 5} {
			dealer, err := beaver.NewDealer(fld, rand.Reader, n)
			require.NoError(t, err)

			dealt, err := dealer.Deal(4)
			require.NoError(t, err)
			require.Equal(t, n, len(dealt))

			for i := 0; i < 4; i++ {
				as := make([]share.Share, n)
				bs := make([]share.Share, n)
				cs := make([]share.Share, n)
				for party := 0; party < n; party++ {
					as[party] = dealt[party][i].A
					bs[party] = dealt[party][i].B
					cs[party] = dealt[party][i].C
				}
				a, err := share.Reconstruct(fld, as, n)
				require.NoError(t, err)
				b, err := share.Reconstruct(fld, bs, n)
				require.NoError(t, err)
				c, err := share.Reconstruct(fld, cs, n)
				require.NoError(t, err)

				assert.True(t, fld.Mul(a, b).Equal(c),
					"%s: n=%d triple %d", fld.Name(), n, i)
			}
		}
	}
}

func TestDealerErrors(t *testing.T) {
	fld, err := modp.NewUint64(97)
	require.NoError(t, err)

	_, err = beaver.NewDealer(fld, rand.Reader, 1)
	assert.Error(t, err)
}

func TestPoolExhaustion(t *testing.T) {
	fld, err := modp.NewUint64(97)
	require.NoError(t, err)

	dealer, err := beaver.NewDealer(fld, rand.Reader, 2)
	require.NoError(t, err)

	pools, err := dealer.Pools(3)
	require.NoError(t, err)
	require.Equal(t, 2, len(pools))

	pool := pools[0]
	assert.Equal(t, 3, pool.Remaining())

	for i := 0; i < 3; i++ {
		_, err := pool.Next()
		require.NoError(t, err)
	}
	assert.Equal(t, 0, pool.Remaining())

	_, err = pool.Next()
	assert.True(t, errors.Is(err, cosnark.ErrTripleExhausted))
}

func TestPRG(t *testing.T) {
	var key [32]byte
	var nonce [12]byte
	key[0] = 0x42

	prg1, err := beaver.NewPRG(key, nonce)
	require.NoError(t, err)
	prg2, err := beaver.NewPRG(key, nonce)
	require.NoError(t, err)

	buf1 := make([]byte, 64)
	buf2 := make([]byte, 64)
	_, err = prg1.Read(buf1)
	require.NoError(t, err)
	_, err = prg2.Read(buf2)
	require.NoError(t, err)

	assert.Equal(t, buf1, buf2)
	assert.NotEqual(t, make([]byte, 64), buf1)
}

func TestReproducibleDeal(t *testing.T) {
	fld := bn254.New()

	var key [32]byte
	var nonce [12]byte

	deal := func() [][]beaver.Triple {
		prg, err := beaver.NewPRG(key, nonce)
		require.NoError(t, err)
		dealer, err := beaver.NewDealer(fld, prg, 3)
		require.NoError(t, err)
		dealt, err := dealer.Deal(2)
		require.NoError(t, err)
		return dealt
	}

	d1 := deal()
	d2 := deal()

	for party := range d1 {
		for i := range d1[party] {
			assert.True(t, d1[party][i].A.V.Equal(d2[party][i].A.V))
			assert.True(t, d1[party][i].B.V.Equal(d2[party][i].B.V))
			assert.True(t, d1[party][i].C.V.Equal(d2[party][i].C.V))
		}
	}
}
