//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package share_test

import (
	"crypto/rand"
	"errors"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markkurossi/cosnark"
	"github.com/markkurossi/cosnark/field"
	"github.com/markkurossi/cosnark/field/bn254"
	"github.com/markkurossi/cosnark/field/modp"
	"github.com/markkurossi/cosnark/share"
)

func p97(t *testing.T) field.Field {
	fld, err := modp.NewUint64(97)
	require.NoError(t, err)
	return fld
}

func TestRoundTrip(t *testing.T) {
	fields := []field.Field{p97(t), bn254.New()}

	for _, fld := range fields {
		for n := 2; n <= 10; n++ {
			for _, v := range []uint64{0, 1, 5, 96} {
				secret := fld.FromUint64(v)
				shares, err := share.Split(fld, rand.Reader, secret, n)
				require.NoError(t, err)
				require.Equal(t, n, len(shares))

				got, err := share.Reconstruct(fld, shares, n)
				require.NoError(t, err)
				assert.True(t, secret.Equal(got),
					"%s: v=%d n=%d", fld.Name(), v, n)
			}
		}
	}
}

func TestSplitErrors(t *testing.T) {
	fld := p97(t)

	_, err := share.Split(fld, rand.Reader, fld.Zero(), 1)
	assert.True(t, errors.Is(err, cosnark.ErrProtocol))
}

func TestReconstructErrors(t *testing.T) {
	fld := p97(t)

	shares, err := share.Split(fld, rand.Reader, fld.FromUint64(42), 3)
	require.NoError(t, err)

	// Wrong share count is fatal, never silently partial.
	_, err = share.Reconstruct(fld, shares[:2], 3)
	assert.True(t, errors.Is(err, cosnark.ErrProtocol))

	_, err = share.Reconstruct(fld, shares, 2)
	assert.True(t, errors.Is(err, cosnark.ErrProtocol))

	dup := []share.Share{shares[0], shares[1], shares[1]}
	_, err = share.Reconstruct(fld, dup, 3)
	assert.True(t, errors.Is(err, cosnark.ErrProtocol))

	missing := []share.Share{shares[0], shares[1], {Party: 2}}
	_, err = share.Reconstruct(fld, missing, 3)
	assert.True(t, errors.Is(err, cosnark.ErrProtocol))
}

func TestAddHomomorphism(t *testing.T) {
	fld := p97(t)

	properties := gopter.NewProperties(nil)

	properties.Property("shares add like secrets", prop.ForAll(
		func(a, b uint64) bool {
			as, err := share.Split(fld, rand.Reader, fld.FromUint64(a), 3)
			if err != nil {
				return false
			}
			bs, err := share.Split(fld, rand.Reader, fld.FromUint64(b), 3)
			if err != nil {
				return false
			}
			sum := make([]share.Share, 3)
			for i := range sum {
				sum[i] = share.Add(fld, as[i], bs[i])
			}
			got, err := share.Reconstruct(fld, sum, 3)
			if err != nil {
				return false
			}
			return got.Equal(fld.Add(fld.FromUint64(a), fld.FromUint64(b)))
		},
		gen.UInt64(), gen.UInt64()))

	properties.TestingRun(t)
}

func TestLinearOps(t *testing.T) {
	fld := p97(t)
	k := fld.FromUint64(10)

	shares, err := share.Split(fld, rand.Reader, fld.FromUint64(5), 4)
	require.NoError(t, err)

	scaled := make([]share.Share, 4)
	added := make([]share.Share, 4)
	subbed := make([]share.Share, 4)
	negged := make([]share.Share, 4)
	for i := range shares {
		scaled[i] = share.Scale(fld, shares[i], k)
		added[i] = share.AddPublic(fld, shares[i], k)
		subbed[i] = share.SubPublic(fld, shares[i], k)
		negged[i] = share.Neg(fld, shares[i])
	}

	got, err := share.Reconstruct(fld, scaled, 4)
	require.NoError(t, err)
	assert.True(t, fld.FromUint64(50).Equal(got))

	got, err = share.Reconstruct(fld, added, 4)
	require.NoError(t, err)
	assert.True(t, fld.FromUint64(15).Equal(got))

	got, err = share.Reconstruct(fld, subbed, 4)
	require.NoError(t, err)
	assert.True(t, fld.Neg(fld.FromUint64(5)).Equal(got))

	got, err = share.Reconstruct(fld, negged, 4)
	require.NoError(t, err)
	assert.True(t, fld.Neg(fld.FromUint64(5)).Equal(got))
}

func TestPartyMismatch(t *testing.T) {
	fld := p97(t)

	a := share.Share{Party: 0, V: fld.One()}
	b := share.Share{Party: 1, V: fld.One()}

	assert.Panics(t, func() {
		share.Add(fld, a, b)
	})
}

func TestRandom(t *testing.T) {
	fld := bn254.New()

	a, err := share.Random(fld, rand.Reader, 2)
	require.NoError(t, err)
	b, err := share.Random(fld, rand.Reader, 2)
	require.NoError(t, err)

	assert.Equal(t, 2, a.Party)
	assert.False(t, a.V.Equal(b.V))
}
