//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

// Package share implements additive n-out-of-n secret sharing over a
// prime field. A secret x is split into n shares x_0..x_{n-1} with
// x = sum(x_i) mod p; any strict subset of shares is independent of
// the secret. Add and Scale are local; multiplication of two shared
// values needs the interactive protocol in the session package.
package share

import (
	"fmt"
	"io"

	"github.com/markkurossi/cosnark"
	"github.com/markkurossi/cosnark/field"
)

// Share is one party's portion of a secret. Party identifies the
// holder; the party-0 convention below depends on it.
type Share struct {
	Party int
	V     field.Element
}

func (s Share) String() string {
	return fmt.Sprintf("%d:%v", s.Party, s.V)
}

// Split splits the secret into n shares satisfying the reconstruction
// invariant: n-1 shares are drawn uniformly at random and the last is
// fixed so the shares sum to the secret.
func Split(fld field.Field, rng io.Reader, secret field.Element, n int) (
	[]Share, error) {

	if n < 2 {
		return nil, fmt.Errorf("%w: split into %d shares",
			cosnark.ErrProtocol, n)
	}
	shares := make([]Share, n)
	sum := fld.Zero()
	for i := 1; i < n; i++ {
		r, err := fld.Random(rng)
		if err != nil {
			return nil, err
		}
		shares[i] = Share{Party: i, V: r}
		sum = fld.Add(sum, r)
	}
	shares[0] = Share{Party: 0, V: fld.Sub(secret, sum)}
	return shares, nil
}

// Reconstruct recovers the secret from the shares of all n parties.
// It is a pure local computation; a call with a share count different
// from n, a duplicate party, or a missing value is a fatal protocol
// error, never a silently partial result.
func Reconstruct(fld field.Field, shares []Share, n int) (
	field.Element, error) {

	if len(shares) != n {
		return nil, fmt.Errorf("%w: reconstruct from %d shares, need %d",
			cosnark.ErrProtocol, len(shares), n)
	}
	seen := make([]bool, n)
	sum := fld.Zero()
	for _, s := range shares {
		if s.Party < 0 || s.Party >= n {
			return nil, fmt.Errorf("%w: share of party %d outside 0..%d",
				cosnark.ErrProtocol, s.Party, n-1)
		}
		if seen[s.Party] {
			return nil, fmt.Errorf("%w: duplicate share of party %d",
				cosnark.ErrProtocol, s.Party)
		}
		if s.V == nil {
			return nil, fmt.Errorf("%w: missing share value of party %d",
				cosnark.ErrProtocol, s.Party)
		}
		seen[s.Party] = true
		sum = fld.Add(sum, s.V)
	}
	return sum, nil
}

// Add adds two shares of the same party. The result is a share of the
// sum of the underlying secrets. Local, no communication.
func Add(fld field.Field, a, b Share) Share {
	samePartyCheck(a, b)
	return Share{Party: a.Party, V: fld.Add(a.V, b.V)}
}

// Sub subtracts share b from share a of the same party.
func Sub(fld field.Field, a, b Share) Share {
	samePartyCheck(a, b)
	return Share{Party: a.Party, V: fld.Sub(a.V, b.V)}
}

// Scale multiplies a share by a public constant.
func Scale(fld field.Field, a Share, k field.Element) Share {
	return Share{Party: a.Party, V: fld.Mul(a.V, k)}
}

// Neg negates a share.
func Neg(fld field.Field, a Share) Share {
	return Share{Party: a.Party, V: fld.Neg(a.V)}
}

// AddPublic adds a public constant to a shared value. Only party 0
// adjusts its share so the constant enters the sum exactly once.
func AddPublic(fld field.Field, a Share, k field.Element) Share {
	if a.Party != 0 {
		return a
	}
	return Share{Party: 0, V: fld.Add(a.V, k)}
}

// SubPublic subtracts a public constant from a shared value using the
// party-0 convention.
func SubPublic(fld field.Field, a Share, k field.Element) Share {
	if a.Party != 0 {
		return a
	}
	return Share{Party: 0, V: fld.Sub(a.V, k)}
}

// Random returns the party's share of an unknown uniformly random
// value: every party drawing its share uniformly at random makes the
// reconstructed sum uniform. Local, no communication.
func Random(fld field.Field, rng io.Reader, party int) (Share, error) {
	v, err := fld.Random(rng)
	if err != nil {
		return Share{}, err
	}
	return Share{Party: party, V: v}, nil
}

// samePartyCheck panics on mismatched parties: combining shares held
// by different parties is a programmer error, not a runtime condition.
func samePartyCheck(a, b Share) {
	if a.Party != b.Party {
		panic(fmt.Sprintf("share: party mismatch %d vs %d",
			a.Party, b.Party))
	}
}
