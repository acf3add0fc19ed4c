//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package beaver

import (
	"fmt"
	"io"

	"github.com/markkurossi/cosnark/field"
	"github.com/markkurossi/cosnark/share"
)

// Dealer generates multiplication triples for n parties from a local
// randomness source. The dealer sees the plaintext triple values, so
// it must run offline on a trusted host, never inside a party process
// of a live session.
type Dealer struct {
	fld field.Field
	rng io.Reader
	n   int
}

// NewDealer creates a triple dealer for n parties.
func NewDealer(fld field.Field, rng io.Reader, n int) (*Dealer, error) {
	if n < 2 {
		return nil, fmt.Errorf("beaver: dealing for %d parties", n)
	}
	return &Dealer{
		fld: fld,
		rng: rng,
		n:   n,
	}, nil
}

// Deal generates count triples and returns each party's shares:
// result[party][i] is party's share of triple i.
func (d *Dealer) Deal(count int) ([][]Triple, error) {
	result := make([][]Triple, d.n)
	for i := 0; i < d.n; i++ {
		result[i] = make([]Triple, count)
	}
	for i := 0; i < count; i++ {
		a, err := d.fld.Random(d.rng)
		if err != nil {
			return nil, err
		}
		b, err := d.fld.Random(d.rng)
		if err != nil {
			return nil, err
		}
		c := d.fld.Mul(a, b)

		as, err := share.Split(d.fld, d.rng, a, d.n)
		if err != nil {
			return nil, err
		}
		bs, err := share.Split(d.fld, d.rng, b, d.n)
		if err != nil {
			return nil, err
		}
		cs, err := share.Split(d.fld, d.rng, c, d.n)
		if err != nil {
			return nil, err
		}
		for party := 0; party < d.n; party++ {
			result[party][i] = Triple{
				A: as[party],
				B: bs[party],
				C: cs[party],
			}
		}
	}
	return result, nil
}

// Pools deals count triples and wraps each party's slice into a Pool.
func (d *Dealer) Pools(count int) ([]*Pool, error) {
	dealt, err := d.Deal(count)
	if err != nil {
		return nil, err
	}
	pools := make([]*Pool, d.n)
	for i, triples := range dealt {
		pools[i] = NewPool(triples)
	}
	return pools, nil
}
