//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

// Package beaver implements multiplication triples: correlated random
// tuples (a, b, c) with c = a*b mod p, distributed as shares so that
// no party knows the plaintext values. One triple is consumed per
// secure multiplication and never reused. The generation mechanism is
// abstracted behind Source; this package provides a trusted dealer for
// tests and offline preprocessing.
package beaver

import (
	"fmt"
	"sync"

	"github.com/markkurossi/cosnark"
	"github.com/markkurossi/cosnark/share"
)

// Triple is one party's shares of a multiplication triple.
type Triple struct {
	A share.Share
	B share.Share
	C share.Share
}

// Source supplies one party's triple shares on demand.
type Source interface {
	// Next returns the next unused triple. It fails with
	// cosnark.ErrTripleExhausted when the supply runs out.
	Next() (Triple, error)
}

// Pool is a Source backed by a pre-dealt slice of triples.
type Pool struct {
	m       sync.Mutex
	triples []Triple
	used    int
}

// NewPool creates a pool over the dealt triples.
func NewPool(triples []Triple) *Pool {
	return &Pool{
		triples: triples,
	}
}

// Next implements Source.Next.
func (p *Pool) Next() (Triple, error) {
	p.m.Lock()
	defer p.m.Unlock()

	if p.used >= len(p.triples) {
		return Triple{}, fmt.Errorf("%w: %d triples dealt",
			cosnark.ErrTripleExhausted, len(p.triples))
	}
	t := p.triples[p.used]
	p.used++
	return t, nil
}

// Remaining returns the number of unused triples.
func (p *Pool) Remaining() int {
	p.m.Lock()
	defer p.m.Unlock()

	return len(p.triples) - p.used
}
