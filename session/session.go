//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

// Package session implements the party runtime of the collaborative
// proving engine. A Session owns the party's peer channels, the
// multiplication triple source, and the round counter, and exposes
// the secret-sharing capability set to the protocols built on top of
// it: share, add, scale, mul, open, and randomShare. Local operations
// resolve immediately; interactive operations are queued and resolved
// in batched network rounds by the round scheduler.
//
// The protocol is semi-honest: parties may crash but are assumed not
// to cheat. Any interactive failure is fatal for the session; there
// is no partial recovery, since a partially completed round has no
// well-defined secure continuation.
package session

import (
	"crypto/rand"
	"fmt"
	"io"

	"github.com/markkurossi/cosnark"
	"github.com/markkurossi/cosnark/beaver"
	"github.com/markkurossi/cosnark/field"
	"github.com/markkurossi/cosnark/p2p"
	"github.com/markkurossi/cosnark/share"
)

// Session is one party's view of a proving run. A Session is created
// when the run begins and closed when it completes or aborts; shares
// and triples never outlive their session. The methods are not safe
// for concurrent use: downstream protocols issue their request stream
// from a single task and rely on the scheduler for parallelism.
type Session struct {
	fld      field.Field
	nw       *p2p.Network
	triples  beaver.Source
	rng      io.Reader
	round    int
	digest   [digestLen]byte
	muls     []*pendingMul
	opens    []*pendingOpen
	consumed int
	failed   error
	closed   bool
}

// New creates a session over the connected network. The network must
// not be shared with any other session.
func New(nw *p2p.Network, fld field.Field, triples beaver.Source) (
	*Session, error) {

	if nw == nil || fld == nil || triples == nil {
		return nil, fmt.Errorf("%w: incomplete session configuration",
			cosnark.ErrProtocol)
	}
	return &Session{
		fld:     fld,
		nw:      nw,
		triples: triples,
		rng:     rand.Reader,
	}, nil
}

// ID returns this party's id.
func (s *Session) ID() int {
	return s.nw.ID()
}

// NumParties returns the number of parties in the session.
func (s *Session) NumParties() int {
	return s.nw.NumParties()
}

// Field returns the active prime field.
func (s *Session) Field() field.Field {
	return s.fld
}

// Rounds returns the number of completed communication rounds.
func (s *Session) Rounds() int {
	return s.round
}

// TriplesUsed returns the number of multiplication triples consumed.
func (s *Session) TriplesUsed() int {
	return s.consumed
}

// Stats returns the I/O statistics of the party's peer channels.
func (s *Session) Stats() p2p.IOStats {
	return s.nw.Stats()
}

// Split splits a plaintext value into one share per party. Local, no
// communication; distributing the shares is the caller's concern (see
// Input for the usual pattern).
func (s *Session) Split(secret field.Element) ([]share.Share, error) {
	return share.Split(s.fld, s.rng, secret, s.NumParties())
}

// Reconstruct recovers a secret from the shares of all parties. Pure
// local computation on explicitly opened values.
func (s *Session) Reconstruct(shares []share.Share) (field.Element, error) {
	return share.Reconstruct(s.fld, shares, s.NumParties())
}

// Add adds two shared values. Local, no communication.
func (s *Session) Add(a, b share.Share) share.Share {
	return share.Add(s.fld, a, b)
}

// Sub subtracts shared value b from a. Local.
func (s *Session) Sub(a, b share.Share) share.Share {
	return share.Sub(s.fld, a, b)
}

// Scale multiplies a shared value by a public constant. Local.
func (s *Session) Scale(a share.Share, k field.Element) share.Share {
	return share.Scale(s.fld, a, k)
}

// AddPublic adds a public constant to a shared value. Local.
func (s *Session) AddPublic(a share.Share, k field.Element) share.Share {
	return share.AddPublic(s.fld, a, k)
}

// SubPublic subtracts a public constant from a shared value. Local.
func (s *Session) SubPublic(a share.Share, k field.Element) share.Share {
	return share.SubPublic(s.fld, a, k)
}

// RandomShare returns this party's share of an unknown uniformly
// random value. Local, no communication.
func (s *Session) RandomShare() (share.Share, error) {
	return share.Random(s.fld, s.rng, s.ID())
}

// Mul multiplies two shared values: one triple, one communication
// round. Callers multiplying many pairs should use MulBatch or
// QueueMul so the round cost is amortized.
func (s *Session) Mul(x, y share.Share) (share.Share, error) {
	p, err := s.QueueMul(x, y)
	if err != nil {
		return share.Share{}, err
	}
	return p.Share()
}

// MulBatch multiplies the argument pairs in a single communication
// round.
func (s *Session) MulBatch(xs, ys []share.Share) ([]share.Share, error) {
	if len(xs) != len(ys) {
		return nil, fmt.Errorf("%w: mul batch %d x %d",
			cosnark.ErrProtocol, len(xs), len(ys))
	}
	products := make([]*Product, len(xs))
	for i := range xs {
		p, err := s.QueueMul(xs[i], ys[i])
		if err != nil {
			return nil, err
		}
		products[i] = p
	}
	if err := s.Flush(); err != nil {
		return nil, err
	}
	result := make([]share.Share, len(products))
	for i, p := range products {
		z, err := p.Share()
		if err != nil {
			return nil, err
		}
		result[i] = z
	}
	return result, nil
}

// Open reveals a shared value to all parties: every party broadcasts
// its share and reconstructs independently. One communication round;
// use OpenBatch or QueueOpen to amortize.
func (s *Session) Open(x share.Share) (field.Element, error) {
	o, err := s.QueueOpen(x)
	if err != nil {
		return nil, err
	}
	return o.Value()
}

// OpenBatch reveals the argument values in a single communication
// round.
func (s *Session) OpenBatch(xs []share.Share) ([]field.Element, error) {
	openings := make([]*Opening, len(xs))
	for i, x := range xs {
		o, err := s.QueueOpen(x)
		if err != nil {
			return nil, err
		}
		openings[i] = o
	}
	if err := s.Flush(); err != nil {
		return nil, err
	}
	result := make([]field.Element, len(openings))
	for i, o := range openings {
		v, err := o.Value()
		if err != nil {
			return nil, err
		}
		result[i] = v
	}
	return result, nil
}

// Input shares the owner's plaintext input among all parties: the
// owner splits the secret and delivers one share to each party. All
// parties must call Input with the same owner at the same point of
// their request streams; only the owner's secret argument is used.
func (s *Session) Input(owner int, secret field.Element) (
	share.Share, error) {

	var secrets []field.Element
	if s.ID() == owner {
		secrets = []field.Element{secret}
	}
	shares, err := s.InputBatch(owner, secrets)
	if err != nil {
		return share.Share{}, err
	}
	if len(shares) != 1 {
		return share.Share{}, s.fail(fmt.Errorf(
			"%w: input batch of %d values from party %d, expected 1",
			cosnark.ErrProtocol, len(shares), owner))
	}
	return shares[0], nil
}

// Close tears the session down. On a clean session the parties
// exchange a final transcript digest so the last round's opened
// values are cross-checked; a disagreement surfaces as a
// reconstruction mismatch. Close never flushes still-queued
// operations.
func (s *Session) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	if s.failed != nil {
		s.nw.Close()
		return nil
	}
	err := s.exchangeCloseDigest()
	if cerr := s.nw.Close(); err == nil {
		err = cerr
	}
	return err
}

// fail poisons the session: every subsequent interactive operation
// returns the original failure.
func (s *Session) fail(err error) error {
	if s.failed == nil {
		s.failed = err
	}
	return s.failed
}

// own checks that the share belongs to this party. Handing a foreign
// share to an interactive operation is a programmer error.
func (s *Session) own(x share.Share) {
	if x.Party != s.ID() {
		panic(fmt.Sprintf("session: party %d using share of party %d",
			s.ID(), x.Party))
	}
}
