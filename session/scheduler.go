//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package session

import (
	"encoding/binary"
	"fmt"
	"runtime"
	"sync"

	"golang.org/x/crypto/blake2b"

	"github.com/markkurossi/cosnark"
	"github.com/markkurossi/cosnark/beaver"
	"github.com/markkurossi/cosnark/field"
	"github.com/markkurossi/cosnark/share"
)

// Frame kinds. Every frame is one transport message; the kind byte
// catches request streams that have fallen out of step.
const (
	frameRound byte = 1
	frameInput byte = 2
	frameClose byte = 3
)

const (
	digestLen = 8

	// roundHeaderLen is kind + round + digest + nmul + nopen.
	roundHeaderLen = 1 + 4 + digestLen + 4 + 4

	// parallelThreshold is the batch size above which the
	// CPU-bound share arithmetic is spread over a worker pool.
	parallelThreshold = 256
)

// pendingMul is one queued multiplication: the consumed triple and
// this party's shares of the masked values d = x - a, e = y - b.
type pendingMul struct {
	t        beaver.Triple
	d        share.Share
	e        share.Share
	resolved bool
	result   share.Share
}

type pendingOpen struct {
	x        share.Share
	resolved bool
	value    field.Element
}

// Product is a handle to a queued multiplication. Reading the result
// forces a flush of the current round.
type Product struct {
	s *Session
	p *pendingMul
}

// Share returns the party's share of the product, flushing the
// pending round if the result has not been resolved yet.
func (p *Product) Share() (share.Share, error) {
	if !p.p.resolved {
		if err := p.s.Flush(); err != nil {
			return share.Share{}, err
		}
	}
	return p.p.result, nil
}

// Opening is a handle to a queued open. Reading the value forces a
// flush of the current round.
type Opening struct {
	s *Session
	o *pendingOpen
}

// Value returns the opened plaintext, flushing the pending round if
// the value has not been resolved yet.
func (o *Opening) Value() (field.Element, error) {
	if !o.o.resolved {
		if err := o.s.Flush(); err != nil {
			return nil, err
		}
	}
	return o.o.value, nil
}

// QueueMul queues the multiplication of two shared values into the
// current round. One triple is consumed immediately and never
// reused; a depleted triple source fails the session with
// cosnark.ErrTripleExhausted.
func (s *Session) QueueMul(x, y share.Share) (*Product, error) {
	if s.failed != nil {
		return nil, s.failed
	}
	s.own(x)
	s.own(y)

	t, err := s.triples.Next()
	if err != nil {
		return nil, s.fail(err)
	}
	s.consumed++

	p := &pendingMul{
		t: t,
		d: share.Sub(s.fld, x, t.A),
		e: share.Sub(s.fld, y, t.B),
	}
	s.muls = append(s.muls, p)
	return &Product{s: s, p: p}, nil
}

// QueueOpen queues a shared value for opening in the current round.
func (s *Session) QueueOpen(x share.Share) (*Opening, error) {
	if s.failed != nil {
		return nil, s.failed
	}
	s.own(x)

	o := &pendingOpen{
		x: x,
	}
	s.opens = append(s.opens, o)
	return &Opening{s: s, o: o}, nil
}

// Flush resolves all queued multiplications and opens in one network
// round: the masked d, e shares of every queued multiplication and
// the shares of every queued open travel in a single broadcast, and
// all results are resolved together. This batching is the engine's
// principal performance lever: K multiplications flushed together
// cost one round, not K.
func (s *Session) Flush() error {
	if s.failed != nil {
		return s.failed
	}
	nmul := len(s.muls)
	nopen := len(s.opens)
	if nmul == 0 && nopen == 0 {
		return nil
	}
	muls := s.muls
	opens := s.opens
	s.muls = nil
	s.opens = nil

	replies, err := s.nw.Broadcast(s.roundPayload(muls, opens))
	if err != nil {
		return s.fail(err)
	}

	// Sum the shares: start from our own and fold in every peer's.
	ds := make([]field.Element, nmul)
	es := make([]field.Element, nmul)
	vs := make([]field.Element, nopen)
	for i, p := range muls {
		ds[i] = p.d.V
		es[i] = p.e.V
	}
	for i, o := range opens {
		vs[i] = o.x.V
	}
	for id, reply := range replies {
		if err := s.foldRound(id, reply, ds, es, vs); err != nil {
			return s.fail(err)
		}
	}

	// Beaver recombination: z = c + d*b + e*a + d*e where the d*e
	// constant enters the sum once via the party-0 convention.
	self := s.ID()
	recombine := func(lo, hi int) {
		for i := lo; i < hi; i++ {
			t := muls[i].t
			z := s.fld.Add(t.C.V, s.fld.Add(
				s.fld.Mul(ds[i], t.B.V),
				s.fld.Mul(es[i], t.A.V)))
			if self == 0 {
				z = s.fld.Add(z, s.fld.Mul(ds[i], es[i]))
			}
			muls[i].result = share.Share{Party: self, V: z}
			muls[i].resolved = true
		}
	}
	if nmul >= parallelThreshold {
		parallelFor(nmul, recombine)
	} else {
		recombine(0, nmul)
	}

	for i, o := range opens {
		o.value = vs[i]
		o.resolved = true
	}

	s.digest = roundDigest(ds, es, vs)
	s.round++
	return nil
}

// roundPayload builds the round frame: header plus the fixed-width
// canonical encodings of the batch, d and e shares first, then the
// open shares.
func (s *Session) roundPayload(
	muls []*pendingMul, opens []*pendingOpen) []byte {

	size := roundHeaderLen + (2*len(muls)+len(opens))*s.fld.Size()
	buf := make([]byte, 0, size)
	buf = append(buf, frameRound)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(s.round))
	buf = append(buf, s.digest[:]...)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(muls)))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(opens)))
	for _, p := range muls {
		buf = append(buf, p.d.V.Bytes()...)
		buf = append(buf, p.e.V.Bytes()...)
	}
	for _, o := range opens {
		buf = append(buf, o.x.V.Bytes()...)
	}
	return buf
}

// foldRound validates a peer's round frame and folds its shares into
// the running sums.
func (s *Session) foldRound(from int, data []byte,
	ds, es, vs []field.Element) error {

	r := frameReader{data: data}
	kind, err := r.u8()
	if err != nil {
		return frameErr(from, err)
	}
	if kind != frameRound {
		return frameErr(from, fmt.Errorf("%w: frame kind %d, expected %d",
			cosnark.ErrProtocol, kind, frameRound))
	}
	round, err := r.u32()
	if err != nil {
		return frameErr(from, err)
	}
	if round != s.round {
		return frameErr(from, fmt.Errorf("%w: round %d, expected %d",
			cosnark.ErrProtocol, round, s.round))
	}
	digest, err := r.bytes(digestLen)
	if err != nil {
		return frameErr(from, err)
	}
	if [digestLen]byte(digest) != s.digest {
		return fmt.Errorf("%w: party %d disagrees on round %d transcript",
			cosnark.ErrReconstructionMismatch, from, s.round)
	}
	nmul, err := r.u32()
	if err != nil {
		return frameErr(from, err)
	}
	nopen, err := r.u32()
	if err != nil {
		return frameErr(from, err)
	}
	if nmul != len(ds) || nopen != len(vs) {
		return frameErr(from, fmt.Errorf(
			"%w: batch %d muls + %d opens, expected %d + %d",
			cosnark.ErrProtocol, nmul, nopen, len(ds), len(vs)))
	}
	for i := 0; i < nmul; i++ {
		d, err := r.element(s.fld)
		if err != nil {
			return frameErr(from, err)
		}
		e, err := r.element(s.fld)
		if err != nil {
			return frameErr(from, err)
		}
		ds[i] = s.fld.Add(ds[i], d)
		es[i] = s.fld.Add(es[i], e)
	}
	for i := 0; i < nopen; i++ {
		v, err := r.element(s.fld)
		if err != nil {
			return frameErr(from, err)
		}
		vs[i] = s.fld.Add(vs[i], v)
	}
	if !r.empty() {
		return frameErr(from, fmt.Errorf("%w: %d trailing bytes",
			cosnark.ErrProtocol, r.remaining()))
	}
	return nil
}

// InputBatch shares the owner's plaintext inputs among all parties.
// The owner splits every secret and delivers one share of each to
// every party; the other parties receive their shares. Only the
// owner's secrets argument is used; the result length follows the
// owner's batch.
func (s *Session) InputBatch(owner int, secrets []field.Element) (
	[]share.Share, error) {

	if s.failed != nil {
		return nil, s.failed
	}
	if owner < 0 || owner >= s.NumParties() {
		return nil, fmt.Errorf("%w: input owner %d outside 0..%d",
			cosnark.ErrProtocol, owner, s.NumParties()-1)
	}
	if s.ID() != owner {
		return s.receiveInput(owner)
	}

	count := len(secrets)
	splits := make([][]share.Share, count)
	for i, secret := range secrets {
		sh, err := s.Split(secret)
		if err != nil {
			return nil, err
		}
		splits[i] = sh
	}
	for id := 0; id < s.NumParties(); id++ {
		if id == owner {
			continue
		}
		buf := make([]byte, 0, 5+count*s.fld.Size())
		buf = append(buf, frameInput)
		buf = binary.LittleEndian.AppendUint32(buf, uint32(count))
		for i := 0; i < count; i++ {
			buf = append(buf, splits[i][id].V.Bytes()...)
		}
		if err := s.nw.SendTo(id, buf); err != nil {
			return nil, s.fail(err)
		}
	}
	result := make([]share.Share, count)
	for i := 0; i < count; i++ {
		result[i] = splits[i][owner]
	}
	return result, nil
}

func (s *Session) receiveInput(owner int) ([]share.Share, error) {
	data, err := s.nw.RecvFrom(owner)
	if err != nil {
		return nil, s.fail(err)
	}
	r := frameReader{data: data}
	kind, err := r.u8()
	if err != nil {
		return nil, s.fail(frameErr(owner, err))
	}
	if kind != frameInput {
		return nil, s.fail(frameErr(owner, fmt.Errorf(
			"%w: frame kind %d, expected %d",
			cosnark.ErrProtocol, kind, frameInput)))
	}
	count, err := r.u32()
	if err != nil {
		return nil, s.fail(frameErr(owner, err))
	}
	result := make([]share.Share, count)
	for i := 0; i < count; i++ {
		v, err := r.element(s.fld)
		if err != nil {
			return nil, s.fail(frameErr(owner, err))
		}
		result[i] = share.Share{Party: s.ID(), V: v}
	}
	if !r.empty() {
		return nil, s.fail(frameErr(owner, fmt.Errorf(
			"%w: %d trailing bytes", cosnark.ErrProtocol, r.remaining())))
	}
	return result, nil
}

// exchangeCloseDigest runs the final transcript cross-check of a
// clean session close.
func (s *Session) exchangeCloseDigest() error {
	buf := make([]byte, 0, 1+4+digestLen)
	buf = append(buf, frameClose)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(s.round))
	buf = append(buf, s.digest[:]...)

	replies, err := s.nw.Broadcast(buf)
	if err != nil {
		return err
	}
	for id, reply := range replies {
		r := frameReader{data: reply}
		kind, err := r.u8()
		if err != nil {
			return frameErr(id, err)
		}
		if kind != frameClose {
			return frameErr(id, fmt.Errorf(
				"%w: frame kind %d, expected %d",
				cosnark.ErrProtocol, kind, frameClose))
		}
		round, err := r.u32()
		if err != nil {
			return frameErr(id, err)
		}
		digest, err := r.bytes(digestLen)
		if err != nil {
			return frameErr(id, err)
		}
		if round != s.round || [digestLen]byte(digest) != s.digest {
			return fmt.Errorf(
				"%w: party %d disagrees on final transcript",
				cosnark.ErrReconstructionMismatch, id)
		}
	}
	return nil
}

// roundDigest hashes the round's opened values. The digest travels
// in the next round's frames (and the close frame) so that parties
// reconstructing different values fail instead of diverging.
func roundDigest(ds, es, vs []field.Element) [digestLen]byte {
	h, err := blake2b.New256(nil)
	if err != nil {
		panic(err)
	}
	for i := range ds {
		h.Write(ds[i].Bytes())
		h.Write(es[i].Bytes())
	}
	for i := range vs {
		h.Write(vs[i].Bytes())
	}
	var digest [digestLen]byte
	copy(digest[:], h.Sum(nil))
	return digest
}

func frameErr(from int, err error) error {
	return fmt.Errorf("party %d: %w", from, err)
}

// frameReader walks a received frame payload.
type frameReader struct {
	data []byte
	pos  int
}

func (r *frameReader) u8() (byte, error) {
	if r.pos+1 > len(r.data) {
		return 0, fmt.Errorf("%w: truncated frame", cosnark.ErrProtocol)
	}
	v := r.data[r.pos]
	r.pos++
	return v, nil
}

func (r *frameReader) u32() (int, error) {
	if r.pos+4 > len(r.data) {
		return 0, fmt.Errorf("%w: truncated frame", cosnark.ErrProtocol)
	}
	v := binary.LittleEndian.Uint32(r.data[r.pos:])
	r.pos += 4
	return int(v), nil
}

func (r *frameReader) bytes(n int) ([]byte, error) {
	if r.pos+n > len(r.data) {
		return nil, fmt.Errorf("%w: truncated frame", cosnark.ErrProtocol)
	}
	v := r.data[r.pos : r.pos+n]
	r.pos += n
	return v, nil
}

func (r *frameReader) element(fld field.Field) (field.Element, error) {
	data, err := r.bytes(fld.Size())
	if err != nil {
		return nil, err
	}
	return fld.Decode(data)
}

func (r *frameReader) empty() bool {
	return r.pos == len(r.data)
}

func (r *frameReader) remaining() int {
	return len(r.data) - r.pos
}

// parallelFor distributes the index range over a worker pool sized
// by the CPU count. The share arithmetic of a large batch is
// embarrassingly parallel and independent of the network tasks.
func parallelFor(n int, f func(lo, hi int)) {
	workers := runtime.NumCPU()
	if workers > n {
		workers = n
	}
	if workers <= 1 {
		f(0, n)
		return
	}
	chunk := (n + workers - 1) / workers

	var wg sync.WaitGroup
	for lo := 0; lo < n; lo += chunk {
		hi := min(lo+chunk, n)
		wg.Add(1)
		go func(lo, hi int) {
			defer wg.Done()
			f(lo, hi)
		}(lo, hi)
	}
	wg.Wait()
}
