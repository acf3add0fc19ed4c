//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package p2p

import (
	"io"
	"sync/atomic"
	"time"

	"github.com/markkurossi/cosnark/field"
)

const (
	numBuffers   = 3
	writeBufSize = 64 * 1024
	readBufSize  = 1024 * 1024
)

// Conn implements a protocol connection. Each message on the wire is
// a 4-byte little-endian length prefix followed by that many payload
// bytes. Writes are handed to a dedicated writer task so that one
// buffer can be filled while the previous one drains; the writer task
// is the single writer of the underlying connection.
type Conn struct {
	conn      io.ReadWriter
	Timeout   time.Duration
	WriteBuf  []byte
	WritePos  int
	ReadBuf   []byte
	ReadStart int
	ReadEnd   int
	Stats     IOStats

	fromWriter chan writeResult
	toWriter   chan []byte
	flushErr   error
}

// writeResult returns a drained buffer to the pool together with the
// outcome of its write, so the error travels over the same handoff as
// the buffer instead of a shared field.
type writeResult struct {
	buf []byte
	err error
}

type readDeadliner interface {
	SetReadDeadline(t time.Time) error
}

// IOStats implements I/O statistics.
type IOStats struct {
	Sent    *atomic.Uint64
	Recvd   *atomic.Uint64
	Flushed *atomic.Uint64
}

// NewIOStats creates a new I/O statistics object.
func NewIOStats() IOStats {
	return IOStats{
		Sent:    new(atomic.Uint64),
		Recvd:   new(atomic.Uint64),
		Flushed: new(atomic.Uint64),
	}
}

// Add adds the argument stats to this IOStats and returns the sum.
func (stats IOStats) Add(o IOStats) IOStats {
	sent := new(atomic.Uint64)
	sent.Store(stats.Sent.Load() + o.Sent.Load())

	recvd := new(atomic.Uint64)
	recvd.Store(stats.Recvd.Load() + o.Recvd.Load())

	flushed := new(atomic.Uint64)
	flushed.Store(stats.Flushed.Load() + o.Flushed.Load())

	return IOStats{
		Sent:    sent,
		Recvd:   recvd,
		Flushed: flushed,
	}
}

// Sum returns sum of sent and received bytes.
func (stats IOStats) Sum() uint64 {
	return stats.Sent.Load() + stats.Recvd.Load()
}

// NewConn creates a new connection around the argument connection.
func NewConn(conn io.ReadWriter) *Conn {
	c := &Conn{
		conn:       conn,
		ReadBuf:    make([]byte, readBufSize),
		fromWriter: make(chan writeResult, numBuffers),
		toWriter:   make(chan []byte, numBuffers),
		Stats:      NewIOStats(),
	}

	go c.writer()

	c.WriteBuf = (<-c.fromWriter).buf

	return c
}

func (c *Conn) writer() {
	for i := 0; i < numBuffers; i++ {
		c.fromWriter <- writeResult{
			buf: make([]byte, writeBufSize),
		}
	}

	for buf := range c.toWriter {
		_, err := c.conn.Write(buf)
		c.fromWriter <- writeResult{
			buf: buf[0:cap(buf)],
			err: err,
		}
	}
	close(c.fromWriter)
}

// Flush flushes any pending data in the connection. A write error is
// sticky: it may surface on a later flush than the one that queued the
// failing buffer, and every flush after that returns it.
func (c *Conn) Flush() error {
	if c.flushErr != nil {
		return c.flushErr
	}
	if c.WritePos > 0 {
		c.Stats.Sent.Add(uint64(c.WritePos))
		c.toWriter <- c.WriteBuf[0:c.WritePos]

		next := <-c.fromWriter
		c.WriteBuf = next.buf
		c.WritePos = 0
		if next.err != nil {
			c.flushErr = next.err
			return c.flushErr
		}
		c.Stats.Flushed.Add(1)
	}
	return nil
}

// Fill fills the input buffer so that at least n bytes are buffered.
// Any unused data in the buffer is moved to the beginning of the
// buffer. The argument must not exceed the read buffer size.
func (c *Conn) Fill(n int) error {
	if c.ReadStart < c.ReadEnd {
		copy(c.ReadBuf[0:], c.ReadBuf[c.ReadStart:c.ReadEnd])
		c.ReadEnd -= c.ReadStart
		c.ReadStart = 0
	} else {
		c.ReadStart = 0
		c.ReadEnd = 0
	}
	for c.ReadStart+n > c.ReadEnd {
		if c.Timeout > 0 {
			if d, ok := c.conn.(readDeadliner); ok {
				d.SetReadDeadline(time.Now().Add(c.Timeout))
			}
		}
		got, err := c.conn.Read(c.ReadBuf[c.ReadEnd:])
		if err != nil {
			return err
		}
		c.Stats.Recvd.Add(uint64(got))
		c.ReadEnd += got
	}
	return nil
}

// Close flushes any pending data and closes the connection.
func (c *Conn) Close() error {
	err := c.Flush()

	// Stop the writer and drain its results so every queued write
	// has completed before the connection closes.
	close(c.toWriter)
	for res := range c.fromWriter {
		if err == nil {
			err = res.err
		}
	}
	if err != nil {
		return err
	}
	closer, ok := c.conn.(io.Closer)
	if ok {
		return closer.Close()
	}
	return nil
}

// SendByte sends a byte value.
func (c *Conn) SendByte(val byte) error {
	if c.WritePos+1 > len(c.WriteBuf) {
		if err := c.Flush(); err != nil {
			return err
		}
	}
	c.WriteBuf[c.WritePos] = val
	c.WritePos++
	return nil
}

// SendUint32 sends an uint32 value in little-endian byte order.
func (c *Conn) SendUint32(val int) error {
	if c.WritePos+4 > len(c.WriteBuf) {
		if err := c.Flush(); err != nil {
			return err
		}
	}
	c.WriteBuf[c.WritePos+0] = byte(uint32(val) & 0xff)
	c.WriteBuf[c.WritePos+1] = byte((uint32(val) >> 8) & 0xff)
	c.WriteBuf[c.WritePos+2] = byte((uint32(val) >> 16) & 0xff)
	c.WriteBuf[c.WritePos+3] = byte((uint32(val) >> 24) & 0xff)
	c.WritePos += 4
	return nil
}

// SendData sends a message: the little-endian length prefix followed
// by the payload bytes. Payloads larger than the write buffer are
// flushed in chunks.
func (c *Conn) SendData(val []byte) error {
	if err := c.SendUint32(len(val)); err != nil {
		return err
	}
	return c.sendBytes(val)
}

// SendElement sends the canonical encoding of a field element with no
// per-element length prefix; the element width is fixed by the field.
func (c *Conn) SendElement(val field.Element) error {
	return c.sendBytes(val.Bytes())
}

func (c *Conn) sendBytes(val []byte) error {
	for len(val) > 0 {
		if c.WritePos >= len(c.WriteBuf) {
			if err := c.Flush(); err != nil {
				return err
			}
		}
		n := copy(c.WriteBuf[c.WritePos:], val)
		c.WritePos += n
		val = val[n:]
	}
	return nil
}

// ReceiveByte receives a byte value.
func (c *Conn) ReceiveByte() (byte, error) {
	if c.ReadStart+1 > c.ReadEnd {
		if err := c.Fill(1); err != nil {
			return 0, err
		}
	}
	val := c.ReadBuf[c.ReadStart]
	c.ReadStart++
	return val, nil
}

// ReceiveUint32 receives an uint32 value in little-endian byte order.
func (c *Conn) ReceiveUint32() (int, error) {
	if c.ReadStart+4 > c.ReadEnd {
		if err := c.Fill(4); err != nil {
			return 0, err
		}
	}
	val := uint32(c.ReadBuf[c.ReadStart+3])
	val <<= 8
	val |= uint32(c.ReadBuf[c.ReadStart+2])
	val <<= 8
	val |= uint32(c.ReadBuf[c.ReadStart+1])
	val <<= 8
	val |= uint32(c.ReadBuf[c.ReadStart+0])
	c.ReadStart += 4

	return int(val), nil
}

// ReceiveData receives a length-prefixed message.
func (c *Conn) ReceiveData() ([]byte, error) {
	n, err := c.ReceiveUint32()
	if err != nil {
		return nil, err
	}
	result := make([]byte, n)
	if err := c.receiveBytes(result); err != nil {
		return nil, err
	}
	return result, nil
}

// ReceiveElement receives the canonical encoding of a field element.
func (c *Conn) ReceiveElement(fld field.Field) (field.Element, error) {
	buf := make([]byte, fld.Size())
	if err := c.receiveBytes(buf); err != nil {
		return nil, err
	}
	return fld.Decode(buf)
}

func (c *Conn) receiveBytes(buf []byte) error {
	var pos int
	for pos < len(buf) {
		if c.ReadStart >= c.ReadEnd {
			if err := c.Fill(1); err != nil {
				return err
			}
		}
		n := copy(buf[pos:], c.ReadBuf[c.ReadStart:c.ReadEnd])
		c.ReadStart += n
		pos += n
	}
	return nil
}
