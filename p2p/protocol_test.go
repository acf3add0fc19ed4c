//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package p2p

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/markkurossi/cosnark/field/bn254"
)

func TestSendReceive(t *testing.T) {
	a, b := Pipe()

	payload := make([]byte, 200*1024)
	for i := range payload {
		payload[i] = byte(i)
	}

	go func() {
		if err := a.SendByte(42); err != nil {
			t.Error(err)
		}
		if err := a.SendUint32(0x01020304); err != nil {
			t.Error(err)
		}
		if err := a.SendData([]byte("hello")); err != nil {
			t.Error(err)
		}
		if err := a.SendData(payload); err != nil {
			t.Error(err)
		}
		if err := a.Flush(); err != nil {
			t.Error(err)
		}
	}()

	v, err := b.ReceiveByte()
	if err != nil {
		t.Fatal(err)
	}
	if v != 42 {
		t.Errorf("ReceiveByte: got %d", v)
	}

	u, err := b.ReceiveUint32()
	if err != nil {
		t.Fatal(err)
	}
	if u != 0x01020304 {
		t.Errorf("ReceiveUint32: got %x", u)
	}

	data, err := b.ReceiveData()
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "hello" {
		t.Errorf("ReceiveData: got %q", data)
	}

	// Payloads larger than the write buffer.
	data, err = b.ReceiveData()
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(data, payload) {
		t.Errorf("ReceiveData: large payload corrupted")
	}
}

func TestWireFormat(t *testing.T) {
	var buf bytes.Buffer

	c := NewConn(&buf)
	if err := c.SendData([]byte{0xaa, 0xbb, 0xcc}); err != nil {
		t.Fatal(err)
	}
	// Close drains the writer so the buffer can be inspected.
	if err := c.Close(); err != nil {
		t.Fatal(err)
	}

	expected := []byte{3, 0, 0, 0, 0xaa, 0xbb, 0xcc}
	if !bytes.Equal(buf.Bytes(), expected) {
		t.Errorf("wire format: got %x, expected %x", buf.Bytes(), expected)
	}
}

func TestSendReceiveElement(t *testing.T) {
	fld := bn254.New()
	a, b := Pipe()

	e := fld.FromUint64(0xdeadbeef)

	go func() {
		if err := a.SendElement(e); err != nil {
			t.Error(err)
		}
		if err := a.Flush(); err != nil {
			t.Error(err)
		}
	}()

	got, err := b.ReceiveElement(fld)
	if err != nil {
		t.Fatal(err)
	}
	if !got.Equal(e) {
		t.Errorf("element round-trip: got %v, expected %v", got, e)
	}
	if b.Stats.Recvd.Load() != uint64(fld.Size()) {
		t.Errorf("element framing: received %d bytes, expected %d",
			b.Stats.Recvd.Load(), fld.Size())
	}
}

type failWriter struct {
	err error
}

func (w *failWriter) Read(p []byte) (int, error) {
	return 0, io.EOF
}

func (w *failWriter) Write(p []byte) (int, error) {
	return 0, w.err
}

func TestWriterError(t *testing.T) {
	werr := errors.New("write failed")
	c := NewConn(&failWriter{err: werr})

	// The error travels back with a drained buffer, so it can
	// surface up to numBuffers flushes after the failing one.
	var err error
	for i := 0; i < numBuffers+1 && err == nil; i++ {
		if err = c.SendByte(1); err != nil {
			break
		}
		err = c.Flush()
	}
	if !errors.Is(err, werr) {
		t.Fatalf("Flush: got %v, expected %v", err, werr)
	}

	// The failure is sticky.
	if err := c.Flush(); !errors.Is(err, werr) {
		t.Errorf("repeated Flush: got %v, expected %v", err, werr)
	}
	if err := c.Close(); !errors.Is(err, werr) {
		t.Errorf("Close: got %v, expected %v", err, werr)
	}
}

func TestStats(t *testing.T) {
	a, b := Pipe()

	go func() {
		a.SendData([]byte("ping"))
		a.Flush()
	}()

	if _, err := b.ReceiveData(); err != nil {
		t.Fatal(err)
	}
	if a.Stats.Sent.Load() != 8 {
		t.Errorf("sent %d bytes, expected 8", a.Stats.Sent.Load())
	}
	if a.Stats.Flushed.Load() != 1 {
		t.Errorf("flushed %d times, expected 1", a.Stats.Flushed.Load())
	}
	if b.Stats.Recvd.Load() != 8 {
		t.Errorf("received %d bytes, expected 8", b.Stats.Recvd.Load())
	}
}
