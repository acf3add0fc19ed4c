//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package p2p

import (
	"io"
	"time"
)

// Pipe implements the Conn interface as a bidirectional communication
// pipe. Anything sent to the first endpoint can be received from the
// second and vice versa.
func Pipe() (*Conn, *Conn) {
	var p0, p1 pipe

	p0.r, p1.w = io.Pipe()
	p1.r, p0.w = io.Pipe()

	return NewConn(&p0), NewConn(&p1)
}

// PipeMesh creates n fully connected in-memory networks, one per
// party. The mesh carries no TLS and no deadlines; it exists for
// in-process tests and demos.
func PipeMesh(n int, timeout time.Duration) []*Network {
	nets := make([]*Network, n)
	for i := 0; i < n; i++ {
		nets[i] = &Network{
			id:      i,
			n:       n,
			peers:   make(map[int]*Peer),
			timeout: timeout,
		}
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			a, b := Pipe()
			a.Timeout = timeout
			b.Timeout = timeout
			nets[i].peers[j] = &Peer{
				id:   j,
				conn: a,
			}
			nets[j].peers[i] = &Peer{
				id:   i,
				conn: b,
			}
		}
	}
	return nets
}

type pipe struct {
	r *io.PipeReader
	w *io.PipeWriter
}

func (p *pipe) Close() error {
	if err := p.r.Close(); err != nil {
		return err
	}
	return p.w.Close()
}

func (p *pipe) Read(data []byte) (n int, err error) {
	return p.r.Read(data)
}

func (p *pipe) Write(data []byte) (n int, err error) {
	return p.w.Write(data)
}
