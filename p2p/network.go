//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

// Package p2p implements the point-to-point transport between the
// parties of a session: a full mesh of mutually authenticated TLS
// channels, one per party pair, with little-endian length-prefixed
// message framing. Channels are created once at session start and are
// exclusively owned by their session.
package p2p

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"log"
	"net"
	"sync"
	"time"

	"github.com/markkurossi/cosnark"
)

// DefaultTimeout is the connection establishment and per-receive
// timeout used when the configuration does not set one.
const DefaultTimeout = 30 * time.Second

const dialRetryDelay = 200 * time.Millisecond

// PartyInfo identifies one party of the session. Name must match the
// identity in the party's TLS certificate.
type PartyInfo struct {
	Name string
	Addr string
}

// Config configures the mesh for one party.
type Config struct {
	// ID is this party's index into Parties.
	ID int

	// Parties lists all parties of the session in id order. The
	// list is identical at every party.
	Parties []PartyInfo

	// Cert is this party's certificate, used for both client and
	// server authentication.
	Cert tls.Certificate

	// RootCAs validates the peer certificates.
	RootCAs *x509.CertPool

	// Timeout bounds connection establishment and every pending
	// receive. Zero selects DefaultTimeout.
	Timeout time.Duration
}

// Network implements the party-to-party mesh for one party. The
// methods are not safe for concurrent calls targeting the same peer;
// the session's round scheduler is the single driver of a network.
type Network struct {
	id      int
	n       int
	peers   map[int]*Peer
	timeout time.Duration

	m        sync.Mutex
	listener net.Listener
	closed   bool
}

// Peer is one remote party of the mesh.
type Peer struct {
	id   int
	conn *Conn
}

// Connect establishes the full mesh for the configured party: one
// authenticated, encrypted channel to every other party. Parties dial
// peers with larger ids and accept connections from peers with
// smaller ids, so each pair creates exactly one channel. Connect
// returns when every channel is up or the timeout expires.
func Connect(cfg Config) (*Network, error) {
	n := len(cfg.Parties)
	if n < 2 {
		return nil, fmt.Errorf("%w: %d parties, need at least 2",
			cosnark.ErrProtocol, n)
	}
	if cfg.ID < 0 || cfg.ID >= n {
		return nil, fmt.Errorf("%w: party id %d outside 0..%d",
			cosnark.ErrProtocol, cfg.ID, n-1)
	}
	if cfg.RootCAs == nil {
		return nil, fmt.Errorf("%w: root CA pool required",
			cosnark.ErrProtocol)
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	serverTLS := &tls.Config{
		Certificates: []tls.Certificate{cfg.Cert},
		ClientAuth:   tls.RequireAndVerifyClientCert,
		ClientCAs:    cfg.RootCAs,
		MinVersion:   tls.VersionTLS12,
	}
	listener, err := tls.Listen("tcp", cfg.Parties[cfg.ID].Addr, serverTLS)
	if err != nil {
		return nil, fmt.Errorf("%w: listen %s: %v",
			cosnark.ErrNetwork, cfg.Parties[cfg.ID].Addr, err)
	}

	nw := &Network{
		id:       cfg.ID,
		n:        n,
		peers:    make(map[int]*Peer),
		timeout:  timeout,
		listener: listener,
	}

	deadline := time.Now().Add(timeout)
	errCh := make(chan error, n)

	var ready sync.WaitGroup
	ready.Add(n - 1)

	register := func(id int, conn net.Conn) error {
		nw.m.Lock()
		defer nw.m.Unlock()
		if nw.closed {
			return fmt.Errorf("%w: network closed", cosnark.ErrNetwork)
		}
		if _, ok := nw.peers[id]; ok {
			return fmt.Errorf("%w: duplicate connection from party %d",
				cosnark.ErrProtocol, id)
		}
		c := NewConn(conn)
		c.Timeout = timeout
		nw.peers[id] = &Peer{
			id:   id,
			conn: c,
		}
		ready.Done()
		return nil
	}

	// Accept channels from the cfg.ID lower-id peers.
	go func() {
		for i := 0; i < cfg.ID; i++ {
			conn, err := listener.Accept()
			if err != nil {
				errCh <- fmt.Errorf("%w: accept: %v",
					cosnark.ErrNetwork, err)
				return
			}
			id, err := nw.acceptPeer(cfg, conn, deadline)
			if err != nil {
				conn.Close()
				errCh <- err
				return
			}
			if err := register(id, conn); err != nil {
				conn.Close()
				errCh <- err
				return
			}
		}
	}()

	// Dial the higher-id peers.
	for id := cfg.ID + 1; id < n; id++ {
		go func(id int) {
			conn, err := dialPeer(cfg, id, deadline)
			if err != nil {
				errCh <- err
				return
			}
			if err := register(id, conn); err != nil {
				conn.Close()
				errCh <- err
				return
			}
		}(id)
	}

	done := make(chan struct{})
	go func() {
		ready.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nw, nil

	case err := <-errCh:
		nw.Close()
		return nil, err

	case <-time.After(time.Until(deadline)):
		nw.Close()
		return nil, fmt.Errorf("%w: timeout waiting for peers",
			cosnark.ErrNetwork)
	}
}

// acceptPeer completes the handshake of an inbound channel: finish
// the TLS handshake, read the peer id, and check the id against the
// certificate identity.
func (nw *Network) acceptPeer(cfg Config, conn net.Conn,
	deadline time.Time) (int, error) {

	tlsConn, ok := conn.(*tls.Conn)
	if !ok {
		return 0, fmt.Errorf("%w: non-TLS connection accepted",
			cosnark.ErrNetwork)
	}
	conn.SetDeadline(deadline)
	if err := tlsConn.Handshake(); err != nil {
		return 0, fmt.Errorf("%w: handshake: %v", cosnark.ErrNetwork, err)
	}

	var buf [4]byte
	if err := readFull(conn, buf[:]); err != nil {
		return 0, fmt.Errorf("%w: read peer id: %v", cosnark.ErrNetwork, err)
	}
	id := int(uint32(buf[0]) | uint32(buf[1])<<8 | uint32(buf[2])<<16 |
		uint32(buf[3])<<24)
	if id < 0 || id >= nw.id {
		return 0, fmt.Errorf("%w: unexpected peer id %d",
			cosnark.ErrProtocol, id)
	}

	state := tlsConn.ConnectionState()
	if len(state.PeerCertificates) == 0 {
		return 0, fmt.Errorf("%w: peer %d sent no certificate",
			cosnark.ErrProtocol, id)
	}
	err := state.PeerCertificates[0].VerifyHostname(cfg.Parties[id].Name)
	if err != nil {
		return 0, fmt.Errorf("%w: peer %d identity: %v",
			cosnark.ErrProtocol, id, err)
	}
	conn.SetDeadline(time.Time{})

	return id, nil
}

// dialPeer connects to the peer, retrying until the deadline, and
// sends our id as the handshake.
func dialPeer(cfg Config, id int, deadline time.Time) (net.Conn, error) {
	tlsCfg := &tls.Config{
		Certificates: []tls.Certificate{cfg.Cert},
		RootCAs:      cfg.RootCAs,
		ServerName:   cfg.Parties[id].Name,
		MinVersion:   tls.VersionTLS12,
	}
	addr := cfg.Parties[id].Addr

	for {
		if !time.Now().Before(deadline) {
			return nil, fmt.Errorf("%w: connect to party %d at %s: timeout",
				cosnark.ErrNetwork, id, addr)
		}
		dialer := &net.Dialer{
			Deadline: deadline,
		}
		conn, err := tls.DialWithDialer(dialer, "tcp", addr, tlsCfg)
		if err != nil {
			// The peer process might not be listening yet.
			log.Printf("p2p: connect to %s failed, retrying: %v", addr, err)
			time.Sleep(dialRetryDelay)
			continue
		}
		var buf [4]byte
		buf[0] = byte(uint32(cfg.ID) & 0xff)
		buf[1] = byte((uint32(cfg.ID) >> 8) & 0xff)
		buf[2] = byte((uint32(cfg.ID) >> 16) & 0xff)
		buf[3] = byte((uint32(cfg.ID) >> 24) & 0xff)
		if _, err := conn.Write(buf[:]); err != nil {
			conn.Close()
			return nil, fmt.Errorf("%w: send peer id to party %d: %v",
				cosnark.ErrNetwork, id, err)
		}
		return conn, nil
	}
}

// ID returns this party's id.
func (nw *Network) ID() int {
	return nw.id
}

// NumParties returns the number of parties in the session, including
// this party.
func (nw *Network) NumParties() int {
	return nw.n
}

// SendTo sends one message to the peer.
func (nw *Network) SendTo(id int, data []byte) error {
	peer, err := nw.peer(id)
	if err != nil {
		return err
	}
	if err := peer.conn.SendData(data); err != nil {
		return fmt.Errorf("%w: send to party %d: %v",
			cosnark.ErrNetwork, id, err)
	}
	if err := peer.conn.Flush(); err != nil {
		return fmt.Errorf("%w: send to party %d: %v",
			cosnark.ErrNetwork, id, err)
	}
	return nil
}

// RecvFrom receives one message from the peer, waiting at most the
// configured timeout.
func (nw *Network) RecvFrom(id int) ([]byte, error) {
	peer, err := nw.peer(id)
	if err != nil {
		return nil, err
	}
	data, err := peer.conn.ReceiveData()
	if err != nil {
		return nil, fmt.Errorf("%w: receive from party %d: %v",
			cosnark.ErrNetwork, id, err)
	}
	return data, nil
}

// Broadcast sends the payload to every peer and collects one reply
// from each, keyed by peer id. The per-peer exchanges run in
// parallel, one task per channel; Broadcast returns when all have
// completed or any has failed.
func (nw *Network) Broadcast(data []byte) (map[int][]byte, error) {
	var wg sync.WaitGroup
	var m sync.Mutex

	result := make(map[int][]byte)
	errCh := make(chan error, len(nw.peers))

	for id := range nw.peers {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			if err := nw.SendTo(id, data); err != nil {
				errCh <- err
				return
			}
			reply, err := nw.RecvFrom(id)
			if err != nil {
				errCh <- err
				return
			}
			m.Lock()
			result[id] = reply
			m.Unlock()
		}(id)
	}
	wg.Wait()

	select {
	case err := <-errCh:
		return nil, err
	default:
	}
	return result, nil
}

// Stats returns the I/O stats from the network.
func (nw *Network) Stats() IOStats {
	result := NewIOStats()
	for _, peer := range nw.peers {
		result = result.Add(peer.conn.Stats)
	}
	return result
}

// Close closes all peer channels. A closed network fails every
// pending and subsequent operation.
func (nw *Network) Close() error {
	nw.m.Lock()
	defer nw.m.Unlock()

	if nw.closed {
		return nil
	}
	nw.closed = true

	if nw.listener != nil {
		nw.listener.Close()
	}
	for _, peer := range nw.peers {
		peer.conn.Close()
	}
	return nil
}

func (nw *Network) peer(id int) (*Peer, error) {
	nw.m.Lock()
	defer nw.m.Unlock()

	if nw.closed {
		return nil, fmt.Errorf("%w: network closed", cosnark.ErrNetwork)
	}
	peer, ok := nw.peers[id]
	if !ok {
		return nil, fmt.Errorf("%w: unknown party %d",
			cosnark.ErrProtocol, id)
	}
	return peer, nil
}

func readFull(conn net.Conn, buf []byte) error {
	var pos int
	for pos < len(buf) {
		n, err := conn.Read(buf[pos:])
		if err != nil {
			return err
		}
		pos += n
	}
	return nil
}
