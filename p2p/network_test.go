//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package p2p_test

import (
	"errors"
	"fmt"
	"net"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markkurossi/cosnark"
	"github.com/markkurossi/cosnark/p2p"
)

// freeAddrs reserves n distinct loopback addresses by binding and
// immediately releasing them.
func freeAddrs(t *testing.T, n int) []string {
	addrs := make([]string, n)
	for i := 0; i < n; i++ {
		l, err := net.Listen("tcp", "127.0.0.1:0")
		require.NoError(t, err)
		addrs[i] = l.Addr().String()
		l.Close()
	}
	return addrs
}

func TestConnect(t *testing.T) {
	const n = 3

	names := []string{"alice", "bob", "carol"}
	dir := t.TempDir()
	require.NoError(t, p2p.GenerateCertificates(names, dir))

	roots, err := p2p.LoadCA(filepath.Join(dir, "ca.pem"))
	require.NoError(t, err)

	addrs := freeAddrs(t, n)
	parties := make([]p2p.PartyInfo, n)
	for i := range parties {
		parties[i] = p2p.PartyInfo{
			Name: names[i],
			Addr: addrs[i],
		}
	}

	nets := make([]*p2p.Network, n)
	errs := make([]error, n)

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			cert, err := p2p.LoadCertificate(
				filepath.Join(dir, names[i]+"-cert.pem"),
				filepath.Join(dir, names[i]+"-key.pem"))
			if err != nil {
				errs[i] = err
				return
			}
			nets[i], errs[i] = p2p.Connect(p2p.Config{
				ID:      i,
				Parties: parties,
				Cert:    cert,
				RootCAs: roots,
				Timeout: 10 * time.Second,
			})
		}(i)
	}
	wg.Wait()

	for i := 0; i < n; i++ {
		require.NoError(t, errs[i], "party %d", i)
		require.NotNil(t, nets[i])
		assert.Equal(t, i, nets[i].ID())
		assert.Equal(t, n, nets[i].NumParties())
	}
	defer func() {
		for _, nw := range nets {
			nw.Close()
		}
	}()

	// Symmetric broadcast: every party sends its greeting and
	// collects everyone else's.
	replies := make([]map[int][]byte, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			replies[i], errs[i] = nets[i].Broadcast(
				[]byte(fmt.Sprintf("hello from %d", i)))
		}(i)
	}
	wg.Wait()

	for i := 0; i < n; i++ {
		require.NoError(t, errs[i], "party %d", i)
		require.Equal(t, n-1, len(replies[i]))
		for from, msg := range replies[i] {
			assert.Equal(t, fmt.Sprintf("hello from %d", from),
				string(msg))
		}
	}

	assert.Greater(t, nets[0].Stats().Sum(), uint64(0))
}

func TestConnectErrors(t *testing.T) {
	_, err := p2p.Connect(p2p.Config{
		ID:      0,
		Parties: []p2p.PartyInfo{{Name: "solo", Addr: "127.0.0.1:0"}},
	})
	assert.True(t, errors.Is(err, cosnark.ErrProtocol))

	_, err = p2p.Connect(p2p.Config{
		ID: 7,
		Parties: []p2p.PartyInfo{
			{Name: "a", Addr: "127.0.0.1:0"},
			{Name: "b", Addr: "127.0.0.1:0"},
		},
	})
	assert.True(t, errors.Is(err, cosnark.ErrProtocol))
}

func TestPipeMesh(t *testing.T) {
	const n = 4

	nets := p2p.PipeMesh(n, time.Second)
	require.Equal(t, n, len(nets))

	var wg sync.WaitGroup
	errs := make([]error, n)
	replies := make([]map[int][]byte, n)

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			replies[i], errs[i] = nets[i].Broadcast([]byte{byte(i)})
		}(i)
	}
	wg.Wait()

	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		require.Equal(t, n-1, len(replies[i]))
		for from, msg := range replies[i] {
			assert.Equal(t, []byte{byte(from)}, msg)
		}
	}

	for _, nw := range nets {
		assert.NoError(t, nw.Close())
		// Close is idempotent.
		assert.NoError(t, nw.Close())
	}

	_, err := nets[0].RecvFrom(1)
	assert.True(t, errors.Is(err, cosnark.ErrNetwork))
}

func TestDropout(t *testing.T) {
	nets := p2p.PipeMesh(2, time.Second)

	require.NoError(t, nets[1].Close())

	var err error
	done := make(chan struct{})
	go func() {
		_, err = nets[0].RecvFrom(1)
		close(done)
	}()

	select {
	case <-done:
		assert.True(t, errors.Is(err, cosnark.ErrNetwork))
	case <-time.After(5 * time.Second):
		t.Fatal("receive from closed peer did not fail")
	}
	nets[0].Close()
}
