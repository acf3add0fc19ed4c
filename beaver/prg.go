//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package beaver

import (
	"golang.org/x/crypto/chacha20"
)

// PRG is a deterministic random stream keyed by a 32-byte key and a
// 12-byte nonce. It lets a dealer reproduce a triple sequence from a
// seed, e.g. when the same preprocessing must be rebuilt for every
// party process of a demo run. Callers must ensure domain separation
// via unique key/nonce pairs.
type PRG struct {
	cipher *chacha20.Cipher
}

// NewPRG creates a deterministic random stream.
func NewPRG(key [32]byte, nonce [12]byte) (*PRG, error) {
	c, err := chacha20.NewUnauthenticatedCipher(key[:], nonce[:])
	if err != nil {
		return nil, err
	}
	return &PRG{
		cipher: c,
	}, nil
}

// Read fills buf with keystream bytes. It never fails.
func (p *PRG) Read(buf []byte) (int, error) {
	for i := range buf {
		buf[i] = 0
	}
	p.cipher.XORKeyStream(buf, buf)
	return len(buf), nil
}
