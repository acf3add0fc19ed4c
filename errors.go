//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

// Package cosnark defines the error kinds shared by the collaborative
// proving engine packages. Any interactive failure is fatal for the
// session that produced it; callers may restart a whole session but
// the engine never retries on its own.
package cosnark

import (
	"errors"
)

var (
	// ErrNetwork covers connection refused, lost, and timed out
	// conditions on any peer channel.
	ErrNetwork = errors.New("network error")

	// ErrProtocol covers malformed or undersized payloads and
	// wrong share, party, or batch counts.
	ErrProtocol = errors.New("protocol error")

	// ErrTripleExhausted is returned when the multiplication
	// triple supply runs out before the session completes.
	ErrTripleExhausted = errors.New("triple supply exhausted")

	// ErrReconstructionMismatch is returned when an open reveals
	// inconsistent shares. Under the semi-honest model this is not
	// disambiguated from an actively cheating party.
	ErrReconstructionMismatch = errors.New("reconstruction mismatch")
)
