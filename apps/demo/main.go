//
// main.go
//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

// Command demo runs a full multi-party session inside one process over
// an in-memory mesh: every party inputs a secret, the parties multiply
// a batch of random pairs, and the product of the inputs is opened.
// Party 0 prints a timing report.
package main

import (
	"crypto/rand"
	"flag"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/markkurossi/cosnark/beaver"
	"github.com/markkurossi/cosnark/field"
	"github.com/markkurossi/cosnark/field/bls12381"
	"github.com/markkurossi/cosnark/field/bn254"
	"github.com/markkurossi/cosnark/field/modp"
	"github.com/markkurossi/cosnark/p2p"
	"github.com/markkurossi/cosnark/session"
	"github.com/markkurossi/cosnark/share"
)

func main() {
	parties := flag.Int("parties", 3, "number of parties")
	muls := flag.Int("muls", 1024, "random multiplications per party")
	fieldName := flag.String("field", "bn254", "prime field (bn254, bls12381, p97)")
	flag.Parse()

	fld, err := fieldByName(*fieldName)
	if err != nil {
		log.Fatal(err)
	}
	if *parties < 2 {
		log.Fatalf("need at least 2 parties, got %d", *parties)
	}

	fmt.Printf("Field   : %s\n", fld.Name())
	fmt.Printf("Parties : %d\n", *parties)
	fmt.Printf("Muls    : %d\n", *muls)

	// The batch needs one triple per random pair plus one per input
	// product step.
	dealer, err := beaver.NewDealer(fld, rand.Reader, *parties)
	if err != nil {
		log.Fatal(err)
	}
	pools, err := dealer.Pools(*muls + *parties)
	if err != nil {
		log.Fatal(err)
	}

	nets := p2p.PipeMesh(*parties, 30*time.Second)

	var wg sync.WaitGroup
	errs := make([]error, *parties)

	for i := 0; i < *parties; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = runParty(nets[i], fld, pools[i], *parties, *muls)
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			log.Printf("party %d: %s", i, err)
			os.Exit(1)
		}
	}
}

func runParty(nw *p2p.Network, fld field.Field, pool *beaver.Pool,
	parties, muls int) error {

	s, err := session.New(nw, fld, pool)
	if err != nil {
		return err
	}
	defer s.Close()

	timing := session.NewTiming()

	// Every party contributes one secret input.
	inputs := make([]share.Share, parties)
	for owner := 0; owner < parties; owner++ {
		inputs[owner], err = s.Input(owner, fld.FromUint64(uint64(owner+2)))
		if err != nil {
			return err
		}
	}
	timing.Sample("input", nil)

	// The random batch: muls products in one communication round.
	xs := make([]share.Share, muls)
	ys := make([]share.Share, muls)
	for i := 0; i < muls; i++ {
		xs[i], err = s.RandomShare()
		if err != nil {
			return err
		}
		ys[i], err = s.RandomShare()
		if err != nil {
			return err
		}
	}
	if _, err := s.MulBatch(xs, ys); err != nil {
		return err
	}
	timing.Sample("mul batch", nil)

	// Product of all inputs, one round per factor.
	acc := inputs[0]
	for i := 1; i < parties; i++ {
		acc, err = s.Mul(acc, inputs[i])
		if err != nil {
			return err
		}
	}
	result, err := s.Open(acc)
	if err != nil {
		return err
	}
	timing.Sample("open", nil)

	if s.ID() == 0 {
		fmt.Printf("Result  : %s\n", result)
		fmt.Printf("Rounds  : %d\n", s.Rounds())
		fmt.Printf("Triples : %d\n", s.TriplesUsed())
		timing.Print(s.Stats())
	}
	return nil
}

func fieldByName(name string) (field.Field, error) {
	switch name {
	case "bn254":
		return bn254.New(), nil
	case "bls12381":
		return bls12381.New(), nil
	case "p97":
		return modp.NewUint64(97)
	default:
		return nil, fmt.Errorf("unknown field: %s", name)
	}
}
