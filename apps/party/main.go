//
// main.go
//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

// Command party runs one party of a session as a standalone process.
// The parties connect over mutually authenticated TLS, share their
// inputs, and open the product of all inputs.
//
// Provision certificates once:
//
//	party -certs certs -generate alice,bob,carol
//
// Then start one process per party:
//
//	party -certs certs -id 0 -peers alice=127.0.0.1:7001,bob=127.0.0.1:7002,carol=127.0.0.1:7003 -input 5
//
// The demo triples are expanded from the shared -seed at every party,
// so each party sees the plaintext triples. Real deployments must
// replace this preprocessing with a protocol or an outside dealer.
package main

import (
	"flag"
	"fmt"
	"log"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/crypto/blake2b"

	"github.com/markkurossi/cosnark/beaver"
	"github.com/markkurossi/cosnark/field"
	"github.com/markkurossi/cosnark/field/bls12381"
	"github.com/markkurossi/cosnark/field/bn254"
	"github.com/markkurossi/cosnark/p2p"
	"github.com/markkurossi/cosnark/session"
)

func main() {
	id := flag.Int("id", -1, "party id")
	peers := flag.String("peers", "", "comma-separated name=addr party list")
	certs := flag.String("certs", "certs", "certificate directory")
	generate := flag.String("generate", "",
		"generate certificates for the comma-separated party names and exit")
	fieldName := flag.String("field", "bn254", "prime field (bn254, bls12381)")
	seed := flag.String("seed", "demo", "shared triple seed")
	triples := flag.Int("triples", 64, "triples to preprocess")
	input := flag.Uint64("input", 1, "this party's secret input")
	timeout := flag.Duration("timeout", 30*time.Second, "connect timeout")
	flag.Parse()

	if *generate != "" {
		names := strings.Split(*generate, ",")
		if err := p2p.GenerateCertificates(names, *certs); err != nil {
			log.Fatal(err)
		}
		fmt.Printf("Certificates for %d parties written to %s\n",
			len(names), *certs)
		return
	}

	fld, err := fieldByName(*fieldName)
	if err != nil {
		log.Fatal(err)
	}
	parties, err := parsePeers(*peers)
	if err != nil {
		log.Fatal(err)
	}
	if *id < 0 || *id >= len(parties) {
		log.Fatalf("party id %d outside 0..%d", *id, len(parties)-1)
	}
	name := parties[*id].Name

	cert, err := p2p.LoadCertificate(
		filepath.Join(*certs, name+"-cert.pem"),
		filepath.Join(*certs, name+"-key.pem"))
	if err != nil {
		log.Fatal(err)
	}
	roots, err := p2p.LoadCA(filepath.Join(*certs, "ca.pem"))
	if err != nil {
		log.Fatal(err)
	}

	pool, err := preprocess(fld, *seed, len(parties), *triples, *id)
	if err != nil {
		log.Fatal(err)
	}

	log.Printf("party %d (%s): connecting to %d peers",
		*id, name, len(parties)-1)

	nw, err := p2p.Connect(p2p.Config{
		ID:      *id,
		Parties: parties,
		Cert:    cert,
		RootCAs: roots,
		Timeout: *timeout,
	})
	if err != nil {
		log.Fatal(err)
	}

	s, err := session.New(nw, fld, pool)
	if err != nil {
		nw.Close()
		log.Fatal(err)
	}

	result, err := run(s, fld, len(parties), *input)
	if err != nil {
		s.Close()
		log.Fatal(err)
	}
	if err := s.Close(); err != nil {
		log.Fatal(err)
	}

	fmt.Printf("Result  : %s\n", result)
	fmt.Printf("Rounds  : %d\n", s.Rounds())
	fmt.Printf("Triples : %d\n", s.TriplesUsed())
	fmt.Printf("I/O     : %d bytes\n", s.Stats().Sum())
}

// run shares every party's input and opens the product of all inputs.
func run(s *session.Session, fld field.Field, parties int, input uint64) (
	field.Element, error) {

	acc, err := s.Input(0, fld.FromUint64(input))
	if err != nil {
		return nil, err
	}
	for owner := 1; owner < parties; owner++ {
		x, err := s.Input(owner, fld.FromUint64(input))
		if err != nil {
			return nil, err
		}
		acc, err = s.Mul(acc, x)
		if err != nil {
			return nil, err
		}
	}
	return s.Open(acc)
}

// preprocess expands the shared seed into the full triple deal and
// keeps this party's slice. Demo only: the seed holder knows every
// plaintext triple.
func preprocess(fld field.Field, seed string, parties, count, id int) (
	*beaver.Pool, error) {

	key := blake2b.Sum256([]byte(seed))
	var nonce [12]byte

	prg, err := beaver.NewPRG(key, nonce)
	if err != nil {
		return nil, err
	}
	dealer, err := beaver.NewDealer(fld, prg, parties)
	if err != nil {
		return nil, err
	}
	pools, err := dealer.Pools(count)
	if err != nil {
		return nil, err
	}
	return pools[id], nil
}

func parsePeers(list string) ([]p2p.PartyInfo, error) {
	if list == "" {
		return nil, fmt.Errorf("no -peers given")
	}
	var parties []p2p.PartyInfo
	for _, item := range strings.Split(list, ",") {
		name, addr, found := strings.Cut(item, "=")
		if !found {
			return nil, fmt.Errorf("invalid peer %q, expected name=addr",
				item)
		}
		parties = append(parties, p2p.PartyInfo{
			Name: name,
			Addr: addr,
		})
	}
	return parties, nil
}

func fieldByName(name string) (field.Field, error) {
	switch name {
	case "bn254":
		return bn254.New(), nil
	case "bls12381":
		return bls12381.New(), nil
	default:
		return nil, fmt.Errorf("unknown field: %s", name)
	}
}
