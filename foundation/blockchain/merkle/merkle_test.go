// Copyright 2017 Cameron Bergoon
// https://github.com/cbergoon/merkletree
// Licensed under the MIT License, see LICENCE file for details.

package merkle_test

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"testing"

	"github.com/ardanlabs/utxoledger/foundation/blockchain/merkle"
	"lukechampine.com/blake3"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

// Data uses the blake3 hashing algorithm for the leaf hashes.
type Data struct {
	x string
}

// Hash hashes the values using blake3.
func (d Data) Hash() ([]byte, error) {
	h := blake3.Sum256([]byte(d.x))
	return h[:], nil
}

// Equals tests for equality of two piece of data.
func (d Data) Equals(other Data) bool {
	return d.x == other.x
}

// =============================================================================

func Test_Root(t *testing.T) {
	type table struct {
		name string
		data []Data
	}

	tt := []table{
		{name: "one", data: []Data{{x: "Hello"}}},
		{name: "two", data: []Data{{x: "Hello"}, {x: "Hi"}}},
		{name: "three", data: []Data{{x: "Hello"}, {x: "Hi"}, {x: "Hey"}}},
		{name: "four", data: []Data{{x: "Hello"}, {x: "Hi"}, {x: "Hey"}, {x: "Hola"}}},
		{name: "five", data: []Data{{x: "Hello"}, {x: "Hi"}, {x: "Hey"}, {x: "Greetings"}, {x: "Hola"}}},
		{name: "nine", data: []Data{{x: "123"}, {x: "234"}, {x: "345"}, {x: "456"}, {x: "1123"}, {x: "2234"}, {x: "3345"}, {x: "4456"}, {x: "5567"}}},
	}

	t.Log("Given the need to commit an ordered list of values to a root.")
	{
		for testID, tst := range tt {
			t.Logf("\tTest %d:\tWhen handling %s value(s).", testID, tst.name)
			{
				f := func(t *testing.T) {
					tree, err := merkle.NewTree(tst.data)
					if err != nil {
						t.Fatalf("\t%s\tTest %d:\tShould be able to construct the tree: %v", failed, testID, err)
					}
					t.Logf("\t%s\tTest %d:\tShould be able to construct the tree.", success, testID)

					exp := fold(t, tst.data)
					if !bytes.Equal(tree.MerkleRoot, exp) {
						t.Logf("\t%s\tTest %d:\tgot: %x", failed, testID, tree.MerkleRoot)
						t.Logf("\t%s\tTest %d:\texp: %x", failed, testID, exp)
						t.Fatalf("\t%s\tTest %d:\tShould get the pairwise folded root.", failed, testID)
					}
					t.Logf("\t%s\tTest %d:\tShould get the pairwise folded root.", success, testID)

					if err := tree.Verify(); err != nil {
						t.Fatalf("\t%s\tTest %d:\tShould be able to verify the tree: %v", failed, testID, err)
					}
					t.Logf("\t%s\tTest %d:\tShould be able to verify the tree.", success, testID)

					values := tree.Values()
					if len(values) != len(tst.data) {
						t.Logf("\t%s\tTest %d:\tgot: %d", failed, testID, len(values))
						t.Logf("\t%s\tTest %d:\texp: %d", failed, testID, len(tst.data))
						t.Fatalf("\t%s\tTest %d:\tShould get back the unique values.", failed, testID)
					}
					for i := range values {
						if !values[i].Equals(tst.data[i]) {
							t.Fatalf("\t%s\tTest %d:\tShould get back the values in order.", failed, testID)
						}
					}
					t.Logf("\t%s\tTest %d:\tShould get back the unique values in order.", success, testID)

					for _, d := range tst.data {
						if err := tree.VerifyData(d); err != nil {
							t.Fatalf("\t%s\tTest %d:\tShould be able to verify %q: %v", failed, testID, d.x, err)
						}
					}
					t.Logf("\t%s\tTest %d:\tShould be able to verify every value.", success, testID)

					if err := tree.VerifyData(Data{x: "NotInTestTable"}); !errors.Is(err, merkle.ErrNotFound) {
						t.Fatalf("\t%s\tTest %d:\tShould not verify a value outside the tree: %v", failed, testID, err)
					}
					t.Logf("\t%s\tTest %d:\tShould not verify a value outside the tree.", success, testID)
				}

				t.Run(tst.name, f)
			}
		}
	}
}

func Test_EmptyRoot(t *testing.T) {
	t.Log("Given the need to commit an empty list of values.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen handling no values.", testID)
		{
			tree, err := merkle.NewTree[Data](nil)
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to construct the tree: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould be able to construct the tree.", success, testID)

			if !bytes.Equal(tree.MerkleRoot, make([]byte, merkle.RootSize)) {
				t.Logf("\t%s\tTest %d:\tgot: %x", failed, testID, tree.MerkleRoot)
				t.Fatalf("\t%s\tTest %d:\tShould get an all zero root.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould get an all zero root.", success, testID)

			if len(tree.Values()) != 0 {
				t.Fatalf("\t%s\tTest %d:\tShould get no values back.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould get no values back.", success, testID)
		}
	}
}

func Test_OrderSensitive(t *testing.T) {
	t.Log("Given the need to bind the root to the order of the values.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen swapping two values.", testID)
		{
			t1, err := merkle.NewTree([]Data{{x: "a"}, {x: "b"}, {x: "c"}})
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to construct the tree: %v", failed, testID, err)
			}

			t2, err := merkle.NewTree([]Data{{x: "b"}, {x: "a"}, {x: "c"}})
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to construct the tree: %v", failed, testID, err)
			}

			if bytes.Equal(t1.MerkleRoot, t2.MerkleRoot) {
				t.Fatalf("\t%s\tTest %d:\tShould get a different root.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould get a different root.", success, testID)
		}
	}
}

func Test_Proof(t *testing.T) {
	data := []Data{{x: "123"}, {x: "234"}, {x: "345"}, {x: "456"}, {x: "1123"}}

	t.Log("Given the need to prove a value is part of the tree.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen handling five values.", testID)
		{
			tree, err := merkle.NewTree(data)
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to construct the tree: %v", failed, testID, err)
			}

			for _, d := range data {
				proof, order, err := tree.Proof(d)
				if err != nil {
					t.Fatalf("\t%s\tTest %d:\tShould be able to produce a proof: %v", failed, testID, err)
				}

				leaf, _ := d.Hash()
				ok, err := merkle.VerifyProof(merkle.Blake3, leaf, proof, order, tree.MerkleRoot)
				if err != nil || !ok {
					t.Fatalf("\t%s\tTest %d:\tShould be able to verify the proof for %q: %v", failed, testID, d.x, err)
				}

				other, _ := Data{x: "forged"}.Hash()
				if ok, _ := merkle.VerifyProof(merkle.Blake3, other, proof, order, tree.MerkleRoot); ok {
					t.Fatalf("\t%s\tTest %d:\tShould not verify a forged leaf.", failed, testID)
				}
			}
			t.Logf("\t%s\tTest %d:\tShould be able to prove every value.", success, testID)
		}

		testID = 1
		t.Logf("\tTest %d:\tWhen using a different hash strategy.", testID)
		{
			tree, err := merkle.NewTree(data, merkle.WithHashStrategy[Data](sha256.New))
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to construct the tree: %v", failed, testID, err)
			}

			if err := tree.VerifyData(data[4]); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to verify the value: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould be able to verify the value.", success, testID)

			def, _ := merkle.NewTree(data)
			if bytes.Equal(tree.MerkleRoot, def.MerkleRoot) {
				t.Fatalf("\t%s\tTest %d:\tShould get a root different from the default strategy.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould get a root different from the default strategy.", success, testID)
		}
	}
}

// =============================================================================

// fold computes the expected root the long way, level by level.
func fold(t *testing.T, data []Data) []byte {
	var level [][]byte
	for _, d := range data {
		h, err := d.Hash()
		if err != nil {
			t.Fatal(err)
		}
		level = append(level, h)
	}

	for len(level) > 1 {
		if len(level)%2 == 1 {
			level = append(level, level[len(level)-1])
		}

		var next [][]byte
		for i := 0; i < len(level); i += 2 {
			h := blake3.Sum256(append(append([]byte{}, level[i]...), level[i+1]...))
			next = append(next, h[:])
		}
		level = next
	}

	return level[0]
}
