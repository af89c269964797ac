// Copyright 2025 Certen Protocol

package store

import (
	"testing"

	"github.com/vectorchain/validator/pkg/block"
)

func TestBlockStore_PutGet(t *testing.T) {
	s := NewMemoryBlockStore()
	b := &block.Block{Header: block.Header{Height: 1}}
	hash := block.HashHeader(b.Header)

	if err := s.Put(hash, b); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, ok, err := s.Get(hash)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !ok {
		t.Fatal("expected block to be found")
	}
	if got.Header.Height != 1 {
		t.Fatalf("height = %d, want 1", got.Header.Height)
	}
}

func TestBlockStore_GetMissing(t *testing.T) {
	s := NewMemoryBlockStore()
	_, ok, err := s.Get([]byte("nonexistent"))
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if ok {
		t.Fatal("expected ok=false for missing block")
	}
}

func TestUTXOStore_PutGetRemove(t *testing.T) {
	s := NewMemoryUTXOStore()
	owner := []byte("alice")
	u := UTXO{TxHash: "tx1", OutputIndex: 0, Amount: 100, Owner: owner}

	if err := s.Put(u); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, err := s.Get("tx1", 0)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Amount != 100 {
		t.Fatalf("amount = %d, want 100", got.Amount)
	}

	if err := s.Remove("tx1", 0); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, err := s.Get("tx1", 0); err != ErrUTXONotFound {
		t.Fatalf("Get after Remove: got %v, want ErrUTXONotFound", err)
	}
}

func TestUTXOStore_FindSpendable(t *testing.T) {
	s := NewMemoryUTXOStore()
	owner := []byte("bob")
	for i, amt := range []int64{10, 50, 25, 5} {
		u := UTXO{TxHash: "tx", OutputIndex: uint32(i), Amount: amt, Owner: owner}
		if err := s.Put(u); err != nil {
			t.Fatalf("Put: %v", err)
		}
	}

	selected, err := s.FindSpendable(owner, 60)
	if err != nil {
		t.Fatalf("FindSpendable: %v", err)
	}

	var total int64
	for _, u := range selected {
		total += u.Amount
	}
	if total < 60 {
		t.Fatalf("selected total %d does not cover 60", total)
	}
	// Greedy descending selection should pick the 50 before the smaller ones.
	if selected[0].Amount != 50 {
		t.Fatalf("first selected amount = %d, want 50 (largest first)", selected[0].Amount)
	}
}

func TestUTXOStore_FindSpendable_Insufficient(t *testing.T) {
	s := NewMemoryUTXOStore()
	owner := []byte("carol")
	if err := s.Put(UTXO{TxHash: "tx", OutputIndex: 0, Amount: 10, Owner: owner}); err != nil {
		t.Fatalf("Put: %v", err)
	}

	if _, err := s.FindSpendable(owner, 100); err == nil {
		t.Fatal("expected ErrInsufficientFunds")
	}
}

func TestUTXOStore_ListByOwner_IsolatedPerOwner(t *testing.T) {
	s := NewMemoryUTXOStore()
	alice, bob := []byte("alice"), []byte("bob")

	if err := s.Put(UTXO{TxHash: "t1", OutputIndex: 0, Amount: 1, Owner: alice}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := s.Put(UTXO{TxHash: "t2", OutputIndex: 0, Amount: 2, Owner: bob}); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, err := s.ListByOwner(alice)
	if err != nil {
		t.Fatalf("ListByOwner: %v", err)
	}
	if len(got) != 1 || got[0].TxHash != "t1" {
		t.Fatalf("ListByOwner(alice) = %+v, want one entry for t1", got)
	}
}
