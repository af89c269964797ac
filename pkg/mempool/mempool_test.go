// Copyright 2025 Certen Protocol

package mempool

import (
	"testing"

	"github.com/vectorchain/validator/pkg/transaction"
)

func sampleTx(amount int64) transaction.Transaction {
	return transaction.Transaction{
		Outputs: []transaction.TransactionOutput{{Amount: amount, Owner: []byte("owner")}},
	}
}

func TestMempool_AddHasRemove(t *testing.T) {
	m := New()
	tx := sampleTx(10)

	added, err := m.Add(tx)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if !added {
		t.Fatal("expected first Add to succeed")
	}

	added, err = m.Add(tx)
	if err != nil {
		t.Fatalf("Add (dup): %v", err)
	}
	if added {
		t.Fatal("expected duplicate Add to be rejected")
	}

	has, err := m.Has(&tx)
	if err != nil {
		t.Fatalf("Has: %v", err)
	}
	if !has {
		t.Fatal("expected mempool to report the transaction as present")
	}

	if m.Len() != 1 {
		t.Fatalf("Len = %d, want 1", m.Len())
	}

	removed, err := m.Remove(&tx)
	if err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if !removed {
		t.Fatal("expected Remove to succeed")
	}
	if m.Len() != 0 {
		t.Fatalf("Len after Remove = %d, want 0", m.Len())
	}
}

func TestMempool_Clear(t *testing.T) {
	m := New()
	for i := int64(0); i < 3; i++ {
		if _, err := m.Add(sampleTx(i + 1)); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}
	if m.Len() != 3 {
		t.Fatalf("Len = %d, want 3", m.Len())
	}
	m.Clear()
	if m.Len() != 0 {
		t.Fatalf("Len after Clear = %d, want 0", m.Len())
	}
}

func TestMempool_Drain(t *testing.T) {
	m := New()
	for i := int64(0); i < 3; i++ {
		if _, err := m.Add(sampleTx(i + 1)); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}

	drained := m.Drain()
	if len(drained) != 3 {
		t.Fatalf("Drain returned %d transactions, want 3", len(drained))
	}
	if m.Len() != 0 {
		t.Fatalf("Len after Drain = %d, want 0", m.Len())
	}

	if _, err := m.Add(sampleTx(99)); err != nil {
		t.Fatalf("Add after Drain: %v", err)
	}
	if m.Len() != 1 {
		t.Fatalf("Len after post-Drain Add = %d, want 1", m.Len())
	}

	second := m.Drain()
	if len(second) != 1 {
		t.Fatalf("second Drain returned %d transactions, want 1", len(second))
	}
}

func TestMempool_RemoveBatch(t *testing.T) {
	m := New()
	tx1, tx2 := sampleTx(1), sampleTx(2)
	if _, err := m.Add(tx1); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if _, err := m.Add(tx2); err != nil {
		t.Fatalf("Add: %v", err)
	}

	if err := m.RemoveBatch([]transaction.Transaction{tx1}); err != nil {
		t.Fatalf("RemoveBatch: %v", err)
	}
	if m.Len() != 1 {
		t.Fatalf("Len after RemoveBatch = %d, want 1", m.Len())
	}

	has, err := m.Has(&tx2)
	if err != nil {
		t.Fatalf("Has: %v", err)
	}
	if !has {
		t.Fatal("expected tx2 to remain in the mempool")
	}
}
