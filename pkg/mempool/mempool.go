// Copyright 2025 Certen Protocol
//
// Mempool is the set of transactions awaiting inclusion in a block, keyed
// by hex-encoded identity hash. It mirrors the Rust prototype's
// DashMap<String, Transaction> with a plain mutex: this validator's
// mempool is touched from request handlers and the round state machine,
// never from a hot per-packet path, so a single lock is plenty.

package mempool

import (
	"encoding/hex"
	"log"
	"os"
	"sync"

	"github.com/vectorchain/validator/pkg/transaction"
)

// Mempool holds pending transactions until a round pulls a batch of them
// into a proposed block.
type Mempool struct {
	mu           sync.RWMutex
	transactions map[string]transaction.Transaction
	logger       *log.Logger
}

// New returns an empty Mempool.
func New() *Mempool {
	return &Mempool{
		transactions: make(map[string]transaction.Transaction),
		logger:       log.New(os.Stderr, "[Mempool] ", log.LstdFlags),
	}
}

// Has reports whether tx (identified by its hash) is already pending.
func (m *Mempool) Has(tx *transaction.Transaction) (bool, error) {
	hash, err := tx.HashHex()
	if err != nil {
		return false, err
	}
	return m.HasHash(hash), nil
}

// HasHash reports whether a transaction with the given hex hash is pending.
func (m *Mempool) HasHash(hash string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.transactions[hash]
	return ok
}

// Add inserts tx if it isn't already pending, returning true if it was
// newly added.
func (m *Mempool) Add(tx transaction.Transaction) (bool, error) {
	hash, err := tx.HashHex()
	if err != nil {
		return false, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.transactions[hash]; exists {
		return false, nil
	}
	m.transactions[hash] = tx
	m.logger.Printf("transaction added: %s", hash)
	return true, nil
}

// Remove drops tx (by hash) from the mempool, returning true if it was present.
func (m *Mempool) Remove(tx *transaction.Transaction) (bool, error) {
	hash, err := tx.HashHex()
	if err != nil {
		return false, err
	}
	return m.RemoveHash(hash), nil
}

// RemoveHash drops the transaction with the given hex hash.
func (m *Mempool) RemoveHash(hash string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.transactions[hash]; !exists {
		return false
	}
	delete(m.transactions, hash)
	m.logger.Printf("transaction removed: %s", hash)
	return true
}

// GetByHash returns the pending transaction with the given hex hash, if any.
func (m *Mempool) GetByHash(hash string) (transaction.Transaction, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	tx, ok := m.transactions[hash]
	return tx, ok
}

// GetTransactions returns a snapshot of every pending transaction. Order is
// unspecified.
func (m *Mempool) GetTransactions() []transaction.Transaction {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]transaction.Transaction, 0, len(m.transactions))
	for _, tx := range m.transactions {
		out = append(out, tx)
	}
	return out
}

// Len returns the number of pending transactions.
func (m *Mempool) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.transactions)
}

// Clear empties the mempool, e.g. after a round finalizes a block.
func (m *Mempool) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transactions = make(map[string]transaction.Transaction)
	m.logger.Println("mempool cleared")
}

// Drain atomically reads out every pending transaction and empties the
// mempool in a single lock acquisition, so nothing added concurrently
// between a read and a clear can be silently lost. Order is unspecified.
func (m *Mempool) Drain() []transaction.Transaction {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]transaction.Transaction, 0, len(m.transactions))
	for _, tx := range m.transactions {
		out = append(out, tx)
	}
	m.transactions = make(map[string]transaction.Transaction)
	m.logger.Printf("mempool drained: %d transactions", len(out))
	return out
}

// RemoveBatch drops every transaction in txs, by hash, typically called
// once a block containing them is finalized.
func (m *Mempool) RemoveBatch(txs []transaction.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range txs {
		h, err := txs[i].Hash()
		if err != nil {
			return err
		}
		delete(m.transactions, hex.EncodeToString(h))
	}
	return nil
}
