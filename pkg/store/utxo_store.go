// Copyright 2025 Certen Protocol
//
// UTXOStore tracks unspent transaction outputs, keyed by (tx hash, output
// index) with a secondary index by owner so a wallet can find spendable
// outputs without scanning the whole set.

package store

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/vectorchain/validator/pkg/kvdb"
)

// ErrUTXONotFound is returned when a referenced output does not exist,
// either because it was never created or because it has already been
// spent and removed.
var ErrUTXONotFound = errors.New("utxo: not found")

// ErrInsufficientFunds is returned when an owner's unspent outputs don't
// cover a requested amount.
var ErrInsufficientFunds = errors.New("utxo: insufficient spendable balance")

// UTXO is a single unspent output.
type UTXO struct {
	TxHash      string `json:"tx_hash"`
	OutputIndex uint32 `json:"output_index"`
	Amount      int64  `json:"amount"`
	Owner       []byte `json:"owner"`
}

var (
	utxoKeyPrefix  = []byte("utxo/")
	ownerKeyPrefix = []byte("utxo-by-owner/")
)

func utxoKey(txHash string, outputIndex uint32) []byte {
	k := append([]byte(nil), utxoKeyPrefix...)
	k = append(k, []byte(txHash)...)
	k = append(k, '/')
	return binary.BigEndian.AppendUint32(k, outputIndex)
}

func ownerKey(owner []byte, txHash string, outputIndex uint32) []byte {
	k := append([]byte(nil), ownerKeyPrefix...)
	k = append(k, owner...)
	k = append(k, '/')
	k = append(k, []byte(txHash)...)
	k = append(k, '/')
	return binary.BigEndian.AppendUint32(k, outputIndex)
}

// UTXOStore persists the UTXO set behind a KV.
type UTXOStore struct {
	kv kvdb.KV
}

// NewUTXOStore wraps kv as a UTXOStore.
func NewUTXOStore(kv kvdb.KV) *UTXOStore {
	return &UTXOStore{kv: kv}
}

// NewMemoryUTXOStore returns a UTXOStore backed by a fresh in-memory DB.
func NewMemoryUTXOStore() *UTXOStore {
	return NewUTXOStore(kvdb.NewMemory())
}

// Put records u as a new unspent output.
func (s *UTXOStore) Put(u UTXO) error {
	data, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("marshal utxo: %w", err)
	}
	if err := s.kv.Set(utxoKey(u.TxHash, u.OutputIndex), data); err != nil {
		return fmt.Errorf("store utxo %s:%d: %w", u.TxHash, u.OutputIndex, err)
	}
	if err := s.kv.Set(ownerKey(u.Owner, u.TxHash, u.OutputIndex), []byte{1}); err != nil {
		return fmt.Errorf("index utxo %s:%d by owner: %w", u.TxHash, u.OutputIndex, err)
	}
	return nil
}

// Get returns the unspent output at (txHash, outputIndex).
func (s *UTXOStore) Get(txHash string, outputIndex uint32) (*UTXO, error) {
	data, err := s.kv.Get(utxoKey(txHash, outputIndex))
	if err != nil {
		return nil, fmt.Errorf("read utxo %s:%d: %w", txHash, outputIndex, err)
	}
	if data == nil {
		return nil, ErrUTXONotFound
	}
	var u UTXO
	if err := json.Unmarshal(data, &u); err != nil {
		return nil, fmt.Errorf("unmarshal utxo %s:%d: %w", txHash, outputIndex, err)
	}
	return &u, nil
}

// Remove spends the output at (txHash, outputIndex), removing it from both
// the primary store and the owner index.
func (s *UTXOStore) Remove(txHash string, outputIndex uint32) error {
	u, err := s.Get(txHash, outputIndex)
	if err != nil {
		return err
	}
	if err := s.kv.Delete(utxoKey(txHash, outputIndex)); err != nil {
		return fmt.Errorf("remove utxo %s:%d: %w", txHash, outputIndex, err)
	}
	if err := s.kv.Delete(ownerKey(u.Owner, txHash, outputIndex)); err != nil {
		return fmt.Errorf("remove owner index for utxo %s:%d: %w", txHash, outputIndex, err)
	}
	return nil
}

// FindSpendable selects unspent outputs owned by owner, greedily by
// descending amount, until their sum covers needed. It returns
// ErrInsufficientFunds if the owner's total balance falls short.
func (s *UTXOStore) FindSpendable(owner []byte, needed int64) ([]UTXO, error) {
	owned, err := s.ListByOwner(owner)
	if err != nil {
		return nil, err
	}

	sort.Slice(owned, func(i, j int) bool { return owned[i].Amount > owned[j].Amount })

	var total int64
	var selected []UTXO
	for _, u := range owned {
		if total >= needed {
			break
		}
		selected = append(selected, u)
		total += u.Amount
	}
	if total < needed {
		return nil, fmt.Errorf("%w: have %d, need %d", ErrInsufficientFunds, total, needed)
	}
	return selected, nil
}

// ListByOwner returns every unspent output currently owned by owner.
func (s *UTXOStore) ListByOwner(owner []byte) ([]UTXO, error) {
	prefix := append(append([]byte(nil), ownerKeyPrefix...), owner...)
	var out []UTXO
	var iterErr error
	err := s.kv.IteratePrefix(prefix, func(key, _ []byte) bool {
		txHash, outputIndex, ok := parseOwnerKey(key, prefix)
		if !ok {
			return true
		}
		u, err := s.Get(txHash, outputIndex)
		if err != nil {
			iterErr = err
			return false
		}
		out = append(out, *u)
		return true
	})
	if err != nil {
		return nil, err
	}
	if iterErr != nil {
		return nil, iterErr
	}
	return out, nil
}

func parseOwnerKey(key, prefix []byte) (txHash string, outputIndex uint32, ok bool) {
	rest := key[len(prefix):]
	if len(rest) < 1+4 {
		return "", 0, false
	}
	// rest = '/' + txHash + '/' + 4-byte big-endian index
	rest = rest[1:]
	sep := -1
	for i := len(rest) - 5; i >= 0; i-- {
		if rest[i] == '/' {
			sep = i
			break
		}
	}
	if sep < 0 {
		return "", 0, false
	}
	txHash = string(rest[:sep])
	outputIndex = binary.BigEndian.Uint32(rest[sep+1:])
	return txHash, outputIndex, true
}
