// Copyright 2025 Certen Protocol
//
// BlockStore keeps finalized blocks keyed by their header hash. Height
// lookups are the Chain's job (it keeps the ordered header list); this
// store only ever needs random access by hash.

package store

import (
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/vectorchain/validator/pkg/block"
	"github.com/vectorchain/validator/pkg/kvdb"
)

var blockKeyPrefix = []byte("block/")

// BlockStore persists blocks behind a KV. The spec treats persistence
// format as out of scope — an in-memory dbm.MemDB satisfies the contract
// just as well as anything durable, since BlockStore never reads raw bytes
// back itself, only through this API.
type BlockStore struct {
	kv kvdb.KV
}

// NewBlockStore wraps kv as a BlockStore.
func NewBlockStore(kv kvdb.KV) *BlockStore {
	return &BlockStore{kv: kv}
}

// NewMemoryBlockStore returns a BlockStore backed by a fresh in-memory DB.
func NewMemoryBlockStore() *BlockStore {
	return NewBlockStore(kvdb.NewMemory())
}

func blockKey(hash []byte) []byte {
	return append(append([]byte(nil), blockKeyPrefix...), hash...)
}

// Put stores b, keyed by its header hash.
func (s *BlockStore) Put(hash []byte, b *block.Block) error {
	data, err := json.Marshal(b)
	if err != nil {
		return fmt.Errorf("marshal block: %w", err)
	}
	if err := s.kv.Set(blockKey(hash), data); err != nil {
		return fmt.Errorf("store block %s: %w", hex.EncodeToString(hash), err)
	}
	return nil
}

// Get returns the block stored under hash, or ok=false if none exists.
func (s *BlockStore) Get(hash []byte) (b *block.Block, ok bool, err error) {
	data, err := s.kv.Get(blockKey(hash))
	if err != nil {
		return nil, false, fmt.Errorf("read block %s: %w", hex.EncodeToString(hash), err)
	}
	if data == nil {
		return nil, false, nil
	}
	var out block.Block
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, false, fmt.Errorf("unmarshal block %s: %w", hex.EncodeToString(hash), err)
	}
	return &out, true, nil
}
