// Copyright 2025 Certen Protocol
//
// Wire message shapes for the node's gossip surface. spec.md §6 describes
// these as protobuf messages over a TLS duplex RPC; this module carries
// them as JSON structs over HTTP instead (the wire-format compiler itself
// is an explicit Non-goal), matching the teacher's own HTTP+JSON peer
// transport in pkg/batch/peer_manager.go.

package node

import (
	"github.com/vectorchain/validator/pkg/block"
	"github.com/vectorchain/validator/pkg/transaction"
)

// Version is exchanged on handshake.
type Version struct {
	ProtocolVersion string   `json:"protocol_version"`
	PublicKey       []byte   `json:"public_key"`
	Height          int      `json:"height"`
	ListenAddress   string   `json:"listen_address"`
	PeerList        []string `json:"peer_list"`
}

// LeaderBlock carries a finalized block from the round winner.
type LeaderBlock struct {
	Block         block.Block `json:"block"`
	LeaderAddress string      `json:"leader_address"`
}

// LocalState is sent to request a block batch starting after this height.
type LocalState struct {
	LastBlockHeight int `json:"last_block_height"`
}

// BlockBatch answers a LocalState request with every missing block.
type BlockBatch struct {
	Blocks []*block.Block `json:"blocks"`
}

// PeerList is exchanged periodically so peers can bootstrap transitively.
type PeerList struct {
	PeerAddresses []string `json:"peer_addresses"`
}

// Confirmed is the empty acknowledgement most endpoints return.
type Confirmed struct{}

// transactionEnvelope wraps a Transaction for the handle_transaction endpoint.
type transactionEnvelope struct {
	Transaction transaction.Transaction `json:"transaction"`
}
