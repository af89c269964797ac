// Copyright 2025 Certen Protocol

package node

import "errors"

// TransportError family, surfaced at the node's gossip boundary.
var (
	ErrPeerAlreadyKnown = errors.New("node: peer already known")
	ErrSelfDial          = errors.New("node: refusing to dial self")
	ErrPeerNotFound      = errors.New("node: peer not found")
	ErrHandshakeRejected = errors.New("node: handshake rejected")
)
