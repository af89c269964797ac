// Copyright 2025 Certen Protocol

package validator

import "errors"

// ConsensusError family, surfaced at round-phase boundaries.
var (
	ErrNoCandidateBlock = errors.New("validator: no candidate block for this round")
	ErrPeerNotFound     = errors.New("validator: no peer available to vote for")
	ErrBroadcastFailed  = errors.New("validator: broadcast failed")
)
