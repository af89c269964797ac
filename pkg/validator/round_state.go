// Copyright 2025 Certen Protocol
//
// RoundState collects every per-round mutable field behind a single lock,
// per the spec's Design Notes: "collect all round fields in a single
// RoundState value behind one lock; resetting a round is a single
// assignment." This is the fix for the "forgot to clear one counter" bug
// class the teacher's source was prone to.

package validator

import (
	"sync"

	"github.com/google/uuid"

	"github.com/vectorchain/validator/pkg/block"
	"github.com/vectorchain/validator/pkg/transaction"
)

// Phase is a state in the per-round consensus machine.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseSnapshot
	PhasePropose
	PhaseHashAgree
	PhaseTallyAgree
	PhaseVote
	PhaseTallyVote
	PhaseFinalizeIfWinner
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "IDLE"
	case PhaseSnapshot:
		return "SNAPSHOT"
	case PhasePropose:
		return "PROPOSE"
	case PhaseHashAgree:
		return "HASH_AGREE"
	case PhaseTallyAgree:
		return "TALLY_AGREE"
	case PhaseVote:
		return "VOTE"
	case PhaseTallyVote:
		return "TALLY_VOTE"
	case PhaseFinalizeIfWinner:
		return "FINALIZE_IF_WINNER"
	default:
		return "UNKNOWN"
	}
}

// RoundState is every field exclusive to one in-flight consensus round.
type RoundState struct {
	mu sync.Mutex

	RoundID      string
	Phase        Phase
	Transactions []transaction.Transaction

	CandidateBlock *block.Block
	CandidateHash  []byte

	AgreementCount    int
	ReceivedResponses int
	VoteCount         map[int32]int
}

// newRoundState returns a freshly reset RoundState.
func newRoundState() *RoundState {
	rs := &RoundState{}
	rs.resetLocked()
	return rs
}

func (rs *RoundState) resetLocked() {
	rs.RoundID = uuid.NewString()
	rs.Phase = PhaseIdle
	rs.Transactions = nil
	rs.CandidateBlock = nil
	rs.CandidateHash = nil
	rs.AgreementCount = 0
	rs.ReceivedResponses = 0
	rs.VoteCount = make(map[int32]int)
}

// Reset clears every round field and assigns a fresh round id, in a
// single locked assignment.
func (rs *RoundState) Reset() {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	rs.resetLocked()
}

// WithLock runs fn with the round state locked, for multi-field reads or
// mutations that must be atomic with respect to each other.
func (rs *RoundState) WithLock(fn func(*RoundState)) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	fn(rs)
}
