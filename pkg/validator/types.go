// Copyright 2025 Certen Protocol
//
// Wire message shapes for the consensus RPCs, grounded on
// original_source/vec_node/src/validator.rs's HashAgreement/Vote messages
// and spec.md §6.

package validator

// HashAgreement is broadcast during HASH_AGREE and echoed back as a response.
type HashAgreement struct {
	ValidatorID int32  `json:"validator_id"`
	BlockHash   []byte `json:"block_hash"`
	Agreement   bool   `json:"agreement"`
	IsResponse  bool   `json:"is_response"`
	SenderAddr  string `json:"sender_addr"`
}

// Vote is broadcast during VOTE, nominating a validator to finalize the round.
type Vote struct {
	ValidatorID        int32  `json:"validator_id"`
	VoterAddr          string `json:"voter_addr"`
	TargetValidatorID  int32  `json:"target_validator_id"`
}

// Confirmed is the empty acknowledgement these endpoints return.
type Confirmed struct{}
