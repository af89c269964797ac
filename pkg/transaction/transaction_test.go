// Copyright 2025 Certen Protocol

package transaction

import (
	"testing"

	"github.com/vectorchain/validator/pkg/crypto"
)

func TestTransaction_SignInputAndVerify(t *testing.T) {
	spender, err := crypto.GenerateKeypair()
	if err != nil {
		t.Fatalf("GenerateKeypair: %v", err)
	}
	recipient, err := crypto.GenerateKeypair()
	if err != nil {
		t.Fatalf("GenerateKeypair: %v", err)
	}

	tx := Transaction{
		Inputs: []TransactionInput{
			{PrevTxHash: "deadbeef", OutputIndex: 0, PublicKey: spender.Public},
		},
		Outputs: []TransactionOutput{
			{Amount: 10, Owner: recipient.Public},
		},
	}

	if err := tx.SignInput(0, spender); err != nil {
		t.Fatalf("SignInput: %v", err)
	}
	if err := tx.VerifyInputSignatures(); err != nil {
		t.Fatalf("VerifyInputSignatures: %v", err)
	}
}

func TestTransaction_VerifyInputSignatures_RejectsTamperedOutputs(t *testing.T) {
	spender, err := crypto.GenerateKeypair()
	if err != nil {
		t.Fatalf("GenerateKeypair: %v", err)
	}

	tx := Transaction{
		Inputs: []TransactionInput{
			{PrevTxHash: "deadbeef", OutputIndex: 0, PublicKey: spender.Public},
		},
		Outputs: []TransactionOutput{
			{Amount: 10, Owner: spender.Public},
		},
	}
	if err := tx.SignInput(0, spender); err != nil {
		t.Fatalf("SignInput: %v", err)
	}

	tx.Outputs[0].Amount = 1000
	if err := tx.VerifyInputSignatures(); err == nil {
		t.Fatal("signature verified after outputs were tampered with, want error")
	}
}

func TestTransaction_HashVsSigningHash(t *testing.T) {
	spender, err := crypto.GenerateKeypair()
	if err != nil {
		t.Fatalf("GenerateKeypair: %v", err)
	}
	tx := Transaction{
		Inputs: []TransactionInput{
			{PrevTxHash: "deadbeef", OutputIndex: 0, PublicKey: spender.Public},
		},
		Outputs: []TransactionOutput{{Amount: 1, Owner: spender.Public}},
	}

	signingBefore, err := tx.SigningHash()
	if err != nil {
		t.Fatalf("SigningHash: %v", err)
	}
	if err := tx.SignInput(0, spender); err != nil {
		t.Fatalf("SignInput: %v", err)
	}
	signingAfter, err := tx.SigningHash()
	if err != nil {
		t.Fatalf("SigningHash: %v", err)
	}
	if string(signingBefore) != string(signingAfter) {
		t.Fatal("signing hash changed after filling in the signature it excludes")
	}

	identity, err := tx.Hash()
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if string(identity) == string(signingAfter) {
		t.Fatal("identity hash and signing hash must differ once a signature is present")
	}
}

func TestTransaction_TotalOutput(t *testing.T) {
	tx := Transaction{
		Outputs: []TransactionOutput{{Amount: 3}, {Amount: 4}, {Amount: 5}},
	}
	if got := tx.TotalOutput(); got != 12 {
		t.Fatalf("TotalOutput = %d, want 12", got)
	}
}
