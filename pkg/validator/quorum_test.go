// Copyright 2025 Certen Protocol

package validator

import "testing"

func TestRequiredAgreement(t *testing.T) {
	cases := []struct {
		n    int
		want int
	}{
		{4, 3},
		{5, 4},
		{7, 5},
		{10, 7},
	}
	for _, c := range cases {
		if got := requiredAgreement(c.n); got != c.want {
			t.Errorf("requiredAgreement(%d) = %d, want %d", c.n, got, c.want)
		}
	}
}

func TestIsAutocratic(t *testing.T) {
	for n := 0; n < 4; n++ {
		if !isAutocratic(n) {
			t.Errorf("isAutocratic(%d) = false, want true", n)
		}
	}
	for n := 4; n < 8; n++ {
		if isAutocratic(n) {
			t.Errorf("isAutocratic(%d) = true, want false", n)
		}
	}
}

func TestWinningValidator_TieBreaksLowestID(t *testing.T) {
	votes := map[int32]int{5: 3, 2: 3, 9: 1}
	winner, count := winningValidator(votes)
	if winner != 2 {
		t.Fatalf("winner = %d, want 2 (lowest id among tied max)", winner)
	}
	if count != 3 {
		t.Fatalf("count = %d, want 3", count)
	}
}

func TestWinningValidator_SingleEntry(t *testing.T) {
	votes := map[int32]int{7: 1}
	winner, count := winningValidator(votes)
	if winner != 7 || count != 1 {
		t.Fatalf("winningValidator = (%d, %d), want (7, 1)", winner, count)
	}
}
