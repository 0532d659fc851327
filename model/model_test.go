package model

import "testing"

func TestGiftValueCNY(t *testing.T) {
	gold := GiftEvent{CoinType: CoinGold, TotalValue: 5000}
	if got := gold.ValueCNY(); got != 5.0 {
		t.Fatalf("expected 5.0 for gold gift, got %v", got)
	}

	silver := GiftEvent{CoinType: CoinSilver, TotalValue: 5000}
	if got := silver.ValueCNY(); got != 0.0 {
		t.Fatalf("expected 0.0 for silver gift, got %v", got)
	}

	unknown := GiftEvent{CoinType: CoinUnknown, TotalValue: 1000}
	if got := unknown.ValueCNY(); got != 0.0 {
		t.Fatalf("expected 0.0 for unknown coin type, got %v", got)
	}
}

func TestParseCoinType(t *testing.T) {
	if got := ParseCoinType("GOLD"); got != CoinGold {
		t.Fatalf("expected gold, got %s", got)
	}
	if got := ParseCoinType(" silver "); got != CoinSilver {
		t.Fatalf("expected silver, got %s", got)
	}
	if got := ParseCoinType("copper"); got != CoinUnknown {
		t.Fatalf("expected unknown, got %s", got)
	}
}

func TestParseGuardLevel(t *testing.T) {
	if got := ParseGuardLevel(3); got != GuardCaptain {
		t.Fatalf("expected captain, got %s", got)
	}
	if got := ParseGuardLevel(0); got != GuardNone {
		t.Fatalf("expected none, got %s", got)
	}
	if got := ParseGuardLevel(99); got != GuardNone {
		t.Fatalf("expected none for out-of-range level, got %s", got)
	}
}
