package bot

import (
	"testing"

	"live-stream-bot/model"
)

func TestApplyChatMessage(t *testing.T) {
	a := NewAggregator()
	a.Apply(model.ChatMessage{UserID: 1, Username: "u", Content: "hi"})
	a.Apply(model.ChatMessage{UserID: 1, Username: "u", Content: "again"})

	st, ok := a.UserStats(1)
	if !ok {
		t.Fatalf("stats must be created lazily on first event")
	}
	if st.ChatCountToday != 2 {
		t.Fatalf("expected chat_count_today=2, got %d", st.ChatCountToday)
	}
	if st.LastSeenTS <= 0 {
		t.Fatalf("last_seen_ts must be updated")
	}
}

func TestApplyGift(t *testing.T) {
	a := NewAggregator()
	a.Apply(model.GiftEvent{UserID: 1, Username: "u", GiftName: "rose", Quantity: 5, CoinType: model.CoinGold, TotalValue: 5000})

	st, _ := a.UserStats(1)
	if st.GiftCountToday != 5 {
		t.Fatalf("expected gift_count_today=5, got %d", st.GiftCountToday)
	}
	if st.GiftValueToday != 5.0 {
		t.Fatalf("expected gift_value_today=5.0, got %v", st.GiftValueToday)
	}
}

func TestApplySuperChatAccumulatesValue(t *testing.T) {
	a := NewAggregator()
	a.Apply(model.SuperChatEvent{UserID: 1, Username: "u", PriceCNY: 50, MessageID: 9})

	st, _ := a.UserStats(1)
	if st.GiftValueToday != 50.0 {
		t.Fatalf("expected gift_value_today=50.0 from super chat, got %v", st.GiftValueToday)
	}
	if st.GiftCountToday != 0 {
		t.Fatalf("super chat must not change gift_count_today, got %d", st.GiftCountToday)
	}
}

func TestApplyGuardPurchaseUpdatesLastSeenOnly(t *testing.T) {
	a := NewAggregator()
	a.Apply(model.GuardPurchaseEvent{UserID: 1, Username: "u", GuardLevel: model.GuardCaptain, Quantity: 1, PriceCoins: 198000})

	st, _ := a.UserStats(1)
	if st.GiftCountToday != 0 || st.GiftValueToday != 0 {
		t.Fatalf("guard spend must not count toward gifts: %+v", st)
	}
	if st.LastSeenTS <= 0 {
		t.Fatalf("guard purchase must update last_seen_ts")
	}
}

func TestSummaryFoldsOverAllUsers(t *testing.T) {
	a := NewAggregator()
	a.Apply(model.GiftEvent{UserID: 1, Username: "a", GiftName: "rose", Quantity: 2, CoinType: model.CoinGold, TotalValue: 2000})
	a.Apply(model.GiftEvent{UserID: 2, Username: "b", GiftName: "rose", Quantity: 3, CoinType: model.CoinSilver, TotalValue: 3000})
	a.Apply(model.SuperChatEvent{UserID: 3, Username: "c", PriceCNY: 30, MessageID: 1})

	s := a.Summary()
	if s.TotalUsers != 3 {
		t.Fatalf("expected 3 users, got %d", s.TotalUsers)
	}
	if s.TotalGiftCount != 5 {
		t.Fatalf("expected total gift count 5, got %d", s.TotalGiftCount)
	}
	if s.TotalGiftValue != 32.0 {
		t.Fatalf("expected total value 32.0, got %v", s.TotalGiftValue)
	}
}

func TestUserStatsReturnsCopy(t *testing.T) {
	a := NewAggregator()
	a.Apply(model.ChatMessage{UserID: 1, Username: "u", Content: "hi"})

	st, _ := a.UserStats(1)
	st.ChatCountToday = 999

	fresh, _ := a.UserStats(1)
	if fresh.ChatCountToday != 1 {
		t.Fatalf("UserStats must return a copy, internal state changed: %d", fresh.ChatCountToday)
	}
}
