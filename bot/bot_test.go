package bot

import (
	"testing"

	"live-stream-bot/livestream"
	"live-stream-bot/model"
)

// Сквозной сценарий: пользователь 123456 пишет в чат и дарит подарок,
// повторная доставка того же подарка статистику не меняет.
func TestEndToEndScenario(t *testing.T) {
	b := New(Config{})
	d := livestream.NewDispatcher()
	d.AddHandler(b)

	d.Publish(model.ChatMessage{
		UserID:    123456,
		Username:  "测试用户A",
		Content:   "主播好！",
		Timestamp: 1700000000,
	})

	gift := model.GiftEvent{
		UserID:     123456,
		Username:   "测试用户A",
		GiftName:   "item",
		Quantity:   5,
		CoinType:   model.CoinGold,
		TotalValue: 5000,
		Timestamp:  1700000100,
	}
	d.Publish(gift)

	st, ok := b.UserStats(123456)
	if !ok {
		t.Fatalf("expected stats for user 123456")
	}
	if st.ChatCountToday != 1 || st.GiftCountToday != 5 || st.GiftValueToday != 5.0 {
		t.Fatalf("unexpected stats after first delivery: %+v", st)
	}

	// идентичная повторная доставка считается дубликатом
	d.Publish(gift)

	st, _ = b.UserStats(123456)
	if st.GiftCountToday != 5 {
		t.Fatalf("duplicate gift must not be counted twice: got %d", st.GiftCountToday)
	}
	if st.GiftValueToday != 5.0 {
		t.Fatalf("duplicate gift must not add value: got %v", st.GiftValueToday)
	}
}

func TestDedupIdempotencePerVariant(t *testing.T) {
	b := New(Config{})

	sc := model.SuperChatEvent{UserID: 1, Username: "u", PriceCNY: 50, MessageID: 777, Timestamp: 1700000000}
	b.OnSuperChat(sc)
	b.OnSuperChat(sc)

	st, _ := b.UserStats(1)
	if st.GiftValueToday != 50.0 {
		t.Fatalf("expected 50.0 after duplicate super chat, got %v", st.GiftValueToday)
	}

	guard := model.GuardPurchaseEvent{UserID: 2, Username: "v", GuardLevel: model.GuardCaptain, Quantity: 1, Timestamp: 1700000000}
	b.OnGuardPurchase(guard)
	b.OnGuardPurchase(guard)

	if _, ok := b.UserStats(2); !ok {
		t.Fatalf("guard purchase must create user stats")
	}
}

func TestChatIsNeverDeduplicated(t *testing.T) {
	b := New(Config{})

	msg := model.ChatMessage{UserID: 3, Username: "u", Content: "spam", Timestamp: 1700000000}
	b.OnChatMessage(msg)
	b.OnChatMessage(msg)

	st, _ := b.UserStats(3)
	if st.ChatCountToday != 2 {
		t.Fatalf("identical chat lines are distinct events, expected 2, got %d", st.ChatCountToday)
	}
}

func TestHandlerIsolationKeepsStatsCorrect(t *testing.T) {
	b := New(Config{})
	d := livestream.NewDispatcher()
	d.AddHandler(panickyHandler{})
	d.AddHandler(b)

	for i := 0; i < 3; i++ {
		d.Publish(model.GiftEvent{
			UserID:     9,
			Username:   "u",
			GiftName:   "rose",
			Quantity:   1,
			CoinType:   model.CoinGold,
			TotalValue: 1000,
			Timestamp:  float64(1700000000 + i),
		})
	}

	st, _ := b.UserStats(9)
	if st.GiftCountToday != 3 || st.GiftValueToday != 3.0 {
		t.Fatalf("sibling failure must not affect bot stats: %+v", st)
	}
}

func TestDuplicateReportedToObserver(t *testing.T) {
	obs := &countingObserver{}
	livestream.SetObserver(obs)
	defer livestream.SetObserver(nil)

	b := New(Config{})
	gift := model.GiftEvent{
		UserID:     1,
		Username:   "u",
		GiftName:   "rose",
		Quantity:   1,
		CoinType:   model.CoinGold,
		TotalValue: 1000,
		Timestamp:  1700000000,
	}
	b.OnGift(gift)
	b.OnGift(gift)

	sc := model.SuperChatEvent{UserID: 1, Username: "u", PriceCNY: 50, MessageID: 1, Timestamp: 1700000000}
	b.OnSuperChat(sc)
	b.OnSuperChat(sc)

	if got := obs.duplicates["gift"]; got != 1 {
		t.Fatalf("expected 1 reported gift duplicate, got %d", got)
	}
	if got := obs.duplicates["super_chat"]; got != 1 {
		t.Fatalf("expected 1 reported super chat duplicate, got %d", got)
	}
}

type countingObserver struct {
	duplicates map[string]int
}

func (o *countingObserver) EventDropped(string) {}
func (o *countingObserver) DuplicateEvent(kind string) {
	if o.duplicates == nil {
		o.duplicates = make(map[string]int)
	}
	o.duplicates[kind]++
}
func (o *countingObserver) HandlerPanic(string, string) {}

type panickyHandler struct{}

func (panickyHandler) OnChatMessage(model.ChatMessage)          { panic("broken handler") }
func (panickyHandler) OnGift(model.GiftEvent)                   { panic("broken handler") }
func (panickyHandler) OnSuperChat(model.SuperChatEvent)         { panic("broken handler") }
func (panickyHandler) OnGuardPurchase(model.GuardPurchaseEvent) { panic("broken handler") }
func (panickyHandler) OnConnectionError(error)                  { panic("broken handler") }
