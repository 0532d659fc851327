package livestream

import (
	"errors"
	"testing"

	"live-stream-bot/model"
)

type recordingHandler struct {
	calls   []string
	chats   []model.ChatMessage
	gifts   []model.GiftEvent
	errs    []error
	panicOn string
}

func (h *recordingHandler) OnChatMessage(m model.ChatMessage) {
	h.record("OnChatMessage")
	h.chats = append(h.chats, m)
}

func (h *recordingHandler) OnGift(g model.GiftEvent) {
	h.record("OnGift")
	h.gifts = append(h.gifts, g)
}

func (h *recordingHandler) OnSuperChat(sc model.SuperChatEvent) {
	h.record("OnSuperChat")
}

func (h *recordingHandler) OnGuardPurchase(g model.GuardPurchaseEvent) {
	h.record("OnGuardPurchase")
}

func (h *recordingHandler) OnConnectionError(err error) {
	h.record("OnConnectionError")
	h.errs = append(h.errs, err)
}

func (h *recordingHandler) record(callback string) {
	h.calls = append(h.calls, callback)
	if h.panicOn == callback {
		panic("handler failure")
	}
}

func TestAddHandlerIsIdempotent(t *testing.T) {
	d := NewDispatcher()
	h := &recordingHandler{}

	d.AddHandler(h)
	d.AddHandler(h)

	if got := d.HandlerCount(); got != 1 {
		t.Fatalf("expected 1 handler after double add, got %d", got)
	}

	d.Publish(model.ChatMessage{UserID: 1, Username: "u", Content: "hi"})
	if len(h.chats) != 1 {
		t.Fatalf("expected exactly 1 delivery, got %d", len(h.chats))
	}
}

func TestRemoveAbsentHandlerIsNoop(t *testing.T) {
	d := NewDispatcher()
	h := &recordingHandler{}

	d.RemoveHandler(h)

	d.AddHandler(h)
	d.RemoveHandler(h)
	d.RemoveHandler(h)

	if got := d.HandlerCount(); got != 0 {
		t.Fatalf("expected 0 handlers, got %d", got)
	}
}

func TestPublishDeliversInRegistrationOrder(t *testing.T) {
	d := NewDispatcher()
	var order []int
	first := &orderedHandler{id: 1, order: &order}
	second := &orderedHandler{id: 2, order: &order}

	d.AddHandler(first)
	d.AddHandler(second)
	d.Publish(model.GiftEvent{UserID: 1, Username: "u", GiftName: "rose", Quantity: 1})

	if len(order) != 2 || order[0] != 1 || order[1] != 2 {
		t.Fatalf("unexpected delivery order: %v", order)
	}
}

func TestPanickingHandlerDoesNotBlockSiblings(t *testing.T) {
	d := NewDispatcher()
	failing := &recordingHandler{panicOn: "OnGift"}
	healthy := &recordingHandler{}

	d.AddHandler(failing)
	d.AddHandler(healthy)

	gift := model.GiftEvent{UserID: 42, Username: "u", GiftName: "rose", Quantity: 2}
	d.Publish(gift)
	d.Publish(gift)

	if len(healthy.gifts) != 2 {
		t.Fatalf("healthy handler expected 2 gifts, got %d", len(healthy.gifts))
	}
	if healthy.gifts[0].Quantity != 2 {
		t.Fatalf("unexpected gift payload: %+v", healthy.gifts[0])
	}
}

func TestPublishConnectionErrorReachesAllHandlers(t *testing.T) {
	d := NewDispatcher()
	first := &recordingHandler{panicOn: "OnConnectionError"}
	second := &recordingHandler{}

	d.AddHandler(first)
	d.AddHandler(second)

	cause := errors.New("socket closed")
	d.PublishConnectionError(cause)

	if len(second.errs) != 1 || !errors.Is(second.errs[0], cause) {
		t.Fatalf("second handler did not receive connection error: %v", second.errs)
	}
}

type recordingObserver struct {
	drops      []string
	duplicates []string
	panics     []string
}

func (o *recordingObserver) EventDropped(reason string) { o.drops = append(o.drops, reason) }
func (o *recordingObserver) DuplicateEvent(kind string) { o.duplicates = append(o.duplicates, kind) }
func (o *recordingObserver) HandlerPanic(handler, callback string) {
	o.panics = append(o.panics, handler+"/"+callback)
}

func TestHandlerPanicReportedToObserver(t *testing.T) {
	obs := &recordingObserver{}
	SetObserver(obs)
	defer SetObserver(nil)

	d := NewDispatcher()
	d.AddHandler(&recordingHandler{panicOn: "OnGift"})
	d.Publish(model.GiftEvent{UserID: 1, Username: "u", GiftName: "rose", Quantity: 1})

	if len(obs.panics) != 1 {
		t.Fatalf("expected 1 reported panic, got %d", len(obs.panics))
	}
	if obs.panics[0] != "*livestream.recordingHandler/OnGift" {
		t.Fatalf("unexpected panic report: %s", obs.panics[0])
	}
}

func TestSetObserverNilRestoresNoop(t *testing.T) {
	SetObserver(nil)

	d := NewDispatcher()
	d.AddHandler(&recordingHandler{panicOn: "OnGift"})
	// сигнал поглощается наблюдателем по умолчанию
	d.Publish(model.GiftEvent{UserID: 1, Username: "u", GiftName: "rose", Quantity: 1})
}

type orderedHandler struct {
	id    int
	order *[]int
}

func (h *orderedHandler) OnChatMessage(model.ChatMessage)       { *h.order = append(*h.order, h.id) }
func (h *orderedHandler) OnGift(model.GiftEvent)                { *h.order = append(*h.order, h.id) }
func (h *orderedHandler) OnSuperChat(model.SuperChatEvent)      { *h.order = append(*h.order, h.id) }
func (h *orderedHandler) OnGuardPurchase(model.GuardPurchaseEvent) {
	*h.order = append(*h.order, h.id)
}
func (h *orderedHandler) OnConnectionError(error) { *h.order = append(*h.order, h.id) }
