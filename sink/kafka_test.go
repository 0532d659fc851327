package sink

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"

	"live-stream-bot/model"
)

type stubWriter struct {
	messages []kafka.Message
	err      error
}

func (w *stubWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func TestForwarderPublishesGiftEnvelope(t *testing.T) {
	w := &stubWriter{}
	f := NewForwarder(w, time.Second)

	f.OnGift(model.GiftEvent{
		UserID:     123456,
		Username:   "user",
		GiftName:   "rose",
		Quantity:   5,
		CoinType:   model.CoinGold,
		TotalValue: 5000,
		Timestamp:  1700000000,
	})

	require.Len(t, w.messages, 1)
	require.Equal(t, []byte("123456"), w.messages[0].Key)

	var env map[string]any
	require.NoError(t, json.Unmarshal(w.messages[0].Value, &env))
	require.Equal(t, "gift", env["type"])
	require.EqualValues(t, 123456, env["user_id"])

	payload, ok := env["payload"].(map[string]any)
	require.True(t, ok, "payload must be an object")
	require.Equal(t, "rose", payload["gift_name"])
	require.EqualValues(t, 5, payload["quantity"])
}

func TestForwarderPublishesEachVariant(t *testing.T) {
	w := &stubWriter{}
	f := NewForwarder(w, time.Second)

	f.OnChatMessage(model.ChatMessage{UserID: 1, Username: "a", Content: "hi", Timestamp: 1})
	f.OnSuperChat(model.SuperChatEvent{UserID: 2, Username: "b", PriceCNY: 50, MessageID: 9, Timestamp: 2})
	f.OnGuardPurchase(model.GuardPurchaseEvent{UserID: 3, Username: "c", GuardLevel: model.GuardCaptain, Quantity: 1, Timestamp: 3})

	require.Len(t, w.messages, 3)

	types := make([]string, 0, len(w.messages))
	for _, msg := range w.messages {
		var env map[string]any
		require.NoError(t, json.Unmarshal(msg.Value, &env))
		types = append(types, env["type"].(string))
	}
	require.Equal(t, []string{"chat", "super_chat", "guard_purchase"}, types)
}

func TestForwarderSwallowsWriteErrors(t *testing.T) {
	w := &stubWriter{err: errors.New("broker down")}
	f := NewForwarder(w, time.Second)

	require.NotPanics(t, func() {
		f.OnChatMessage(model.ChatMessage{UserID: 1, Username: "a", Content: "hi"})
	})
}

func TestForwarderConnectionErrorNotPublished(t *testing.T) {
	w := &stubWriter{}
	f := NewForwarder(w, time.Second)

	f.OnConnectionError(errors.New("socket closed"))

	require.Empty(t, w.messages)
}
