package sink

import (
	"context"
	"encoding/json"
	"log"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"

	"live-stream-bot/model"
)

// NewWriter возвращает kafka-go writer с настройками под поток событий
// трансляции: ключом служит user_id, так что события одного пользователя
// попадают в одну партицию.
func NewWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		Async:        true,
		BatchTimeout: 250 * time.Millisecond,
	}
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// envelope задаёт wire-формат события в топике: тип плюс полное
// нормализованное событие.
type envelope struct {
	Type     string      `json:"type"`
	UserID   int64       `json:"user_id"`
	Username string      `json:"username"`
	TS       float64     `json:"ts"`
	Payload  model.Event `json:"payload"`
}

// Forwarder публикует каждое нормализованное событие в Kafka для внешних
// потребителей. Ошибки публикации логируются и не влияют на остальной
// конвейер.
type Forwarder struct {
	writer  messageWriter
	timeout time.Duration
}

func NewForwarder(writer messageWriter, timeout time.Duration) *Forwarder {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Forwarder{writer: writer, timeout: timeout}
}

func (f *Forwarder) OnChatMessage(msg model.ChatMessage) {
	f.publish("chat", msg.UserID, msg.Username, msg.Timestamp, msg)
}

func (f *Forwarder) OnGift(gift model.GiftEvent) {
	f.publish("gift", gift.UserID, gift.Username, gift.Timestamp, gift)
}

func (f *Forwarder) OnSuperChat(sc model.SuperChatEvent) {
	f.publish("super_chat", sc.UserID, sc.Username, sc.Timestamp, sc)
}

func (f *Forwarder) OnGuardPurchase(guard model.GuardPurchaseEvent) {
	f.publish("guard_purchase", guard.UserID, guard.Username, guard.Timestamp, guard)
}

// OnConnectionError ошибок соединения в топик не публикует: это не событие
// трансляции.
func (f *Forwarder) OnConnectionError(err error) {
	log.Printf("kafka-форвардер: ошибка соединения с платформой: %v", err)
}

func (f *Forwarder) publish(kind string, userID int64, username string, ts float64, ev model.Event) {
	value, err := json.Marshal(envelope{
		Type:     kind,
		UserID:   userID,
		Username: username,
		TS:       ts,
		Payload:  ev,
	})
	if err != nil {
		log.Printf("kafka-форвардер: сериализация %s: %v", kind, err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), f.timeout)
	defer cancel()

	err = f.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(strconv.FormatInt(userID, 10)),
		Value: value,
	})
	if err != nil {
		log.Printf("kafka-форвардер: публикация %s: %v", kind, err)
	}
}
