package service

import (
	"context"
	"log"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"live-stream-bot/model"
	"live-stream-bot/storage"
)

// Archiver сохраняет нормализованные события в Postgres: чат идёт через
// батчер, платные события вставляются сразу.
type Archiver struct {
	batcher      *storage.Batcher
	pool         *pgxpool.Pool
	flushTimeout time.Duration
}

// NewArchiver собирает обработчик архивации поверх пула БД.
func NewArchiver(batcher *storage.Batcher, pool *pgxpool.Pool, flushTimeout time.Duration) *Archiver {
	return &Archiver{batcher: batcher, pool: pool, flushTimeout: flushTimeout}
}

// OnChatMessage помещает сообщение чата в очередь батчера.
func (a *Archiver) OnChatMessage(msg model.ChatMessage) {
	if ok := a.batcher.Enqueue(msg); !ok {
		log.Printf("архиватор: сообщение пользователя %d отброшено", msg.UserID)
	}
}

// OnGift сохраняет подарок напрямую через пул БД.
func (a *Archiver) OnGift(gift model.GiftEvent) {
	if err := storage.SaveGift(context.Background(), a.pool, gift, a.flushTimeout); err != nil {
		log.Printf("архиватор: ошибка сохранения подарка от %d: %v", gift.UserID, err)
	}
}

// OnSuperChat сохраняет платное сообщение напрямую через пул БД.
func (a *Archiver) OnSuperChat(sc model.SuperChatEvent) {
	if err := storage.SaveSuperChat(context.Background(), a.pool, sc, a.flushTimeout); err != nil {
		log.Printf("архиватор: ошибка сохранения super chat %d: %v", sc.MessageID, err)
	}
}

// OnGuardPurchase сохраняет покупку подписки напрямую через пул БД.
func (a *Archiver) OnGuardPurchase(guard model.GuardPurchaseEvent) {
	if err := storage.SaveGuardPurchase(context.Background(), a.pool, guard, a.flushTimeout); err != nil {
		log.Printf("архиватор: ошибка сохранения подписки от %d: %v", guard.UserID, err)
	}
}

// OnConnectionError в архив ничего не пишет.
func (a *Archiver) OnConnectionError(err error) {
	log.Printf("архиватор: ошибка соединения с платформой: %v", err)
}
