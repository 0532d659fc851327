package storage

import (
	"context"
	"log"
	"sync/atomic"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"live-stream-bot/model"
)

// BatchConfig задаёт параметры батчинга для вставки сообщений чата.
type BatchConfig struct {
	MaxBatch      int
	FlushEvery    time.Duration
	ChanBuffer    int
	StatsLogEvery time.Duration
	FlushTimeout  time.Duration
}

// Batcher асинхронно вставляет нормализованные сообщения чата через
// pgx.Batch. Переполнение очереди приводит к отбрасыванию сообщения,
// конвейер доставки при этом не блокируется.
type Batcher struct {
	input   chan model.ChatMessage
	config  BatchConfig
	sender  batchSender
	dropped atomic.Uint64
}

type batchSender interface {
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// NewBatcher создаёт батчер и запускает фоновые флаши.
func NewBatcher(ctx context.Context, pool *pgxpool.Pool, cfg BatchConfig) *Batcher {
	return newBatcher(ctx, pool, cfg)
}

// Enqueue пытается добавить сообщение в очередь; при переполнении возвращает false.
func (b *Batcher) Enqueue(msg model.ChatMessage) bool {
	select {
	case b.input <- msg:
		return true
	default:
		dropped := b.dropped.Add(1)
		if dropped%100 == 0 {
			log.Printf("батчер: очередь заполнена, всего отброшено %d сообщений", dropped)
		}
		return false
	}
}

// Dropped возвращает число сообщений, отброшенных из-за переполнения.
func (b *Batcher) Dropped() uint64 {
	return b.dropped.Load()
}

func (b *Batcher) run(ctx context.Context) {
	flushTicker := time.NewTicker(b.config.FlushEvery)
	statsTicker := time.NewTicker(b.config.StatsLogEvery)
	defer flushTicker.Stop()
	defer statsTicker.Stop()

	var (
		batch            = &pgx.Batch{}
		pending          = 0
		totalInserted    uint64
		intervalInserted uint64
	)

	const q = `
insert into chat_messages (
  user_id, username, content, user_level, medal_name, is_admin, is_vip, sent_at
) values ($1,$2,$3,$4,$5,$6,$7,$8);`

	flush := func() {
		if pending == 0 {
			return
		}

		dbCtx, cancel := context.WithTimeout(context.Background(), b.config.FlushTimeout)
		defer cancel()

		br := b.sender.SendBatch(dbCtx, batch)
		if err := br.Close(); err != nil {
			log.Printf("ошибка флаша батчера: %v", err)
		}

		totalInserted += uint64(pending)
		intervalInserted += uint64(pending)

		batch = &pgx.Batch{}
		pending = 0
	}

	for {
		select {
		case <-ctx.Done():
			flush()
			log.Printf("батчер: контекст отменён, всего вставлено строк = %d", totalInserted)
			return
		case <-flushTicker.C:
			flush()
		case <-statsTicker.C:
			log.Printf(
				"батчер: вставлено %d строк за %s (всего %d)",
				intervalInserted, b.config.StatsLogEvery, totalInserted,
			)
			intervalInserted = 0
		case msg := <-b.input:
			batch.Queue(q,
				msg.UserID, msg.Username, msg.Content, msg.UserLevel, nullable(msg.MedalName),
				msg.IsAdmin, msg.IsVIP, eventTime(msg.Timestamp),
			)
			pending++
			if pending >= b.config.MaxBatch {
				flush()
			}
		}
	}
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// eventTime переводит таймстамп события (секунды с начала эпохи) в UTC.
func eventTime(ts float64) time.Time {
	return time.Unix(0, int64(ts*float64(time.Second))).UTC()
}

func newBatcher(ctx context.Context, sender batchSender, cfg BatchConfig) *Batcher {
	b := &Batcher{
		input:  make(chan model.ChatMessage, cfg.ChanBuffer),
		config: cfg,
		sender: sender,
	}

	go b.run(ctx)

	return b
}
