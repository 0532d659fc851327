package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"live-stream-bot/bot"
	"live-stream-bot/livestream"
)

// Service управляет жизненным циклом адаптера и периодически пишет в лог
// агрегированную статистику ядра.
type Service struct {
	adapter      livestream.Adapter
	bot          *bot.Bot
	roomID       string
	summaryEvery time.Duration
}

// New создаёт Service; обработчики должны быть зарегистрированы на
// адаптере до вызова Run.
func New(adapter livestream.Adapter, b *bot.Bot, roomID string, summaryEvery time.Duration) *Service {
	return &Service{
		adapter:      adapter,
		bot:          b,
		roomID:       roomID,
		summaryEvery: summaryEvery,
	}
}

// Run подключает адаптер, запускает приём событий и блокируется до отмены
// контекста. Останов идемпотентен и выполняется при любом исходе.
func (s *Service) Run(ctx context.Context) error {
	if err := s.adapter.Connect(ctx, s.roomID); err != nil {
		return fmt.Errorf("подключение к комнате %s: %w", s.roomID, err)
	}
	if err := s.adapter.Start(); err != nil {
		return fmt.Errorf("запуск приёма событий: %w", err)
	}

	defer func() {
		if err := s.adapter.Stop(); err != nil {
			log.Printf("сервис: ошибка останова адаптера: %v", err)
		}
		if err := s.adapter.Disconnect(); err != nil {
			log.Printf("сервис: ошибка отключения адаптера: %v", err)
		}
	}()

	ticker := time.NewTicker(s.summaryEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Printf("сервис: контекст отменён, завершение")
			return ctx.Err()
		case <-ticker.C:
			summary := s.bot.Summary()
			log.Printf("сервис: пользователей=%d подарков=%d сумма=¥%.2f",
				summary.TotalUsers, summary.TotalGiftCount, summary.TotalGiftValue)
		}
	}
}
