package storage

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"live-stream-bot/model"
)

// SaveGift сохраняет событие подарка с учётом заданного таймаута.
func SaveGift(ctx context.Context, pool *pgxpool.Pool, gift model.GiftEvent, timeout time.Duration) error {
	dbCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	_, err := pool.Exec(dbCtx, `
insert into gift_events (
  user_id, username, gift_name, quantity, coin_type, total_value, unit_price, guard_level, sent_at
) values ($1, $2, $3, $4, $5, $6, $7, $8, $9);
`, gift.UserID, gift.Username, gift.GiftName, gift.Quantity, string(gift.CoinType),
		gift.TotalValue, gift.UnitPrice, int(gift.GuardLevel), eventTime(gift.Timestamp))

	return err
}

// SaveSuperChat сохраняет платное сообщение; message_id защищает от
// повторной вставки при редоставке выше по конвейеру.
func SaveSuperChat(ctx context.Context, pool *pgxpool.Pool, sc model.SuperChatEvent, timeout time.Duration) error {
	dbCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	_, err := pool.Exec(dbCtx, `
insert into super_chats (
  message_id, user_id, username, message, price_cny, duration_seconds, sent_at
) values ($1, $2, $3, $4, $5, $6, $7)
on conflict (message_id) do nothing;
`, sc.MessageID, sc.UserID, sc.Username, sc.Message, sc.PriceCNY, sc.DurationSeconds, eventTime(sc.Timestamp))

	return err
}

// SaveGuardPurchase сохраняет покупку подписки.
func SaveGuardPurchase(ctx context.Context, pool *pgxpool.Pool, guard model.GuardPurchaseEvent, timeout time.Duration) error {
	dbCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	_, err := pool.Exec(dbCtx, `
insert into guard_purchases (
  user_id, username, guard_level, quantity, price_coins, sent_at
) values ($1, $2, $3, $4, $5, $6);
`, guard.UserID, guard.Username, int(guard.GuardLevel), guard.Quantity, guard.PriceCoins, eventTime(guard.Timestamp))

	return err
}
