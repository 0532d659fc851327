package bot

import (
	"log"

	"live-stream-bot/livestream"
	"live-stream-bot/model"
)

// Config настраивает ядро приложения.
type Config struct {
	DedupCapacity int // при нуле используется DefaultDedupCapacity
}

// Bot реализует платформо-независимое ядро: дедупликация плюс агрегация
// статистики за контрактом livestream.Handler. Ничего не знает ни о
// bilibili, ни о twitch, работает только с доменной моделью.
type Bot struct {
	dedup *Deduplicator
	stats *Aggregator
}

func New(cfg Config) *Bot {
	return &Bot{
		dedup: NewDeduplicator(cfg.DedupCapacity),
		stats: NewAggregator(),
	}
}

// OnChatMessage обрабатывает сообщение чата; чат не дедуплицируется.
func (b *Bot) OnChatMessage(msg model.ChatMessage) {
	b.stats.Apply(msg)
	log.Printf("[CHAT] %s(%d): %s", msg.Username, msg.UserID, msg.Content)
}

// OnGift обрабатывает подарок с дедупликацией по отпечатку.
func (b *Bot) OnGift(gift model.GiftEvent) {
	if !b.dedup.CheckAndMark(Fingerprint(gift)) {
		log.Printf("[GIFT] дубликат от %s(%d), пропуск", gift.Username, gift.UserID)
		livestream.DuplicateEvent("gift")
		return
	}
	b.stats.Apply(gift)
	st, _ := b.stats.UserStats(gift.UserID)
	log.Printf("[GIFT] %s(%d) отправил %dx %s (¥%.2f) | всего за день=%d",
		gift.Username, gift.UserID, gift.Quantity, gift.GiftName, gift.ValueCNY(), st.GiftCountToday)
}

// OnSuperChat обрабатывает платное сообщение с дедупликацией.
func (b *Bot) OnSuperChat(sc model.SuperChatEvent) {
	if !b.dedup.CheckAndMark(Fingerprint(sc)) {
		log.Printf("[SC] дубликат от %s(%d), пропуск", sc.Username, sc.UserID)
		livestream.DuplicateEvent("super_chat")
		return
	}
	b.stats.Apply(sc)
	st, _ := b.stats.UserStats(sc.UserID)
	log.Printf("[SC] %s(%d) ¥%.2f: %s | сумма за день=¥%.2f",
		sc.Username, sc.UserID, sc.PriceCNY, sc.Message, st.GiftValueToday)
}

// OnGuardPurchase обрабатывает покупку подписки с дедупликацией.
func (b *Bot) OnGuardPurchase(guard model.GuardPurchaseEvent) {
	if !b.dedup.CheckAndMark(Fingerprint(guard)) {
		log.Printf("[GUARD] дубликат от %s(%d), пропуск", guard.Username, guard.UserID)
		livestream.DuplicateEvent("guard_purchase")
		return
	}
	b.stats.Apply(guard)
	log.Printf("[GUARD] %s(%d) купил %s x%d",
		guard.Username, guard.UserID, guard.GuardLevel, guard.Quantity)
}

// OnConnectionError фиксирует ошибку соединения; повторное подключение
// остаётся заботой транспорта, не ядра.
func (b *Bot) OnConnectionError(err error) {
	log.Printf("бот: ошибка соединения: %v", err)
}

// Summary возвращает агрегированный снимок статистики.
func (b *Bot) Summary() model.Summary {
	return b.stats.Summary()
}

// UserStats возвращает копию статистики пользователя.
func (b *Bot) UserStats(userID int64) (model.UserStats, bool) {
	return b.stats.UserStats(userID)
}

// TrackedUsers возвращает число отслеживаемых пользователей.
func (b *Bot) TrackedUsers() int {
	return b.stats.TrackedUsers()
}

// DedupSize возвращает текущий размер кэша отпечатков.
func (b *Bot) DedupSize() int {
	return b.dedup.Size()
}

// DedupClears возвращает число полных очисток кэша отпечатков.
func (b *Bot) DedupClears() uint64 {
	return b.dedup.Clears()
}
