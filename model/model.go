package model

import "strings"

// CoinType обозначает валюту, которой оплачен подарок.
type CoinType string

const (
	CoinGold    CoinType = "gold"   // платная валюта, 1000 монет = ¥1
	CoinSilver  CoinType = "silver" // бесплатная валюта
	CoinUnknown CoinType = "unknown"
)

// ParseCoinType приводит сырое значение к известному типу валюты;
// нераспознанные значения превращаются в CoinUnknown.
func ParseCoinType(s string) CoinType {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "gold":
		return CoinGold
	case "silver":
		return CoinSilver
	default:
		return CoinUnknown
	}
}

// GuardLevel задаёт уровень платной подписки (大航海).
type GuardLevel int

const (
	GuardNone     GuardLevel = 0
	GuardGovernor GuardLevel = 1 // 总督
	GuardAdmiral  GuardLevel = 2 // 提督
	GuardCaptain  GuardLevel = 3 // 舰长
)

// ParseGuardLevel приводит сырое значение к известному уровню;
// значения вне диапазона превращаются в GuardNone.
func ParseGuardLevel(v int) GuardLevel {
	if v >= int(GuardGovernor) && v <= int(GuardCaptain) {
		return GuardLevel(v)
	}
	return GuardNone
}

func (g GuardLevel) String() string {
	switch g {
	case GuardGovernor:
		return "governor"
	case GuardAdmiral:
		return "admiral"
	case GuardCaptain:
		return "captain"
	default:
		return "none"
	}
}

// Event объединяет нормализованные события прямой трансляции.
// Реализации: ChatMessage, GiftEvent, SuperChatEvent, GuardPurchaseEvent.
type Event interface {
	isEvent()
}

// ChatMessage описывает нормализованное сообщение чата (弹幕).
type ChatMessage struct {
	UserID    int64   `json:"user_id"`
	Username  string  `json:"username"`
	Content   string  `json:"content"`
	Timestamp float64 `json:"ts"` // секунды с начала эпохи

	UserLevel *int   `json:"user_level,omitempty"`
	MedalName string `json:"medal_name,omitempty"`
	IsAdmin   bool   `json:"is_admin"`
	IsVIP     bool   `json:"is_vip"`
}

// GiftEvent описывает нормализованное событие подарка.
type GiftEvent struct {
	UserID     int64      `json:"user_id"`
	Username   string     `json:"username"`
	GiftName   string     `json:"gift_name"`
	Quantity   int        `json:"quantity"`
	CoinType   CoinType   `json:"coin_type"`
	TotalValue int64      `json:"total_value"` // в монетах (瓜子)
	Timestamp  float64    `json:"ts"`
	UnitPrice  *int64     `json:"unit_price,omitempty"`
	GuardLevel GuardLevel `json:"guard_level"`
}

// ValueCNY возвращает стоимость подарка в юанях; бесплатная валюта
// стоимости не имеет.
func (g GiftEvent) ValueCNY() float64 {
	if g.CoinType == CoinGold {
		return float64(g.TotalValue) / 1000.0
	}
	return 0.0
}

// SuperChatEvent описывает платное выделенное сообщение (醒目留言).
type SuperChatEvent struct {
	UserID          int64   `json:"user_id"`
	Username        string  `json:"username"`
	Message         string  `json:"message"`
	PriceCNY        float64 `json:"price_cny"`
	MessageID       int64   `json:"message_id"`
	Timestamp       float64 `json:"ts"`
	DurationSeconds *int    `json:"duration_seconds,omitempty"`
}

// GuardPurchaseEvent описывает покупку подписки.
type GuardPurchaseEvent struct {
	UserID     int64      `json:"user_id"`
	Username   string     `json:"username"`
	GuardLevel GuardLevel `json:"guard_level"`
	Quantity   int        `json:"quantity"`
	PriceCoins int64      `json:"price_coins"`
	Timestamp  float64    `json:"ts"`
}

func (ChatMessage) isEvent()        {}
func (GiftEvent) isEvent()          {}
func (SuperChatEvent) isEvent()     {}
func (GuardPurchaseEvent) isEvent() {}

// UserStats хранит накопленную статистику одного пользователя.
type UserStats struct {
	GiftCountToday int     `json:"gift_count_today"`
	GiftValueToday float64 `json:"gift_value_today"`
	ChatCountToday int     `json:"chat_count_today"`
	LastSeenTS     float64 `json:"last_seen_ts"`
}

// Summary хранит агрегированный снимок по всем отслеживаемым пользователям.
type Summary struct {
	TotalUsers     int     `json:"total_users"`
	TotalGiftCount int     `json:"total_gift_count"`
	TotalGiftValue float64 `json:"total_gift_value"`
}
