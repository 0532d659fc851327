package livestream

import (
	"context"
	"errors"

	"live-stream-bot/model"
)

// Ошибки жизненного цикла адаптера.
var (
	ErrNotConnected = errors.New("адаптер не подключён: сначала вызовите Connect")
	ErrConnected    = errors.New("адаптер уже подключён")
	ErrStopped      = errors.New("адаптер остановлен: создайте новый экземпляр")
)

// Handler получает нормализованные события трансляции.
// Реализуется потребителями, включая ядро приложения (bot.Bot).
type Handler interface {
	OnChatMessage(msg model.ChatMessage)
	OnGift(gift model.GiftEvent)
	OnSuperChat(sc model.SuperChatEvent)
	OnGuardPurchase(guard model.GuardPurchaseEvent)
	OnConnectionError(err error)
}

// Adapter задаёт контракт платформенного адаптера. Сегодня bilibili и twitch;
// смена платформы означает новую реализацию этого интерфейса, остальные
// компоненты от платформы не зависят.
type Adapter interface {
	Connect(ctx context.Context, roomID string) error
	Disconnect() error
	Start() error
	Stop() error
	IsConnected() bool
	AddHandler(h Handler)
	RemoveHandler(h Handler)
}
