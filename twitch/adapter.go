package twitch

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"
	"sync"
	"time"

	twitchirc "github.com/gempir/go-twitch-irc/v4"

	"live-stream-bot/livestream"
	"live-stream-bot/model"
)

type state int

const (
	stateIdle state = iota
	stateConnected
	stateStreaming
	stateStopped
)

// Config содержит учётные данные Twitch IRC клиента.
type Config struct {
	Username   string
	OAuthToken string // должен начинаться с "oauth:"
}

// Adapter оборачивает go-twitch-irc и транслирует его события в доменную
// модель. Вторая реализация контракта livestream.Adapter: подтверждает,
// что остальной конвейер от платформы не зависит.
type Adapter struct {
	cfg        Config
	dispatcher *livestream.Dispatcher

	mu      sync.Mutex
	state   state
	channel string
	client  *twitchirc.Client
	joined  bool
}

func New(cfg Config) *Adapter {
	return &Adapter{
		cfg:        cfg,
		dispatcher: livestream.NewDispatcher(),
		state:      stateIdle,
	}
}

// Connect готовит IRC-клиент; в roomID передаётся имя канала.
func (a *Adapter) Connect(_ context.Context, roomID string) error {
	channel := strings.TrimPrefix(strings.TrimSpace(roomID), "#")
	if channel == "" {
		return fmt.Errorf("twitch: требуется имя канала")
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	switch a.state {
	case stateStopped:
		return livestream.ErrStopped
	case stateConnected, stateStreaming:
		return livestream.ErrConnected
	}

	client := twitchirc.NewClient(a.cfg.Username, a.cfg.OAuthToken)

	client.OnPrivateMessage(func(m twitchirc.PrivateMessage) {
		a.handlePrivateMessage(m)
	})
	client.OnUserNoticeMessage(func(m twitchirc.UserNoticeMessage) {
		a.handleUserNotice(m)
	})
	client.OnConnect(func() {
		log.Printf("twitch: подключено, подписка на канал %s", channel)
		a.mu.Lock()
		a.joined = true
		a.mu.Unlock()
		client.Join(channel)
	})

	a.client = client
	a.channel = channel
	a.state = stateConnected
	return nil
}

// Start запускает IRC-соединение в фоне; ошибку подключения получают все
// обработчики через OnConnectionError.
func (a *Adapter) Start() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	switch a.state {
	case stateIdle:
		return livestream.ErrNotConnected
	case stateStopped:
		return livestream.ErrStopped
	case stateStreaming:
		return nil
	}

	client := a.client
	go func() {
		if err := client.Connect(); err != nil {
			a.mu.Lock()
			stopped := a.state == stateStopped
			a.mu.Unlock()
			if !stopped {
				log.Printf("twitch: соединение завершилось: %v", err)
				a.dispatcher.PublishConnectionError(err)
			}
		}
	}()
	a.state = stateStreaming
	return nil
}

// Stop отключает клиента; повторные вызовы безопасны.
func (a *Adapter) Stop() error {
	a.mu.Lock()
	if a.state == stateStopped || a.state == stateIdle {
		a.state = stateStopped
		a.mu.Unlock()
		return nil
	}
	client := a.client
	a.state = stateStopped
	a.joined = false
	a.mu.Unlock()

	if client != nil {
		if err := client.Disconnect(); err != nil {
			return fmt.Errorf("twitch: отключение: %w", err)
		}
	}
	return nil
}

func (a *Adapter) Disconnect() error {
	return a.Stop()
}

func (a *Adapter) IsConnected() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	switch a.state {
	case stateConnected:
		return true
	case stateStreaming:
		return a.joined
	default:
		return false
	}
}

func (a *Adapter) AddHandler(h livestream.Handler) {
	a.dispatcher.AddHandler(h)
}

func (a *Adapter) RemoveHandler(h livestream.Handler) {
	a.dispatcher.RemoveHandler(h)
}

// handlePrivateMessage даёт ровно одно событие на сырое сообщение:
// PRIVMSG с битами считается подарком, без битов сообщением чата.
func (a *Adapter) handlePrivateMessage(m twitchirc.PrivateMessage) {
	userID, err := strconv.ParseInt(m.User.ID, 10, 64)
	if err != nil || userID == 0 {
		log.Printf("twitch: PRIVMSG отброшено: отсутствует user id")
		livestream.EventDropped("privmsg")
		return
	}
	if m.User.Name == "" {
		log.Printf("twitch: PRIVMSG отброшено: отсутствует имя пользователя")
		livestream.EventDropped("privmsg")
		return
	}

	ts := timestamp(m.Time)

	if m.Bits > 0 {
		// 1 бит учитывается как 100 золотых монет
		a.dispatcher.Publish(model.GiftEvent{
			UserID:     userID,
			Username:   m.User.Name,
			GiftName:   "bits",
			Quantity:   m.Bits,
			CoinType:   model.CoinGold,
			TotalValue: int64(m.Bits) * 100,
			Timestamp:  ts,
		})
		return
	}

	if m.Message == "" {
		log.Printf("twitch: PRIVMSG отброшено: пустой текст сообщения")
		livestream.EventDropped("privmsg")
		return
	}

	a.dispatcher.Publish(model.ChatMessage{
		UserID:    userID,
		Username:  m.User.Name,
		Content:   m.Message,
		Timestamp: ts,
		IsAdmin:   m.User.Badges["moderator"] > 0 || m.User.Badges["broadcaster"] > 0,
		IsVIP:     m.User.Badges["vip"] > 0,
	})
}

// handleUserNotice транслирует покупку подписки в GuardPurchaseEvent;
// остальные USERNOTICE игнорируются.
func (a *Adapter) handleUserNotice(m twitchirc.UserNoticeMessage) {
	switch m.MsgID {
	case "sub", "resub", "subgift":
	default:
		return
	}

	userID, err := strconv.ParseInt(m.User.ID, 10, 64)
	if err != nil || userID == 0 || m.User.Name == "" {
		log.Printf("twitch: USERNOTICE %s отброшено: отсутствует пользователь", m.MsgID)
		livestream.EventDropped("usernotice")
		return
	}

	a.dispatcher.Publish(model.GuardPurchaseEvent{
		UserID:     userID,
		Username:   m.User.Name,
		GuardLevel: subPlanLevel(m.MsgParams["msg-param-sub-plan"]),
		Quantity:   1,
		Timestamp:  noticeTimestamp(m.Tags),
	})
}

// subPlanLevel отображает тариф подписки Twitch на уровни подписки
// доменной модели: tier 1 это captain, tier 2 admiral, tier 3 governor.
func subPlanLevel(plan string) model.GuardLevel {
	switch plan {
	case "3000":
		return model.GuardGovernor
	case "2000":
		return model.GuardAdmiral
	case "1000", "Prime":
		return model.GuardCaptain
	default:
		return model.GuardNone
	}
}

func noticeTimestamp(tags map[string]string) float64 {
	if ts := tags["tmi-sent-ts"]; ts != "" {
		if ms, err := strconv.ParseInt(ts, 10, 64); err == nil {
			return float64(ms) / 1000.0
		}
	}
	return timestamp(time.Time{})
}

func timestamp(t time.Time) float64 {
	if t.IsZero() {
		t = time.Now()
	}
	return float64(t.UnixNano()) / float64(time.Second)
}
