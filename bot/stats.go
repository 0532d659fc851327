package bot

import (
	"sync"
	"time"

	"live-stream-bot/model"
)

// Aggregator сворачивает принятые события в статистику по пользователям.
// Записи создаются лениво при первом событии пользователя и живут до
// завершения процесса.
type Aggregator struct {
	mu    sync.Mutex
	users map[int64]*model.UserStats
}

func NewAggregator() *Aggregator {
	return &Aggregator{users: make(map[int64]*model.UserStats)}
}

// Apply маршрутизирует событие по варианту. Траты на подписку намеренно не
// входят в gift_value_today: покупка подписки обновляет только last_seen.
func (a *Aggregator) Apply(ev model.Event) {
	a.mu.Lock()
	defer a.mu.Unlock()

	switch e := ev.(type) {
	case model.ChatMessage:
		st := a.userStats(e.UserID)
		st.ChatCountToday++
		st.LastSeenTS = nowTS()
	case model.GiftEvent:
		st := a.userStats(e.UserID)
		st.GiftCountToday += e.Quantity
		st.GiftValueToday += e.ValueCNY()
		st.LastSeenTS = nowTS()
	case model.SuperChatEvent:
		st := a.userStats(e.UserID)
		st.GiftValueToday += e.PriceCNY
		st.LastSeenTS = nowTS()
	case model.GuardPurchaseEvent:
		st := a.userStats(e.UserID)
		st.LastSeenTS = nowTS()
	}
}

// UserStats возвращает копию статистики пользователя.
func (a *Aggregator) UserStats(userID int64) (model.UserStats, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	st, ok := a.users[userID]
	if !ok {
		return model.UserStats{}, false
	}
	return *st, true
}

// Summary сворачивает статистику всех пользователей в момент вызова;
// это проекция для чтения, а не поддерживаемый на лету счётчик.
func (a *Aggregator) Summary() model.Summary {
	a.mu.Lock()
	defer a.mu.Unlock()

	s := model.Summary{TotalUsers: len(a.users)}
	for _, st := range a.users {
		s.TotalGiftCount += st.GiftCountToday
		s.TotalGiftValue += st.GiftValueToday
	}
	return s
}

// TrackedUsers возвращает число отслеживаемых пользователей.
func (a *Aggregator) TrackedUsers() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.users)
}

func (a *Aggregator) userStats(userID int64) *model.UserStats {
	st, ok := a.users[userID]
	if !ok {
		st = &model.UserStats{}
		a.users[userID] = st
	}
	return st
}

func nowTS() float64 {
	return float64(time.Now().UnixNano()) / float64(time.Second)
}
