package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"live-stream-bot/bot"
	"live-stream-bot/model"
)

// Collector считает прошедшие через диспетчер события и сигналы деградации
// конвейера. Регистрируется наравне с остальными обработчиками и как
// livestream.Observer; на конвейер не влияет.
type Collector struct {
	events           *prometheus.CounterVec
	connectionErrors prometheus.Counter
	dropped          *prometheus.CounterVec
	duplicates       *prometheus.CounterVec
	handlerErrors    *prometheus.CounterVec
}

// NewCollector регистрирует счётчики конвейера в переданном реестре.
func NewCollector(reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)
	return &Collector{
		events: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "livestream_events_total",
			Help: "Normalized events delivered to handlers, by variant",
		}, []string{"type"}),
		connectionErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "livestream_connection_errors_total",
			Help: "Connection errors surfaced by the transport",
		}),
		dropped: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "livestream_dropped_total",
			Help: "Raw messages dropped at the adapter boundary, by message kind",
		}, []string{"reason"}),
		duplicates: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "livestream_duplicate_events_total",
			Help: "Events rejected by the deduplicator, by variant",
		}, []string{"type"}),
		handlerErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "livestream_handler_errors_total",
			Help: "Handler panics recovered by the dispatcher",
		}, []string{"handler", "callback"}),
	}
}

func (c *Collector) OnChatMessage(model.ChatMessage) {
	c.events.WithLabelValues("chat").Inc()
}

func (c *Collector) OnGift(model.GiftEvent) {
	c.events.WithLabelValues("gift").Inc()
}

func (c *Collector) OnSuperChat(model.SuperChatEvent) {
	c.events.WithLabelValues("super_chat").Inc()
}

func (c *Collector) OnGuardPurchase(model.GuardPurchaseEvent) {
	c.events.WithLabelValues("guard_purchase").Inc()
}

func (c *Collector) OnConnectionError(error) {
	c.connectionErrors.Inc()
}

// EventDropped реализует livestream.Observer.
func (c *Collector) EventDropped(reason string) {
	c.dropped.WithLabelValues(reason).Inc()
}

// DuplicateEvent реализует livestream.Observer.
func (c *Collector) DuplicateEvent(kind string) {
	c.duplicates.WithLabelValues(kind).Inc()
}

// HandlerPanic реализует livestream.Observer.
func (c *Collector) HandlerPanic(handler, callback string) {
	c.handlerErrors.WithLabelValues(handler, callback).Inc()
}

// RegisterStateGauges публикует внутреннее состояние ядра как метрики:
// число отслеживаемых пользователей, размер кэша отпечатков и счётчик его
// полных очисток.
func RegisterStateGauges(reg prometheus.Registerer, b *bot.Bot) {
	factory := promauto.With(reg)
	factory.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "livestream_tracked_users",
		Help: "Users with per-user stats in memory",
	}, func() float64 { return float64(b.TrackedUsers()) })
	factory.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "livestream_dedup_cache_size",
		Help: "Fingerprints currently held by the deduplicator",
	}, func() float64 { return float64(b.DedupSize()) })
	factory.NewCounterFunc(prometheus.CounterOpts{
		Name: "livestream_dedup_cache_clears_total",
		Help: "Full clears of the fingerprint cache",
	}, func() float64 { return float64(b.DedupClears()) })
}
