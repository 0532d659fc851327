package bilibili

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"sync"

	"live-stream-bot/blive"
	"live-stream-bot/livestream"
	"live-stream-bot/model"
)

// Состояния жизненного цикла адаптера.
type state int

const (
	stateIdle state = iota
	stateConnected
	stateStreaming
	stateStopped
)

// transport задаёт границу с wire-клиентом; в тестах подменяется заглушкой.
type transport interface {
	Start(ctx context.Context, roomID int64) error
	Stop() error
	Connected() bool
}

// Config настраивает адаптер bilibili.
type Config struct {
	SessData string // необязательная cookie SESSDATA
	AuthKey  string // необязательный токен авторизации danmaku-шлюза
	URL      string // необязательный адрес шлюза, по умолчанию blive.DefaultURL
}

// Adapter транслирует сырые команды danmaku-протокола в доменные события
// и раздаёт их через диспетчер. Жизненный цикл:
// Idle -> Connected -> Streaming -> Stopped; Stopped терминально, для
// переподключения создаётся новый экземпляр.
type Adapter struct {
	cfg        Config
	dispatcher *livestream.Dispatcher

	mu        sync.Mutex
	state     state
	roomID    int64
	ctx       context.Context
	transport transport

	newTransport func(h blive.Handler) transport
}

func New(cfg Config) *Adapter {
	a := &Adapter{
		cfg:        cfg,
		dispatcher: livestream.NewDispatcher(),
		state:      stateIdle,
	}
	a.newTransport = func(h blive.Handler) transport {
		return blive.NewClient(blive.Config{
			URL:      cfg.URL,
			SessData: cfg.SessData,
			AuthKey:  cfg.AuthKey,
		}, h)
	}
	return a
}

// Connect проверяет идентификатор комнаты и готовит транспорт.
// Сетевое соединение открывается в Start.
func (a *Adapter) Connect(ctx context.Context, roomID string) error {
	parsed, err := strconv.ParseInt(roomID, 10, 64)
	if err != nil {
		return fmt.Errorf("bilibili: room_id должен быть числом, получено %q", roomID)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	switch a.state {
	case stateStopped:
		return livestream.ErrStopped
	case stateConnected, stateStreaming:
		return livestream.ErrConnected
	}

	a.roomID = parsed
	a.ctx = ctx
	a.transport = a.newTransport(a)
	a.state = stateConnected
	log.Printf("bilibili: подключение к комнате %d подготовлено", parsed)
	return nil
}

// Start открывает соединение и начинает доставку событий.
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

	if err := a.transport.Start(a.ctx, a.roomID); err != nil {
		return fmt.Errorf("bilibili: запуск транспорта: %w", err)
	}
	a.state = stateStreaming
	log.Printf("bilibili: приём событий комнаты %d запущен", a.roomID)
	return nil
}

// Stop прекращает приём событий; повторные вызовы безопасны.
func (a *Adapter) Stop() error {
	a.mu.Lock()
	if a.state == stateStopped || a.state == stateIdle {
		a.state = stateStopped
		a.mu.Unlock()
		return nil
	}
	tr := a.transport
	a.state = stateStopped
	a.mu.Unlock()

	if tr != nil {
		if err := tr.Stop(); err != nil {
			return fmt.Errorf("bilibili: остановка транспорта: %w", err)
		}
	}
	log.Printf("bilibili: приём событий остановлен")
	return nil
}

// Disconnect ведёт себя как Stop; оба перевода терминальны.
func (a *Adapter) Disconnect() error {
	return a.Stop()
}

// IsConnected сообщает, подключён ли адаптер.
func (a *Adapter) IsConnected() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	switch a.state {
	case stateConnected:
		return true
	case stateStreaming:
		return a.transport.Connected()
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

// HandleCommand реализует blive.Handler: одна сырая команда даёт не более
// одного нормализованного события; неизвестные команды игнорируются,
// невалидные отбрасываются с записью причины в лог.
func (a *Adapter) HandleCommand(cmd blive.Command) {
	var (
		ev  model.Event
		err error
	)
	switch cmd.Cmd {
	case cmdDanmaku:
		ev, err = translateDanmaku(cmd.Body)
	case cmdGift:
		ev, err = translateGift(cmd.Body)
	case cmdSuperChat:
		ev, err = translateSuperChat(cmd.Body)
	case cmdGuardBuy:
		ev, err = translateGuardBuy(cmd.Body)
	default:
		return
	}
	if err != nil {
		log.Printf("bilibili: %v", err)
		livestream.EventDropped(dropLabel(err))
		return
	}
	a.dispatcher.Publish(ev)
}

// HandleDisconnect реализует blive.Handler.
func (a *Adapter) HandleDisconnect(err error) {
	log.Printf("bilibili: соединение потеряно: %v", err)
	a.dispatcher.PublishConnectionError(err)
}
