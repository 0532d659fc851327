package blive

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// DefaultURL указывает на публичный danmaku-шлюз bilibili.
const DefaultURL = "wss://broadcastlv.chat.bilibili.com/sub"

const (
	writeWait         = 10 * time.Second
	heartbeatInterval = 30 * time.Second
	readWait          = 70 * time.Second // два пропущенных heartbeat-ответа
	maxMessageSize    = 1 << 20
)

// Command содержит сырую JSON-команду протокола. Cmd нормализован (у части
// команд сервер добавляет суффикс вида "DANMU_MSG:4:0:2:2:2:0"), Body несёт
// полное тело команды без какой-либо валидации.
type Command struct {
	Cmd  string
	Body json.RawMessage
}

// Handler принимает сырые команды и разрывы соединения.
type Handler interface {
	HandleCommand(cmd Command)
	HandleDisconnect(err error)
}

// Config настраивает подключение к danmaku-шлюзу.
type Config struct {
	URL      string // при пустом значении берётся DefaultURL
	SessData string // необязательная cookie SESSDATA
	AuthKey  string // необязательный токен из API getDanmuInfo
}

// Client поддерживает websocket-соединение с danmaku-шлюзом: авторизация,
// heartbeat каждые 30 секунд, чтение и распаковка кадров.
type Client struct {
	cfg     config
	handler Handler

	mu        sync.Mutex
	conn      *websocket.Conn
	cancel    context.CancelFunc
	done      chan struct{}
	connected atomic.Bool
	popular   atomic.Uint32
	stopped   bool
}

type config struct {
	url      string
	sessData string
	authKey  string
}

type authBody struct {
	UID      int64  `json:"uid"`
	RoomID   int64  `json:"roomid"`
	ProtoVer int    `json:"protover"`
	Platform string `json:"platform"`
	Type     int    `json:"type"`
	Key      string `json:"key,omitempty"`
}

func NewClient(cfg Config, handler Handler) *Client {
	url := cfg.URL
	if url == "" {
		url = DefaultURL
	}
	return &Client{
		cfg:     config{url: url, sessData: cfg.SessData, authKey: cfg.AuthKey},
		handler: handler,
	}
}

// Start устанавливает соединение, авторизуется в комнате и запускает
// фоновые циклы чтения и heartbeat. Блокируется только на время рукопожатия.
func (c *Client) Start(ctx context.Context, roomID int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped {
		return fmt.Errorf("blive: клиент уже остановлен")
	}
	if c.conn != nil {
		return fmt.Errorf("blive: клиент уже запущен")
	}

	header := map[string][]string{}
	if c.cfg.sessData != "" {
		header["Cookie"] = []string{"SESSDATA=" + c.cfg.sessData}
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.cfg.url, header)
	if err != nil {
		return fmt.Errorf("blive: подключение к %s: %w", c.cfg.url, err)
	}
	conn.SetReadLimit(maxMessageSize)

	auth, err := json.Marshal(authBody{
		RoomID:   roomID,
		ProtoVer: verBrotli,
		Platform: "web",
		Type:     2,
		Key:      c.cfg.authKey,
	})
	if err != nil {
		conn.Close()
		return fmt.Errorf("blive: сборка auth-пакета: %w", err)
	}
	if err := writePacket(conn, verPlain, opAuth, auth); err != nil {
		conn.Close()
		return fmt.Errorf("blive: отправка auth-пакета: %w", err)
	}

	loopCtx, cancel := context.WithCancel(context.Background())
	c.conn = conn
	c.cancel = cancel
	c.done = make(chan struct{})
	c.connected.Store(true)

	go c.readLoop(conn)
	go c.heartbeatLoop(loopCtx, conn)

	log.Printf("blive: подключено к комнате %d через %s", roomID, c.cfg.url)
	return nil
}

// Stop закрывает соединение; повторные вызовы безопасны и не блокируются
// на доставке, идущей в момент остановки.
func (c *Client) Stop() error {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return nil
	}
	c.stopped = true
	conn := c.conn
	cancel := c.cancel
	done := c.done
	c.mu.Unlock()

	c.connected.Store(false)
	if cancel != nil {
		cancel()
	}
	if conn != nil {
		conn.Close()
	}
	if done != nil {
		<-done
	}
	return nil
}

// Connected сообщает, живо ли соединение.
func (c *Client) Connected() bool {
	return c.connected.Load()
}

// Popularity возвращает последний счётчик популярности комнаты из
// heartbeat-ответа сервера.
func (c *Client) Popularity() uint32 {
	return c.popular.Load()
}

func (c *Client) readLoop(conn *websocket.Conn) {
	defer close(c.done)
	for {
		if err := conn.SetReadDeadline(time.Now().Add(readWait)); err != nil {
			c.disconnected(err)
			return
		}
		_, data, err := conn.ReadMessage()
		if err != nil {
			c.disconnected(err)
			return
		}
		packets, err := decodePackets(data)
		if err != nil {
			log.Printf("blive: битый кадр: %v", err)
			continue
		}
		for _, p := range packets {
			c.handlePacket(p)
		}
	}
}

func (c *Client) handlePacket(p packet) {
	switch p.op {
	case opCommand:
		nested, err := inflate(p)
		if err != nil {
			log.Printf("blive: распаковка команды: %v", err)
			return
		}
		for _, np := range nested {
			if np.op != opCommand {
				continue
			}
			cmd, err := parseCommand(np.body)
			if err != nil {
				log.Printf("blive: разбор команды: %v", err)
				continue
			}
			c.handler.HandleCommand(cmd)
		}
	case opHeartbeatReply:
		c.popular.Store(popularity(p.body))
	case opAuthReply:
		log.Printf("blive: авторизация подтверждена")
	}
}

func (c *Client) heartbeatLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := writePacket(conn, verPlain, opHeartbeat, nil); err != nil {
				log.Printf("blive: отправка heartbeat: %v", err)
				return
			}
		}
	}
}

// disconnected переводит клиента в отключённое состояние и сообщает об
// ошибке ровно один раз; штатная остановка ошибкой не считается.
func (c *Client) disconnected(err error) {
	wasConnected := c.connected.Swap(false)
	c.mu.Lock()
	deliberate := c.stopped
	c.mu.Unlock()
	if wasConnected && !deliberate {
		c.handler.HandleDisconnect(err)
	}
}

func writePacket(conn *websocket.Conn, ver uint16, op uint32, body []byte) error {
	if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return conn.WriteMessage(websocket.BinaryMessage, encodePacket(ver, op, body))
}

// parseCommand выделяет имя команды и нормализует суффиксы DANMU_MSG.
func parseCommand(body []byte) (Command, error) {
	var envelope struct {
		Cmd string `json:"cmd"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return Command{}, err
	}
	if envelope.Cmd == "" {
		return Command{}, fmt.Errorf("команда без поля cmd")
	}
	name := envelope.Cmd
	if i := strings.IndexByte(name, ':'); i > 0 {
		name = name[:i]
	}
	return Command{Cmd: name, Body: json.RawMessage(body)}, nil
}

// popularity извлекает счётчик популярности из heartbeat-ответа.
func popularity(body []byte) uint32 {
	if len(body) < 4 {
		return 0
	}
	return binary.BigEndian.Uint32(body[:4])
}
