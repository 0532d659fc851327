package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Платформы, поддерживаемые адаптерами.
const (
	PlatformBilibili = "bilibili"
	PlatformTwitch   = "twitch"
)

// Config агрегирует значения конфигурации из переменных окружения.
type Config struct {
	Platform string
	Bilibili BilibiliConfig
	Twitch   TwitchConfig
	Bot      BotConfig
	HTTP     HTTPConfig
	Postgres PostgresConfig
	Kafka    KafkaConfig
	Batch    BatchConfig
}

// BilibiliConfig содержит параметры подключения к комнате bilibili.
type BilibiliConfig struct {
	RoomID   string
	SessData string // необязательная cookie SESSDATA
	AuthKey  string // необязательный токен danmaku-шлюза
}

// TwitchConfig содержит учётные данные и канал для Twitch IRC клиента.
type TwitchConfig struct {
	Username   string
	OAuthToken string
	Channel    string
}

// BotConfig задаёт параметры ядра приложения.
type BotConfig struct {
	DedupCapacity int
	SummaryEvery  time.Duration
}

// HTTPConfig задаёт адрес поверхности наблюдения.
type HTTPConfig struct {
	Addr string
}

// PostgresConfig хранит параметры подключения к пулу базы данных.
// Архивация событий включается только при заполненных параметрах.
type PostgresConfig struct {
	Host     string
	Port     string
	DB       string
	User     string
	Password string
}

// Enabled сообщает, настроена ли архивация в Postgres.
func (p PostgresConfig) Enabled() bool {
	return p.Host != ""
}

// DSN собирает строку подключения для pgx/pgxpool.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", p.User, p.Password, p.Host, p.Port, p.DB)
}

// KafkaConfig задаёт брокеры и топик форвардера событий.
// Форвардер включается только при заполненных параметрах.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// Enabled сообщает, настроен ли форвардер в Kafka.
func (k KafkaConfig) Enabled() bool {
	return len(k.Brokers) > 0
}

// BatchConfig задаёт параметры батчинга и флашей при записи чатов.
type BatchConfig struct {
	MaxBatch      int
	FlushEvery    time.Duration
	ChanBuffer    int
	StatsLogEvery time.Duration
	FlushTimeout  time.Duration
}

// Load читает переменные окружения и возвращает валидированную Config.
func Load() (Config, error) {
	cfg := Config{
		Platform: strings.ToLower(getenv("PLATFORM", PlatformBilibili)),
		Bilibili: BilibiliConfig{
			RoomID:   strings.TrimSpace(os.Getenv("BILIBILI_ROOM_ID")),
			SessData: strings.TrimSpace(os.Getenv("BILIBILI_SESSDATA")),
			AuthKey:  strings.TrimSpace(os.Getenv("BILIBILI_AUTH_KEY")),
		},
		Twitch: TwitchConfig{
			Username:   strings.TrimSpace(os.Getenv("TWITCH_USERNAME")),
			OAuthToken: strings.TrimSpace(os.Getenv("TWITCH_OAUTH_TOKEN")),
			Channel:    strings.TrimSpace(strings.TrimPrefix(os.Getenv("TWITCH_CHANNEL"), "#")),
		},
		Bot: BotConfig{
			DedupCapacity: atoiDefault("DEDUP_CAPACITY", 200000),
			SummaryEvery:  secondsDefault("SUMMARY_LOG_EVERY_SEC", 300),
		},
		HTTP: HTTPConfig{
			Addr: getenv("HTTP_ADDR", ":8080"),
		},
		Postgres: PostgresConfig{
			Host:     strings.TrimSpace(os.Getenv("POSTGRES_HOST")),
			Port:     getenv("POSTGRES_PORT", "5432"),
			DB:       strings.TrimSpace(os.Getenv("POSTGRES_DB")),
			User:     strings.TrimSpace(os.Getenv("POSTGRES_USER")),
			Password: strings.TrimSpace(os.Getenv("POSTGRES_PASSWORD")),
		},
		Kafka: KafkaConfig{
			Brokers: splitAndTrim(os.Getenv("KAFKA_BROKERS")),
			Topic:   getenv("KAFKA_TOPIC", "livestream.events"),
		},
		Batch: BatchConfig{
			MaxBatch:      100,
			FlushEvery:    1500 * time.Millisecond,
			ChanBuffer:    4096,
			StatsLogEvery: 5 * time.Minute,
			FlushTimeout:  5 * time.Second,
		},
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c Config) validate() error {
	switch c.Platform {
	case PlatformBilibili:
		if c.Bilibili.RoomID == "" {
			return fmt.Errorf("требуется BILIBILI_ROOM_ID")
		}
		if _, err := strconv.ParseInt(c.Bilibili.RoomID, 10, 64); err != nil {
			return fmt.Errorf("BILIBILI_ROOM_ID должен быть числом, получено %q", c.Bilibili.RoomID)
		}
	case PlatformTwitch:
		if c.Twitch.Username == "" {
			return fmt.Errorf("требуется TWITCH_USERNAME")
		}
		if c.Twitch.OAuthToken == "" {
			return fmt.Errorf("требуется TWITCH_OAUTH_TOKEN")
		}
		if c.Twitch.Channel == "" {
			return fmt.Errorf("требуется TWITCH_CHANNEL")
		}
	default:
		return fmt.Errorf("неизвестная платформа %q", c.Platform)
	}

	if c.Postgres.Enabled() {
		if c.Postgres.DB == "" {
			return fmt.Errorf("требуется POSTGRES_DB")
		}
		if c.Postgres.User == "" {
			return fmt.Errorf("требуется POSTGRES_USER")
		}
		if c.Postgres.Password == "" {
			return fmt.Errorf("требуется POSTGRES_PASSWORD")
		}
	}

	if c.Kafka.Enabled() && c.Kafka.Topic == "" {
		return fmt.Errorf("требуется KAFKA_TOPIC")
	}

	if c.Bot.DedupCapacity <= 0 {
		return fmt.Errorf("DEDUP_CAPACITY должен быть больше нуля")
	}
	if c.Bot.SummaryEvery <= 0 {
		return fmt.Errorf("SUMMARY_LOG_EVERY_SEC должен быть больше нуля")
	}

	if c.Batch.MaxBatch <= 0 {
		return fmt.Errorf("Batch.MaxBatch должен быть больше нуля")
	}
	if c.Batch.FlushEvery <= 0 {
		return fmt.Errorf("Batch.FlushEvery должен быть больше нуля")
	}
	if c.Batch.ChanBuffer <= 0 {
		return fmt.Errorf("Batch.ChanBuffer должен быть больше нуля")
	}
	if c.Batch.StatsLogEvery <= 0 {
		return fmt.Errorf("Batch.StatsLogEvery должен быть больше нуля")
	}
	if c.Batch.FlushTimeout <= 0 {
		return fmt.Errorf("Batch.FlushTimeout должен быть больше нуля")
	}

	return nil
}

func getenv(key, def string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return def
}

func atoiDefault(key string, def int) int {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(strings.TrimSpace(val)); err == nil {
			return parsed
		}
	}
	return def
}

func secondsDefault(key string, defSec int) time.Duration {
	return time.Duration(atoiDefault(key, defSec)) * time.Second
}

func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
