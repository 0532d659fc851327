package main

// Первый рабочий вариант бота: один файл, blive-клиент напрямую, дедуп и
// статистика на обычных map. Слоистая версия живёт в cmd/live-bot.

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"live-stream-bot/blive"
)

const dedupCapacity = 200000

func mustEnv(key string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		log.Fatalf("ENV %s is required", key)
	}
	return v
}

type mvpStats struct {
	giftCount int64
	giftValue float64
	chatCount int64
}

type mvpHandler struct {
	mu    sync.Mutex
	seen  map[string]struct{}
	stats map[int64]*mvpStats
}

func newMVPHandler() *mvpHandler {
	return &mvpHandler{
		seen:  make(map[string]struct{}),
		stats: make(map[int64]*mvpStats),
	}
}

// isDuplicate сообщает, встречался ли отпечаток, и запоминает новый; при
// достижении ёмкости кэш сбрасывается целиком.
func (h *mvpHandler) isDuplicate(fp string) bool {
	if _, dup := h.seen[fp]; dup {
		return true
	}
	if len(h.seen) >= dedupCapacity {
		h.seen = make(map[string]struct{})
	}
	h.seen[fp] = struct{}{}
	return false
}

func (h *mvpHandler) user(uid int64) *mvpStats {
	s, ok := h.stats[uid]
	if !ok {
		s = &mvpStats{}
		h.stats[uid] = s
	}
	return s
}

func (h *mvpHandler) HandleCommand(cmd blive.Command) {
	h.mu.Lock()
	defer h.mu.Unlock()

	switch cmd.Cmd {
	case "DANMU_MSG":
		var body struct {
			Info []json.RawMessage `json:"info"`
		}
		if err := json.Unmarshal(cmd.Body, &body); err != nil || len(body.Info) < 3 {
			return
		}
		var text string
		if json.Unmarshal(body.Info[1], &text) != nil {
			return
		}
		var user []json.RawMessage
		if json.Unmarshal(body.Info[2], &user) != nil || len(user) < 2 {
			return
		}
		var uid int64
		var uname string
		if json.Unmarshal(user[0], &uid) != nil || json.Unmarshal(user[1], &uname) != nil {
			return
		}
		h.user(uid).chatCount++
		log.Printf("[DANMU] %s: %s", uname, text)

	case "SEND_GIFT":
		var body struct {
			Data struct {
				UID       int64  `json:"uid"`
				Uname     string `json:"uname"`
				GiftName  string `json:"giftName"`
				Num       int64  `json:"num"`
				CoinType  string `json:"coin_type"`
				TotalCoin int64  `json:"total_coin"`
				Timestamp int64  `json:"timestamp"`
			} `json:"data"`
		}
		if err := json.Unmarshal(cmd.Body, &body); err != nil {
			return
		}
		d := body.Data
		fp := fmt.Sprintf("gift:%d:%d:%s:%d", d.Timestamp, d.UID, d.GiftName, d.Num)
		if h.isDuplicate(fp) {
			return
		}
		value := 0.0
		if d.CoinType == "gold" {
			value = float64(d.TotalCoin) / 1000
		}
		s := h.user(d.UID)
		s.giftCount += d.Num
		s.giftValue += value
		log.Printf("[GIFT] %s -> %s x%d (¥%.2f)", d.Uname, d.GiftName, d.Num, value)

	case "SUPER_CHAT_MESSAGE":
		var body struct {
			Data struct {
				ID       int64  `json:"id"`
				UID      int64  `json:"uid"`
				Price    int64  `json:"price"`
				Message  string `json:"message"`
				UserInfo struct {
					Uname string `json:"uname"`
				} `json:"user_info"`
			} `json:"data"`
		}
		if err := json.Unmarshal(cmd.Body, &body); err != nil {
			return
		}
		d := body.Data
		if h.isDuplicate(fmt.Sprintf("sc:%d:%d", d.ID, d.UID)) {
			return
		}
		log.Printf("[SC] ¥%d %s: %s", d.Price, d.UserInfo.Uname, d.Message)

	case "GUARD_BUY":
		var body struct {
			Data struct {
				UID        int64  `json:"uid"`
				Username   string `json:"username"`
				GuardLevel int    `json:"guard_level"`
				Num        int64  `json:"num"`
				StartTime  int64  `json:"start_time"`
			} `json:"data"`
		}
		if err := json.Unmarshal(cmd.Body, &body); err != nil {
			return
		}
		d := body.Data
		if h.isDuplicate(fmt.Sprintf("guard:%d:%d:%d", d.StartTime, d.UID, d.GuardLevel)) {
			return
		}
		log.Printf("[GUARD] %s купил уровень %d x%d", d.Username, d.GuardLevel, d.Num)
	}
}

func (h *mvpHandler) HandleDisconnect(err error) {
	log.Printf("соединение потеряно: %v", err)
}

func (h *mvpHandler) summary() (users int, gifts int64, value float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, s := range h.stats {
		gifts += s.giftCount
		value += s.giftValue
	}
	return len(h.stats), gifts, value
}

func main() {
	roomID, err := strconv.ParseInt(mustEnv("BILIBILI_ROOM_ID"), 10, 64)
	if err != nil {
		log.Fatalf("BILIBILI_ROOM_ID must be a number: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	handler := newMVPHandler()
	client := blive.NewClient(blive.Config{
		SessData: strings.TrimSpace(os.Getenv("BILIBILI_SESSDATA")),
		AuthKey:  strings.TrimSpace(os.Getenv("BILIBILI_AUTH_KEY")),
	}, handler)

	if err := client.Start(ctx, roomID); err != nil {
		log.Fatalf("blive connect failed: %v", err)
	}
	log.Printf("подключено к комнате %d", roomID)

	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("shutting down...")
			if err := client.Stop(); err != nil {
				log.Printf("stop: %v", err)
			}
			return
		case <-ticker.C:
			users, gifts, value := handler.summary()
			log.Printf("популярность=%d пользователей=%d подарков=%d сумма=¥%.2f",
				client.Popularity(), users, gifts, value)
		}
	}
}
