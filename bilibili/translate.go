package bilibili

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"live-stream-bot/model"
)

// Имена команд протокола, которые транслируются в доменные события.
const (
	cmdDanmaku   = "DANMU_MSG"
	cmdGift      = "SEND_GIFT"
	cmdSuperChat = "SUPER_CHAT_MESSAGE"
	cmdGuardBuy  = "GUARD_BUY"
)

// dropError хранит причину, по которой сырое сообщение отброшено без события.
type dropError struct {
	cmd    string
	reason string
}

func (e *dropError) Error() string {
	return fmt.Sprintf("%s отброшено: %s", e.cmd, e.reason)
}

func drop(cmd, reason string) error {
	return &dropError{cmd: cmd, reason: reason}
}

// dropLabel возвращает метку счётчика отброшенных сообщений: имя команды
// в нижнем регистре, чтобы кардинальность метрики оставалась ограниченной.
func dropLabel(err error) string {
	var de *dropError
	if errors.As(err, &de) {
		return strings.ToLower(de.cmd)
	}
	return "unknown"
}

// translateDanmaku разбирает DANMU_MSG. Поля лежат в позиционном массиве
// info: в info[0][4] таймстамп в миллисекундах, в info[1] текст, в info[2]
// [uid, uname, admin, vip, svip], в info[3] медаль, в info[4]
// [уровень пользователя, ...].
func translateDanmaku(body json.RawMessage) (model.ChatMessage, error) {
	var envelope struct {
		Info []json.RawMessage `json:"info"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return model.ChatMessage{}, drop(cmdDanmaku, "тело не является JSON: "+err.Error())
	}
	if len(envelope.Info) < 3 {
		return model.ChatMessage{}, drop(cmdDanmaku, "массив info короче трёх элементов")
	}

	var meta, user, medal, levels []any
	_ = json.Unmarshal(envelope.Info[0], &meta)
	var content string
	_ = json.Unmarshal(envelope.Info[1], &content)
	_ = json.Unmarshal(envelope.Info[2], &user)
	if len(envelope.Info) > 3 {
		_ = json.Unmarshal(envelope.Info[3], &medal)
	}
	if len(envelope.Info) > 4 {
		_ = json.Unmarshal(envelope.Info[4], &levels)
	}

	userID, ok := asInt64(index(user, 0))
	if !ok || userID == 0 {
		return model.ChatMessage{}, drop(cmdDanmaku, "отсутствует uid")
	}
	username, ok := asString(index(user, 1))
	if !ok || username == "" {
		return model.ChatMessage{}, drop(cmdDanmaku, "отсутствует имя пользователя")
	}
	if content == "" {
		return model.ChatMessage{}, drop(cmdDanmaku, "пустой текст сообщения")
	}

	msg := model.ChatMessage{
		UserID:    userID,
		Username:  username,
		Content:   content,
		Timestamp: timestampFromMillis(index(meta, 4)),
		IsAdmin:   asBool(index(user, 2)),
		IsVIP:     asBool(index(user, 3)) || asBool(index(user, 4)),
	}
	if name, ok := asString(index(medal, 1)); ok && name != "" {
		msg.MedalName = name
	}
	if lvl, ok := asInt64(index(levels, 0)); ok {
		l := int(lvl)
		msg.UserLevel = &l
	}
	return msg, nil
}

// translateGift разбирает SEND_GIFT. Нормализация количества: отсутствующее
// или неположительное num превращается в 1, событие из-за него не
// отбрасывается.
func translateGift(body json.RawMessage) (model.GiftEvent, error) {
	data, err := commandData(body)
	if err != nil {
		return model.GiftEvent{}, drop(cmdGift, err.Error())
	}

	userID, ok := asInt64(data["uid"])
	if !ok || userID == 0 {
		return model.GiftEvent{}, drop(cmdGift, "отсутствует uid")
	}
	username, ok := asString(data["uname"])
	if !ok || username == "" {
		return model.GiftEvent{}, drop(cmdGift, "отсутствует имя пользователя")
	}
	giftName, ok := asString(data["giftName"])
	if !ok || giftName == "" {
		return model.GiftEvent{}, drop(cmdGift, "отсутствует название подарка")
	}

	gift := model.GiftEvent{
		UserID:     userID,
		Username:   username,
		GiftName:   giftName,
		Quantity:   positiveQuantity(data["num"]),
		CoinType:   model.CoinUnknown,
		Timestamp:  timestampFromSeconds(data["timestamp"]),
		GuardLevel: guardLevel(data["guard_level"]),
	}
	if ct, ok := asString(data["coin_type"]); ok {
		gift.CoinType = model.ParseCoinType(ct)
	}
	if total, ok := asInt64(data["total_coin"]); ok && total > 0 {
		gift.TotalValue = total
	}
	if price, ok := asInt64(data["price"]); ok && price > 0 {
		gift.UnitPrice = &price
	}
	return gift, nil
}

// translateSuperChat разбирает SUPER_CHAT_MESSAGE: цена приходит сразу в
// юанях, имя пользователя вложено в user_info.
func translateSuperChat(body json.RawMessage) (model.SuperChatEvent, error) {
	data, err := commandData(body)
	if err != nil {
		return model.SuperChatEvent{}, drop(cmdSuperChat, err.Error())
	}

	userID, ok := asInt64(data["uid"])
	if !ok || userID == 0 {
		return model.SuperChatEvent{}, drop(cmdSuperChat, "отсутствует uid")
	}
	username := superChatUsername(data)
	if username == "" {
		return model.SuperChatEvent{}, drop(cmdSuperChat, "отсутствует имя пользователя")
	}

	sc := model.SuperChatEvent{
		UserID:    userID,
		Username:  username,
		Timestamp: timestampFromSeconds(data["start_time"]),
	}
	if msg, ok := asString(data["message"]); ok {
		sc.Message = msg
	}
	if price, ok := asFloat(data["price"]); ok && price > 0 {
		sc.PriceCNY = price
	}
	if id, ok := asInt64(data["id"]); ok {
		sc.MessageID = id
	}
	if dur, ok := asInt64(data["time"]); ok && dur > 0 {
		d := int(dur)
		sc.DurationSeconds = &d
	}
	return sc, nil
}

// translateGuardBuy разбирает GUARD_BUY; имя пользователя здесь лежит в
// поле username, а не uname.
func translateGuardBuy(body json.RawMessage) (model.GuardPurchaseEvent, error) {
	data, err := commandData(body)
	if err != nil {
		return model.GuardPurchaseEvent{}, drop(cmdGuardBuy, err.Error())
	}

	userID, ok := asInt64(data["uid"])
	if !ok || userID == 0 {
		return model.GuardPurchaseEvent{}, drop(cmdGuardBuy, "отсутствует uid")
	}
	username, ok := asString(data["username"])
	if !ok || username == "" {
		return model.GuardPurchaseEvent{}, drop(cmdGuardBuy, "отсутствует имя пользователя")
	}

	guard := model.GuardPurchaseEvent{
		UserID:     userID,
		Username:   username,
		GuardLevel: guardLevel(data["guard_level"]),
		Quantity:   positiveQuantity(data["num"]),
		Timestamp:  timestampFromSeconds(data["start_time"]),
	}
	if price, ok := asInt64(data["price"]); ok && price > 0 {
		guard.PriceCoins = price
	}
	return guard, nil
}

func commandData(body json.RawMessage) (map[string]any, error) {
	var envelope struct {
		Data map[string]any `json:"data"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("тело не является JSON: %w", err)
	}
	if envelope.Data == nil {
		return nil, fmt.Errorf("отсутствует поле data")
	}
	return envelope.Data, nil
}

func superChatUsername(data map[string]any) string {
	if info, ok := data["user_info"].(map[string]any); ok {
		if name, ok := asString(info["uname"]); ok {
			return name
		}
	}
	if name, ok := asString(data["uname"]); ok {
		return name
	}
	return ""
}

func positiveQuantity(v any) int {
	if n, ok := asInt64(v); ok && n >= 1 {
		return int(n)
	}
	return 1
}

func guardLevel(v any) model.GuardLevel {
	if n, ok := asInt64(v); ok {
		return model.ParseGuardLevel(int(n))
	}
	return model.GuardNone
}

// timestampFromSeconds возвращает таймстамп события в секундах; при его
// отсутствии подставляется текущее время, так что таймстампы служат
// ориентиром, а не источником истины.
func timestampFromSeconds(v any) float64 {
	if ts, ok := asFloat(v); ok && ts > 0 {
		return ts
	}
	return nowTS()
}

func timestampFromMillis(v any) float64 {
	if ts, ok := asFloat(v); ok && ts > 0 {
		return ts / 1000.0
	}
	return nowTS()
}

func nowTS() float64 {
	return float64(time.Now().UnixNano()) / float64(time.Second)
}
