package bot

import (
	"strconv"

	"live-stream-bot/model"
)

// Fingerprint возвращает детерминированный отпечаток события для
// дедупликации. Сообщения чата отпечатка не имеют: повторяющиеся строки
// чата считаются отдельными событиями.
func Fingerprint(ev model.Event) string {
	switch e := ev.(type) {
	case model.GiftEvent:
		return "gift:" + formatTS(e.Timestamp) + ":" + strconv.FormatInt(e.UserID, 10) +
			":" + e.GiftName + ":" + strconv.Itoa(e.Quantity)
	case model.SuperChatEvent:
		return "sc:" + strconv.FormatInt(e.MessageID, 10) + ":" + strconv.FormatInt(e.UserID, 10)
	case model.GuardPurchaseEvent:
		return "guard:" + formatTS(e.Timestamp) + ":" + strconv.FormatInt(e.UserID, 10) +
			":" + strconv.Itoa(int(e.GuardLevel))
	default:
		return ""
	}
}

func formatTS(ts float64) string {
	return strconv.FormatFloat(ts, 'f', -1, 64)
}
