package blive

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/andybalholm/brotli"
)

// Операции протокола danmaku.
const (
	opHeartbeat      = 2 // клиент -> сервер, каждые 30 секунд
	opHeartbeatReply = 3 // в теле популярность комнаты, big-endian uint32
	opCommand        = 5 // JSON-команда (弹幕, подарки и т.д.)
	opAuth           = 7
	opAuthReply      = 8
)

// Версии упаковки тела пакета.
const (
	verPlain      = 0 // JSON как есть
	verPopularity = 1 // целое число
	verZlib       = 2 // zlib-сжатый поток вложенных пакетов
	verBrotli     = 3 // brotli-сжатый поток вложенных пакетов
)

const headerLen = 16

// packet хранит один кадр протокола: 4 байта общей длины, 2 байта длины
// заголовка, 2 байта версии, 4 байта операции, 4 байта sequence.
type packet struct {
	ver  uint16
	op   uint32
	body []byte
}

func encodePacket(ver uint16, op uint32, body []byte) []byte {
	buf := make([]byte, headerLen+len(body))
	binary.BigEndian.PutUint32(buf[0:4], uint32(headerLen+len(body)))
	binary.BigEndian.PutUint16(buf[4:6], headerLen)
	binary.BigEndian.PutUint16(buf[6:8], ver)
	binary.BigEndian.PutUint32(buf[8:12], op)
	binary.BigEndian.PutUint32(buf[12:16], 1)
	copy(buf[headerLen:], body)
	return buf
}

// decodePackets разбирает одно websocket-сообщение, которое может содержать
// несколько кадров подряд.
func decodePackets(data []byte) ([]packet, error) {
	var packets []packet
	for len(data) > 0 {
		if len(data) < headerLen {
			return nil, fmt.Errorf("кадр короче заголовка: %d байт", len(data))
		}
		total := binary.BigEndian.Uint32(data[0:4])
		hdr := binary.BigEndian.Uint16(data[4:6])
		// total >= hdr >= headerLen гарантирует продвижение по буферу
		if int(hdr) < headerLen || int(total) < int(hdr) || int(total) > len(data) {
			return nil, fmt.Errorf("некорректная длина кадра: total=%d header=%d rest=%d", total, hdr, len(data))
		}
		packets = append(packets, packet{
			ver:  binary.BigEndian.Uint16(data[6:8]),
			op:   binary.BigEndian.Uint32(data[8:12]),
			body: data[hdr:total],
		})
		data = data[total:]
	}
	return packets, nil
}

// inflate разворачивает сжатое тело пакета во вложенные кадры. Для
// несжатых версий возвращает пакет как есть.
func inflate(p packet) ([]packet, error) {
	switch p.ver {
	case verZlib:
		r, err := zlib.NewReader(bytes.NewReader(p.body))
		if err != nil {
			return nil, fmt.Errorf("zlib: %w", err)
		}
		defer r.Close()
		raw, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("zlib: %w", err)
		}
		return decodePackets(raw)
	case verBrotli:
		raw, err := io.ReadAll(brotli.NewReader(bytes.NewReader(p.body)))
		if err != nil {
			return nil, fmt.Errorf("brotli: %w", err)
		}
		return decodePackets(raw)
	default:
		return []packet{p}, nil
	}
}
