package livestream

import (
	"fmt"
	"log"
	"sync"

	"live-stream-bot/model"
)

// Dispatcher хранит реестр обработчиков и раздаёт каждое событие всем
// зарегистрированным в порядке регистрации. Паника одного обработчика не
// мешает остальным получить то же событие.
type Dispatcher struct {
	mu       sync.Mutex
	handlers []Handler
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{}
}

// AddHandler регистрирует обработчик; повторная регистрация ничего не меняет.
func (d *Dispatcher) AddHandler(h Handler) {
	if h == nil {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, existing := range d.handlers {
		if existing == h {
			return
		}
	}
	d.handlers = append(d.handlers, h)
}

// RemoveHandler снимает обработчик с реестра; для отсутствующего ничего
// не делает.
func (d *Dispatcher) RemoveHandler(h Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i, existing := range d.handlers {
		if existing == h {
			d.handlers = append(d.handlers[:i], d.handlers[i+1:]...)
			return
		}
	}
}

// HandlerCount возвращает число зарегистрированных обработчиков.
func (d *Dispatcher) HandlerCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.handlers)
}

// Publish вызывает соответствующий колбэк каждого обработчика и всегда
// доходит до конца списка, что бы ни случилось внутри колбэков.
func (d *Dispatcher) Publish(ev model.Event) {
	for _, h := range d.snapshot() {
		switch e := ev.(type) {
		case model.ChatMessage:
			d.invoke(h, "OnChatMessage", func() { h.OnChatMessage(e) })
		case model.GiftEvent:
			d.invoke(h, "OnGift", func() { h.OnGift(e) })
		case model.SuperChatEvent:
			d.invoke(h, "OnSuperChat", func() { h.OnSuperChat(e) })
		case model.GuardPurchaseEvent:
			d.invoke(h, "OnGuardPurchase", func() { h.OnGuardPurchase(e) })
		default:
			log.Printf("диспетчер: неизвестный тип события %T, пропуск", ev)
			return
		}
	}
}

// PublishConnectionError раздаёт ошибку соединения всем обработчикам.
// Единственный колбэк без нормализованного события; дедупликации не подлежит.
func (d *Dispatcher) PublishConnectionError(err error) {
	for _, h := range d.snapshot() {
		d.invoke(h, "OnConnectionError", func() { h.OnConnectionError(err) })
	}
}

func (d *Dispatcher) invoke(h Handler, callback string, call func()) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("диспетчер: обработчик %T паниковал в %s: %v", h, callback, r)
			observer.HandlerPanic(fmt.Sprintf("%T", h), callback)
		}
	}()
	call()
}

func (d *Dispatcher) snapshot() []Handler {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Handler(nil), d.handlers...)
}
