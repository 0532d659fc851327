package livestream

// Observer принимает сигналы деградации конвейера: отброшенные сырые
// сообщения, отклонённые дубликаты и паники обработчиков. Реализация по
// умолчанию ничего не делает; слой метрик подменяет её при старте
// процесса, до начала приёма событий.
type Observer interface {
	EventDropped(reason string)
	DuplicateEvent(kind string)
	HandlerPanic(handler, callback string)
}

type nopObserver struct{}

func (nopObserver) EventDropped(string)         {}
func (nopObserver) DuplicateEvent(string)       {}
func (nopObserver) HandlerPanic(string, string) {}

var observer Observer = nopObserver{}

// SetObserver устанавливает наблюдателя конвейера; nil возвращает
// наблюдателя по умолчанию.
func SetObserver(o Observer) {
	if o == nil {
		observer = nopObserver{}
		return
	}
	observer = o
}

// EventDropped сообщает наблюдателю о сыром сообщении, отброшенном на
// границе адаптера.
func EventDropped(reason string) {
	observer.EventDropped(reason)
}

// DuplicateEvent сообщает наблюдателю о событии, отклонённом дедупликацией.
func DuplicateEvent(kind string) {
	observer.DuplicateEvent(kind)
}
