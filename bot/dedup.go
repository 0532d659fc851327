package bot

import (
	"log"
	"sync"
)

// DefaultDedupCapacity задаёт порог кэша отпечатков по умолчанию.
const DefaultDedupCapacity = 200000

// Deduplicator хранит отпечатки уже обработанных событий. Память ограничена
// ёмкостью: при достижении порога кэш очищается целиком перед следующей
// вставкой, без фонового вытеснения. Сразу после очистки настоящий дубликат
// может быть принят повторно; этот зазор считается допустимым.
type Deduplicator struct {
	mu       sync.Mutex
	seen     map[string]struct{}
	capacity int
	clears   uint64
}

func NewDeduplicator(capacity int) *Deduplicator {
	if capacity <= 0 {
		capacity = DefaultDedupCapacity
	}
	return &Deduplicator{
		seen:     make(map[string]struct{}),
		capacity: capacity,
	}
}

// CheckAndMark возвращает true, если отпечаток встречается впервые, и
// запоминает его. Пустой отпечаток никогда не дедуплицируется.
func (d *Deduplicator) CheckAndMark(fingerprint string) bool {
	if fingerprint == "" {
		return true
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.seen[fingerprint]; ok {
		return false
	}
	if len(d.seen) >= d.capacity {
		log.Printf("дедупликатор: кэш достиг %d записей, полная очистка", len(d.seen))
		d.seen = make(map[string]struct{})
		d.clears++
	}
	d.seen[fingerprint] = struct{}{}
	return true
}

// Size возвращает текущее число отпечатков в кэше.
func (d *Deduplicator) Size() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.seen)
}

// Clears возвращает число выполненных полных очисток.
func (d *Deduplicator) Clears() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.clears
}
