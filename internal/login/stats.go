package login

import (
	"maps"
	"sync"
	"sync/atomic"
)

// Stats считает попытки входа. Безопасен для конкурентного использования.
type Stats struct {
	logins    atomic.Uint64
	successes atomic.Uint64

	mu         sync.Mutex
	rejections map[RejectionCode]uint64
}

// StatsSnapshot - копия счётчиков на момент вызова Snapshot.
type StatsSnapshot struct {
	Logins     uint64
	Successes  uint64
	Rejections map[RejectionCode]uint64
}

// NewStats создаёт пустые счётчики.
func NewStats() *Stats {
	return &Stats{rejections: make(map[RejectionCode]uint64)}
}

// IncreaseLogin отмечает новую попытку входа.
func (s *Stats) IncreaseLogin() {
	s.logins.Add(1)
}

func (s *Stats) success() {
	s.successes.Add(1)
}

func (s *Stats) reject(code RejectionCode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rejections[code]++
}

// Snapshot возвращает текущие значения.
func (s *Stats) Snapshot() StatsSnapshot {
	s.mu.Lock()
	rejections := maps.Clone(s.rejections)
	s.mu.Unlock()

	return StatsSnapshot{
		Logins:     s.logins.Load(),
		Successes:  s.successes.Load(),
		Rejections: rejections,
	}
}
