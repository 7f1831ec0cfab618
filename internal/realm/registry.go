package realm

import (
	"slices"
	"strings"
	"sync"
)

// Registry - реестр всех подключённых реалмов.
// Thread-safe через sync.RWMutex. Имена сравниваются без учёта регистра.
type Registry struct {
	mu     sync.RWMutex
	realms map[string]*Realm
}

// NewRegistry создаёт пустой реестр.
func NewRegistry() *Registry {
	return &Registry{
		realms: make(map[string]*Realm),
	}
}

func key(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Register добавляет реалм.
// Возвращает false, если реалм с таким именем уже подключён.
func (reg *Registry) Register(r *Realm) bool {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	k := key(r.Name())
	if _, exists := reg.realms[k]; exists {
		return false
	}
	reg.realms[k] = r
	return true
}

// Get возвращает реалм по имени.
func (reg *Registry) Get(name string) (*Realm, bool) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()

	r, ok := reg.realms[key(name)]
	return r, ok
}

// Remove удаляет реалм, только если под именем зарегистрирован именно r.
// Возвращает true, если запись удалена.
func (reg *Registry) Remove(name string, r *Realm) bool {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	k := key(name)
	if cur, ok := reg.realms[k]; ok && cur == r {
		delete(reg.realms, k)
		return true
	}
	return false
}

// List возвращает список реалмов (копию), отсортированный по имени.
func (reg *Registry) List() []*Realm {
	reg.mu.RLock()
	realms := make([]*Realm, 0, len(reg.realms))
	for _, r := range reg.realms {
		realms = append(realms, r)
	}
	reg.mu.RUnlock()

	slices.SortFunc(realms, func(a, b *Realm) int {
		return strings.Compare(a.Name(), b.Name())
	})
	return realms
}

// Count возвращает количество подключённых реалмов.
func (reg *Registry) Count() int {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	return len(reg.realms)
}
