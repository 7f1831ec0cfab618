package login

import (
	"sync"
	"time"

	"github.com/udisondev/longgate/internal/realm"
)

// User - аутентифицированный игрок, ожидающий ответа реалма.
type User struct {
	AccountID   uint32
	Username    string
	AuthorityID uint16
	VipLevel    byte
	Realm       *realm.Realm
	Client      *Client
	CreatedAt   time.Time
}

// UserManager - каталог ожидающих пользователей по account id.
// Thread-safe через sync.Map: регистрация атомарна (LoadOrStore).
type UserManager struct {
	users sync.Map // map[uint32]*User
}

// NewUserManager создаёт новый UserManager.
func NewUserManager() *UserManager {
	return &UserManager{}
}

// TryRegister добавляет пользователя, если для аккаунта ещё нет записи.
// Возвращает false, если аккаунт уже ожидает ответа (дублирующий логин).
func (um *UserManager) TryRegister(u *User) bool {
	_, loaded := um.users.LoadOrStore(u.AccountID, u)
	return !loaded
}

// Get возвращает пользователя по account id.
func (um *UserManager) Get(accountID uint32) (*User, bool) {
	val, ok := um.users.Load(accountID)
	if !ok {
		return nil, false
	}
	return val.(*User), true
}

// Remove удаляет запись безусловно.
func (um *UserManager) Remove(accountID uint32) {
	um.users.Delete(accountID)
}

// RemoveIf удаляет запись, только если под account id лежит именно u.
func (um *UserManager) RemoveIf(accountID uint32, u *User) bool {
	return um.users.CompareAndDelete(accountID, u)
}

// CleanExpired удаляет пользователей старше ttl и возвращает удалённых.
func (um *UserManager) CleanExpired(ttl time.Duration) []*User {
	now := time.Now()
	var expired []*User
	um.users.Range(func(key, value any) bool {
		u := value.(*User)
		if now.Sub(u.CreatedAt) > ttl && um.users.CompareAndDelete(key, u) {
			expired = append(expired, u)
		}
		return true
	})
	return expired
}

// Count возвращает количество ожидающих пользователей.
func (um *UserManager) Count() int {
	count := 0
	um.users.Range(func(_, _ any) bool {
		count++
		return true
	})
	return count
}

// RemoveByRealm удаляет всех пользователей, ожидающих ответа реалма r, и возвращает их.
func (um *UserManager) RemoveByRealm(r *realm.Realm) []*User {
	var removed []*User
	um.users.Range(func(key, value any) bool {
		u := value.(*User)
		if u.Realm == r && um.users.CompareAndDelete(key, u) {
			removed = append(removed, u)
		}
		return true
	})
	return removed
}
