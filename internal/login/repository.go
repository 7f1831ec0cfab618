package login

import (
	"context"

	"github.com/udisondev/longgate/internal/model"
	"github.com/udisondev/longgate/internal/realm"
)

// AccountRepository определяет интерфейс для работы с аккаунтами.
// Используется для dependency injection в тестах.
type AccountRepository interface {
	// GetByUsername возвращает аккаунт по имени.
	// Возвращает nil, nil если аккаунт не найден.
	GetByUsername(ctx context.Context, username string) (*model.Account, error)
}

// VipRepository отдаёт VIP уровень аккаунта.
type VipRepository interface {
	// GetAccountVip возвращает nil, nil если VIP нет.
	GetAccountVip(ctx context.Context, accountID uint32) (*model.VipInfo, error)
}

// LoginRecordRepository пишет журнал входов.
type LoginRecordRepository interface {
	Record(ctx context.Context, rec model.LoginRecord) error
}

// PasswordHasher вычисляет хранимую форму пароля. Детерминирован и чист.
type PasswordHasher interface {
	Hash(password, salt string) string
}

// RealmRegistry находит подключённый реалм по имени.
type RealmRegistry interface {
	Get(name string) (*realm.Realm, bool)
}
