package testutil

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/udisondev/longgate/internal/db"
	"github.com/udisondev/longgate/internal/model"
)

// MockDB - in-memory имплементация репозиториев логина для тестов.
// Не требует реального PostgreSQL.
type MockDB struct {
	mu       sync.RWMutex
	accounts map[string]*model.Account
	vips     map[uint32]model.VipInfo
	records  []model.LoginRecord
	nextID   uint32
}

// NewMockDB создаёт новый MockDB экземпляр.
func NewMockDB() *MockDB {
	return &MockDB{
		accounts: make(map[string]*model.Account),
		vips:     make(map[uint32]model.VipInfo),
		nextID:   Fixtures.AccountID,
	}
}

// AddAccount создаёт аккаунт с паролем в открытом виде и возвращает его id.
func (m *MockDB) AddAccount(username, password, salt string, authorityID uint16) (uint32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	username = strings.ToLower(username)
	if _, exists := m.accounts[username]; exists {
		return 0, fmt.Errorf("account %q already exists", username)
	}

	id := m.nextID
	m.nextID++
	m.accounts[username] = &model.Account{
		ID:           id,
		Username:     username,
		PasswordHash: db.HashPassword(password, salt),
		Salt:         salt,
		AuthorityID:  authorityID,
	}
	return id, nil
}

// BanAccount выставляет флаг блокировки.
func (m *MockDB) BanAccount(username string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	acc, exists := m.accounts[strings.ToLower(username)]
	if !exists {
		return fmt.Errorf("account %q not found", username)
	}
	acc.Flag = 1
	return nil
}

// SetVip задаёт VIP уровень аккаунта.
func (m *MockDB) SetVip(accountID uint32, level byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.vips[accountID] = model.VipInfo{AccountID: accountID, VipLevel: level}
}

// GetByUsername реализует login.AccountRepository.
func (m *MockDB) GetByUsername(_ context.Context, username string) (*model.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	acc, exists := m.accounts[strings.ToLower(username)]
	if !exists {
		return nil, nil
	}

	// Возвращаем копию чтобы избежать race conditions
	cp := *acc
	return &cp, nil
}

// GetAccountVip реализует login.VipRepository.
func (m *MockDB) GetAccountVip(_ context.Context, accountID uint32) (*model.VipInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	vip, ok := m.vips[accountID]
	if !ok {
		return nil, nil
	}
	return &vip, nil
}

// Record реализует login.LoginRecordRepository.
func (m *MockDB) Record(_ context.Context, rec model.LoginRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, rec)
	return nil
}

// Records возвращает копию журнала входов.
func (m *MockDB) Records() []model.LoginRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]model.LoginRecord(nil), m.records...)
}
