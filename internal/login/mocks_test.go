package login

import (
	"bytes"
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/udisondev/longgate/internal/constants"
	"github.com/udisondev/longgate/internal/crypto"
	"github.com/udisondev/longgate/internal/db"
	"github.com/udisondev/longgate/internal/login/clientpackets"
	"github.com/udisondev/longgate/internal/model"
	"github.com/udisondev/longgate/internal/protocol"
	"github.com/udisondev/longgate/internal/realm"
	"github.com/udisondev/longgate/internal/testutil"
)

var testTables = crypto.MustStandardTables()

// MockAccountRepository мок для AccountRepository в unit тестах.
type MockAccountRepository struct {
	GetByUsernameFunc func(ctx context.Context, username string) (*model.Account, error)
}

func (m *MockAccountRepository) GetByUsername(ctx context.Context, username string) (*model.Account, error) {
	if m.GetByUsernameFunc != nil {
		return m.GetByUsernameFunc(ctx, username)
	}
	return nil, nil
}

// MockVipRepository мок для VipRepository.
type MockVipRepository struct {
	GetAccountVipFunc func(ctx context.Context, accountID uint32) (*model.VipInfo, error)
}

func (m *MockVipRepository) GetAccountVip(ctx context.Context, accountID uint32) (*model.VipInfo, error) {
	if m.GetAccountVipFunc != nil {
		return m.GetAccountVipFunc(ctx, accountID)
	}
	return nil, nil
}

// MockLoginRecordRepository мок для LoginRecordRepository.
type MockLoginRecordRepository struct {
	RecordFunc func(ctx context.Context, rec model.LoginRecord) error
}

func (m *MockLoginRecordRepository) Record(ctx context.Context, rec model.LoginRecord) error {
	if m.RecordFunc != nil {
		return m.RecordFunc(ctx, rec)
	}
	return nil
}

// recordingSender запоминает все handoff сообщения.
type recordingSender struct {
	mu   sync.Mutex
	msgs []realm.LoginExchange
	err  error
}

func (s *recordingSender) SendLoginExchange(_ context.Context, msg realm.LoginExchange) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.msgs = append(s.msgs, msg)
	return nil
}

func (s *recordingSender) Sent() []realm.LoginExchange {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]realm.LoginExchange(nil), s.msgs...)
}

// testEnv - Authenticator поверх MockDB и одного реалма.
type testEnv struct {
	store  *testutil.MockDB
	sender *recordingSender
	realms *realm.Registry
	auth   *Authenticator
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store := testutil.NewMockDB()
	_, err := store.AddAccount(testutil.Fixtures.ValidAccount, testutil.Fixtures.ValidPassword,
		testutil.Fixtures.ValidSalt, testutil.Fixtures.AuthorityID)
	require.NoError(t, err)

	sender := &recordingSender{}
	realms := realm.NewRegistry()
	require.True(t, realms.Register(realm.New(constants.TestRealmName, true, sender)))

	auth := NewAuthenticator(Deps{
		Accounts: store,
		Vips:     store,
		Records:  store,
		Hasher:   db.SHA256Hasher{},
		Realms:   realms,
	})

	return &testEnv{store: store, sender: sender, realms: realms, auth: auth}
}

// newTestClient создаёт Client поверх BufferConn.
func newTestClient(t *testing.T) (*Client, *testutil.BufferConn) {
	t.Helper()

	conn := testutil.NewBufferConn("10.0.0.1:50000")
	enc, _, err := testutil.NewClientStreams(testTables, constants.TestTransportKey)
	require.NoError(t, err)

	client, err := NewClient(conn, enc)
	require.NoError(t, err)
	return client, conn
}

// readConnectEx расшифровывает первый пакет, записанный в conn.
func readConnectEx(t *testing.T, conn *testutil.BufferConn) testutil.ConnectEx {
	t.Helper()

	_, dec, err := testutil.NewClientStreams(testTables, constants.TestTransportKey)
	require.NoError(t, err)

	buf := make([]byte, constants.MaxClientPacketSize)
	data, err := protocol.ReadClientPacket(bytes.NewReader(conn.Bytes()), dec, buf)
	require.NoError(t, err)

	resp, err := testutil.ParseConnectEx(data)
	require.NoError(t, err)
	return resp
}

func validMsg() clientpackets.MsgAccount {
	return clientpackets.MsgAccount{
		Username: testutil.Fixtures.ValidAccount,
		Password: testutil.Fixtures.ValidPassword,
		Realm:    constants.TestRealmName,
		MAC:      "00FF11AA22BB",
		DeviceID: "PC-0001",
	}
}

func validFields() testutil.MsgAccountFields {
	msg := validMsg()
	return testutil.MsgAccountFields{
		Username: msg.Username,
		Password: msg.Password,
		Realm:    msg.Realm,
		MAC:      msg.MAC,
		DeviceID: msg.DeviceID,
	}
}
