package login

import (
	"context"
	"encoding/binary"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udisondev/longgate/internal/constants"
	"github.com/udisondev/longgate/internal/db"
	"github.com/udisondev/longgate/internal/login/clientpackets"
	"github.com/udisondev/longgate/internal/model"
	"github.com/udisondev/longgate/internal/realm"
	"github.com/udisondev/longgate/internal/testutil"
)

func TestAuthenticate_Rejections(t *testing.T) {
	tests := []struct {
		name     string
		prepare  func(t *testing.T, env *testEnv)
		modify   func(msg *clientpackets.MsgAccount)
		code     RejectionCode
		failedAt AuthState
	}{
		{
			name:     "unknown username",
			modify:   func(msg *clientpackets.MsgAccount) { msg.Username = "nobody" },
			code:     InvalidAccount,
			failedAt: StateAccountLookup,
		},
		{
			name:     "wrong password",
			modify:   func(msg *clientpackets.MsgAccount) { msg.Password = "wrong" },
			code:     InvalidPassword,
			failedAt: StatePasswordCheck,
		},
		{
			name:     "password case matters",
			modify:   func(msg *clientpackets.MsgAccount) { msg.Password = "TESTPASS" },
			code:     InvalidPassword,
			failedAt: StatePasswordCheck,
		},
		{
			name: "banned account",
			prepare: func(t *testing.T, env *testEnv) {
				require.NoError(t, env.store.BanAccount(testutil.Fixtures.ValidAccount))
			},
			code:     AccountBanned,
			failedAt: StateBanCheck,
		},
		{
			name:     "unknown realm",
			modify:   func(msg *clientpackets.MsgAccount) { msg.Realm = "X" },
			code:     ServerDown,
			failedAt: StateRealmLookup,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			if tt.prepare != nil {
				tt.prepare(t, env)
			}
			msg := validMsg()
			if tt.modify != nil {
				tt.modify(&msg)
			}
			client, _ := newTestClient(t)

			out := env.auth.Authenticate(context.Background(), client, msg)

			assert.Equal(t, StateRejected, out.State)
			assert.Equal(t, tt.code, out.Code)
			assert.Equal(t, tt.failedAt, out.FailedAt)
			assert.Nil(t, out.User)
			assert.Equal(t, StateRejected, client.State())
			assert.Empty(t, env.sender.Sent(), "no handoff on rejection")
			assert.Zero(t, env.auth.Users().Count())
		})
	}
}

func TestAuthenticate_Success(t *testing.T) {
	env := newTestEnv(t)
	env.store.SetVip(testutil.Fixtures.AccountID, 3)
	client, conn := newTestClient(t)

	out := env.auth.Authenticate(context.Background(), client, validMsg())

	require.Equal(t, StateSessionCreated, out.State)
	assert.Equal(t, RejectNone, out.Code)
	require.NotNil(t, out.User)
	assert.Equal(t, testutil.Fixtures.AccountID, out.User.AccountID)
	assert.Equal(t, byte(3), out.User.VipLevel)
	assert.Equal(t, constants.TestRealmName, out.User.Realm.Name())

	sent := env.sender.Sent()
	require.Len(t, sent, 1, "exactly one handoff")
	assert.Equal(t, realm.LoginExchange{
		AccountID:   testutil.Fixtures.AccountID,
		AuthorityID: testutil.Fixtures.AuthorityID,
		IPAddress:   "10.0.0.1",
		Request:     client.Token(),
		VipLevel:    3,
	}, sent[0])

	u, ok := env.auth.Users().Get(testutil.Fixtures.AccountID)
	require.True(t, ok)
	assert.Same(t, out.User, u)
	assert.Same(t, u, client.User())
	assert.Equal(t, testutil.Fixtures.AccountID, client.AccountID())
	assert.Equal(t, testutil.Fixtures.ValidAccount, client.Username())
	assert.Equal(t, StateSessionCreated, client.State())

	// Клиенту ничего не отправлено до ответа реалма
	assert.Empty(t, conn.Bytes())
	assert.False(t, client.IsClosed())

	records := env.store.Records()
	require.Len(t, records, 1)
	assert.Equal(t, "PC-0001", records[0].DeviceID)
	assert.Equal(t, "00FF11AA22BB", records[0].MAC)
	assert.Equal(t, "10.0.0.1", records[0].IPAddress)
}

func TestAuthenticate_DefaultVipAndRealmCase(t *testing.T) {
	env := newTestEnv(t)
	client, _ := newTestClient(t)

	msg := validMsg()
	msg.Username = "TestUser"
	msg.Realm = "aurora"
	out := env.auth.Authenticate(context.Background(), client, msg)

	require.Equal(t, StateSessionCreated, out.State)
	assert.Equal(t, byte(0), out.User.VipLevel)
	assert.Equal(t, testutil.Fixtures.ValidAccount, out.User.Username)
}

func TestAuthenticate_ConcurrentDuplicateLogin(t *testing.T) {
	env := newTestEnv(t)

	n := constants.TestConcurrentLogins
	outcomes := make([]Outcome, n)
	var wg sync.WaitGroup
	start := make(chan struct{})

	for i := range n {
		client, _ := newTestClient(t)
		wg.Go(func() {
			<-start
			outcomes[i] = env.auth.Authenticate(context.Background(), client, validMsg())
		})
	}
	close(start)
	wg.Wait()

	var created, retry int
	for _, out := range outcomes {
		switch {
		case out.State == StateSessionCreated:
			created++
		case out.Code == PleaseTryAgainLater && out.FailedAt == StateDuplicateCheck:
			retry++
		}
	}

	assert.Equal(t, 1, created, "exactly one attempt wins")
	assert.Equal(t, n-1, retry)
	assert.Len(t, env.sender.Sent(), 1)
	assert.Equal(t, 1, env.auth.Users().Count())
}

func TestAuthenticate_SecondLoginWhilePending(t *testing.T) {
	env := newTestEnv(t)

	first, _ := newTestClient(t)
	out := env.auth.Authenticate(context.Background(), first, validMsg())
	require.Equal(t, StateSessionCreated, out.State)

	second, _ := newTestClient(t)
	out = env.auth.Authenticate(context.Background(), second, validMsg())
	assert.Equal(t, PleaseTryAgainLater, out.Code)

	// Первая сессия не тронута
	u, ok := env.auth.Users().Get(testutil.Fixtures.AccountID)
	require.True(t, ok)
	assert.Same(t, first, u.Client)
}

func TestAuthenticate_CollaboratorErrors(t *testing.T) {
	tests := []struct {
		name     string
		deps     func(d *Deps)
		failedAt AuthState
	}{
		{
			name: "account repository",
			deps: func(d *Deps) {
				d.Accounts = &MockAccountRepository{
					GetByUsernameFunc: func(context.Context, string) (*model.Account, error) {
						return nil, testutil.ErrSimulated
					},
				}
			},
			failedAt: StateAccountLookup,
		},
		{
			name: "vip repository",
			deps: func(d *Deps) {
				d.Vips = &MockVipRepository{
					GetAccountVipFunc: func(context.Context, uint32) (*model.VipInfo, error) {
						return nil, testutil.ErrSimulated
					},
				}
			},
			failedAt: StateVipLookup,
		},
		{
			name: "login record",
			deps: func(d *Deps) {
				d.Records = &MockLoginRecordRepository{
					RecordFunc: func(context.Context, model.LoginRecord) error {
						return testutil.ErrSimulated
					},
				}
			},
			failedAt: StateVipLookup,
		},
		{
			name: "panic in vip lookup",
			deps: func(d *Deps) {
				d.Vips = &MockVipRepository{
					GetAccountVipFunc: func(context.Context, uint32) (*model.VipInfo, error) {
						panic("boom")
					},
				}
			},
			failedAt: StateVipLookup,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			deps := Deps{
				Accounts: env.store,
				Vips:     env.store,
				Records:  env.store,
				Hasher:   db.SHA256Hasher{},
				Realms:   env.realms,
			}
			tt.deps(&deps)
			auth := NewAuthenticator(deps)
			client, _ := newTestClient(t)

			out := auth.Authenticate(context.Background(), client, validMsg())

			assert.Equal(t, StateRejected, out.State)
			assert.Equal(t, PleaseTryAgainLater, out.Code)
			assert.Equal(t, tt.failedAt, out.FailedAt)
			assert.Zero(t, auth.Users().Count())
			assert.Empty(t, env.sender.Sent())
		})
	}
}

func TestAuthenticate_HandoffFailureUnregisters(t *testing.T) {
	env := newTestEnv(t)
	env.sender.err = realm.ErrRealmClosed
	client, _ := newTestClient(t)

	out := env.auth.Authenticate(context.Background(), client, validMsg())

	assert.Equal(t, StateRejected, out.State)
	assert.Equal(t, PleaseTryAgainLater, out.Code)
	assert.Equal(t, StateDuplicateCheck, out.FailedAt)
	assert.Zero(t, env.auth.Users().Count())
	assert.Nil(t, client.User())

	// Следующая попытка проходит после восстановления реалма
	env.sender.mu.Lock()
	env.sender.err = nil
	env.sender.mu.Unlock()

	retry, _ := newTestClient(t)
	out = env.auth.Authenticate(context.Background(), retry, validMsg())
	assert.Equal(t, StateSessionCreated, out.State)
}

func TestAuthenticate_Stats(t *testing.T) {
	env := newTestEnv(t)

	c1, _ := newTestClient(t)
	env.auth.Authenticate(context.Background(), c1, validMsg())

	msg := validMsg()
	msg.Password = "bad"
	c2, _ := newTestClient(t)
	env.auth.Authenticate(context.Background(), c2, msg)

	c3, _ := newTestClient(t)
	env.auth.Authenticate(context.Background(), c3, validMsg())

	snap := env.auth.Stats().Snapshot()
	assert.Equal(t, uint64(3), snap.Logins)
	assert.Equal(t, uint64(1), snap.Successes)
	assert.Equal(t, uint64(1), snap.Rejections[InvalidPassword])
	assert.Equal(t, uint64(1), snap.Rejections[PleaseTryAgainLater])
}

func TestHandleMsgAccount_RejectionDelivered(t *testing.T) {
	env := newTestEnv(t)
	client, conn := newTestClient(t)

	fields := validFields()
	fields.Password = "wrong"
	err := env.auth.HandleMsgAccount(context.Background(), client, testutil.BuildMsgAccount(fields))
	require.NoError(t, err)

	resp := readConnectEx(t, conn)
	assert.True(t, resp.Rejected())
	assert.Equal(t, uint32(InvalidPassword), resp.Code)
	assert.True(t, client.IsClosed())
	assert.Equal(t, 1, conn.Closes())
}

func TestHandleMsgAccount_Malformed(t *testing.T) {
	env := newTestEnv(t)
	client, conn := newTestClient(t)

	packet := testutil.BuildMsgAccount(validFields())[:constants.MsgAccountMinSize-1]
	binary.LittleEndian.PutUint16(packet, uint16(len(packet)))

	err := env.auth.HandleMsgAccount(context.Background(), client, packet)
	require.Error(t, err)

	assert.Empty(t, conn.Bytes(), "malformed packet gets no reply")
	assert.True(t, client.IsClosed())
	assert.Zero(t, env.auth.Stats().Snapshot().Logins)
}

func TestHandlePacket(t *testing.T) {
	t.Run("MsgAccount success keeps connection", func(t *testing.T) {
		env := newTestEnv(t)
		client, _ := newTestClient(t)

		ok, err := env.auth.HandlePacket(context.Background(), client, testutil.BuildMsgAccount(validFields()))
		require.NoError(t, err)
		assert.True(t, ok)
		assert.NotNil(t, client.User())
	})

	t.Run("MsgAccount rejection closes connection", func(t *testing.T) {
		env := newTestEnv(t)
		client, _ := newTestClient(t)

		fields := validFields()
		fields.Username = "nobody"
		ok, err := env.auth.HandlePacket(context.Background(), client, testutil.BuildMsgAccount(fields))
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("repeated MsgAccount is ignored", func(t *testing.T) {
		env := newTestEnv(t)
		client, _ := newTestClient(t)
		packet := testutil.BuildMsgAccount(validFields())

		_, err := env.auth.HandlePacket(context.Background(), client, packet)
		require.NoError(t, err)
		ok, err := env.auth.HandlePacket(context.Background(), client, packet)
		require.NoError(t, err)
		assert.True(t, ok)

		assert.Len(t, env.sender.Sent(), 1)
		assert.Equal(t, uint64(1), env.auth.Stats().Snapshot().Logins)
	})

	t.Run("unknown type", func(t *testing.T) {
		env := newTestEnv(t)
		client, _ := newTestClient(t)

		packet := make([]byte, 8)
		binary.LittleEndian.PutUint16(packet, 8)
		binary.LittleEndian.PutUint16(packet[2:], 9999)

		ok, err := env.auth.HandlePacket(context.Background(), client, packet)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.False(t, client.IsClosed())
	})
}
