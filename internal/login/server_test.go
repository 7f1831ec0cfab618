package login

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udisondev/longgate/internal/config"
	"github.com/udisondev/longgate/internal/constants"
	"github.com/udisondev/longgate/internal/db"
	"github.com/udisondev/longgate/internal/testutil"
)

// startTestServer поднимает Server на случайном порту поверх testEnv.
func startTestServer(t *testing.T, env *testEnv, now func() time.Time) (*Server, string) {
	t.Helper()

	cfg := config.DefaultLoginServer()
	cfg.Cipher.TransportKey = constants.TestTransportKey

	auth := NewAuthenticator(Deps{
		Accounts: env.store,
		Vips:     env.store,
		Records:  env.store,
		Hasher:   db.SHA256Hasher{},
		Realms:   env.realms,
		Now:      now,
	})
	env.auth = auth

	srv, err := NewServer(cfg, testTables, auth)
	require.NoError(t, err)

	ln, addr := testutil.ListenTCP(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = srv.Serve(ctx, ln)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	require.NoError(t, testutil.WaitForTCPReady(addr, 2*time.Second))
	return srv, addr
}

func TestNewServer_BadTransportKey(t *testing.T) {
	cfg := config.DefaultLoginServer()
	cfg.Cipher.TransportKey = ""

	_, err := NewServer(cfg, testTables, NewAuthenticator(Deps{}))
	assert.Error(t, err)
}

func TestServer_RejectsBadPassword(t *testing.T) {
	env := newTestEnv(t)
	_, addr := startTestServer(t, env, nil)

	client, err := testutil.NewLoginClient(t, addr, testTables, constants.TestTransportKey)
	require.NoError(t, err)

	fields := validFields()
	fields.Password = "nope"
	require.NoError(t, client.SendMsgAccount(fields))

	resp, err := client.ReadConnectEx()
	require.NoError(t, err)
	assert.True(t, resp.Rejected())
	assert.Equal(t, uint32(InvalidPassword), resp.Code)

	// Сервер закрывает соединение после отказа
	_, err = client.ReadConnectEx()
	assert.Error(t, err)
}

func TestServer_PendingUserReleasedOnDisconnect(t *testing.T) {
	env := newTestEnv(t)
	srv, addr := startTestServer(t, env, nil)

	client, err := testutil.NewLoginClient(t, addr, testTables, constants.TestTransportKey)
	require.NoError(t, err)
	require.NoError(t, client.SendMsgAccount(validFields()))

	users := srv.Authenticator().Users()
	testutil.WaitFor(t, func() bool { return users.Count() == 1 }, constants.TestReadTimeout)
	assert.Len(t, env.sender.Sent(), 1)

	require.NoError(t, client.Close())
	testutil.WaitFor(t, func() bool { return users.Count() == 0 }, constants.TestReadTimeout)
}

func TestServer_SweepRejectsExpiredUsers(t *testing.T) {
	env := newTestEnv(t)
	past := func() time.Time { return time.Now().Add(-time.Hour) }
	srv, addr := startTestServer(t, env, past)

	client, err := testutil.NewLoginClient(t, addr, testTables, constants.TestTransportKey)
	require.NoError(t, err)
	require.NoError(t, client.SendMsgAccount(validFields()))

	users := srv.Authenticator().Users()
	testutil.WaitFor(t, func() bool { return users.Count() == 1 }, constants.TestReadTimeout)

	assert.Equal(t, 1, srv.sweep(30*time.Second))
	assert.Zero(t, users.Count())

	resp, err := client.ReadConnectEx()
	require.NoError(t, err)
	assert.Equal(t, uint32(PleaseTryAgainLater), resp.Code)
}

func TestServer_UnknownPacketKeepsConnection(t *testing.T) {
	env := newTestEnv(t)
	srv, addr := startTestServer(t, env, nil)

	client, err := testutil.NewLoginClient(t, addr, testTables, constants.TestTransportKey)
	require.NoError(t, err)

	unknown := make([]byte, 8)
	unknown[2] = 0x01 // type 1
	require.NoError(t, client.SendRaw(unknown))

	// Тот же поток продолжает работать
	require.NoError(t, client.SendMsgAccount(validFields()))
	users := srv.Authenticator().Users()
	testutil.WaitFor(t, func() bool { return users.Count() == 1 }, constants.TestReadTimeout)
}

func TestServer_ShutdownClosesClients(t *testing.T) {
	env := newTestEnv(t)

	cfg := config.DefaultLoginServer()
	cfg.Cipher.TransportKey = constants.TestTransportKey
	srv, err := NewServer(cfg, testTables, NewAuthenticator(Deps{
		Accounts: env.store,
		Hasher:   db.SHA256Hasher{},
		Realms:   env.realms,
	}))
	require.NoError(t, err)

	ln, addr := testutil.ListenTCP(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = srv.Serve(ctx, ln)
	}()
	require.NoError(t, testutil.WaitForTCPReady(addr, 2*time.Second))

	client, err := testutil.NewLoginClient(t, addr, testTables, constants.TestTransportKey)
	require.NoError(t, err)
	require.NotNil(t, srv.Addr())

	cancel()
	select {
	case <-done:
	case <-time.After(constants.TestReadTimeout):
		t.Fatal("server did not stop")
	}

	_, err = client.ReadConnectEx()
	assert.Error(t, err)
}
