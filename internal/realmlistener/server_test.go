package realmlistener

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udisondev/longgate/internal/config"
	"github.com/udisondev/longgate/internal/constants"
	"github.com/udisondev/longgate/internal/db"
	"github.com/udisondev/longgate/internal/login"
	"github.com/udisondev/longgate/internal/realm"
	"github.com/udisondev/longgate/internal/testutil"
)

func TestNewServer_BadKey(t *testing.T) {
	cfg := testConfig()
	cfg.RealmKey = ""

	_, err := NewServer(cfg, realm.NewRegistry(), login.NewUserManager())
	assert.Error(t, err)
}

// gateway - login server и realm listener поверх общего реестра.
type gateway struct {
	cfg       config.LoginServer
	store     *testutil.MockDB
	realms    *realm.Registry
	auth      *login.Authenticator
	loginAddr string
	realmAddr string
}

func startGateway(t *testing.T) *gateway {
	t.Helper()

	cfg := testConfig()
	store := testutil.NewMockDB()
	_, err := store.AddAccount(testutil.Fixtures.ValidAccount, testutil.Fixtures.ValidPassword,
		testutil.Fixtures.ValidSalt, testutil.Fixtures.AuthorityID)
	require.NoError(t, err)
	store.SetVip(testutil.Fixtures.AccountID, 2)

	realms := realm.NewRegistry()
	auth := login.NewAuthenticator(login.Deps{
		Accounts: store,
		Vips:     store,
		Records:  store,
		Hasher:   db.SHA256Hasher{},
		Realms:   realms,
	})

	loginSrv, err := login.NewServer(cfg, testTables, auth)
	require.NoError(t, err)
	realmSrv, err := NewServer(cfg, realms, auth.Users())
	require.NoError(t, err)

	loginLn, loginAddr := testutil.ListenTCP(t)
	realmLn, realmAddr := testutil.ListenTCP(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{}, 2)
	go func() {
		_ = loginSrv.Serve(ctx, loginLn)
		done <- struct{}{}
	}()
	go func() {
		_ = realmSrv.Serve(ctx, realmLn)
		done <- struct{}{}
	}()
	t.Cleanup(func() {
		cancel()
		<-done
		<-done
	})

	require.NoError(t, testutil.WaitForTCPReady(loginAddr, 2*time.Second))
	require.NoError(t, testutil.WaitForTCPReady(realmAddr, 2*time.Second))

	return &gateway{
		cfg:       cfg,
		store:     store,
		realms:    realms,
		auth:      auth,
		loginAddr: loginAddr,
		realmAddr: realmAddr,
	}
}

func (g *gateway) connectRealm(t *testing.T, name string) *testutil.RealmClient {
	t.Helper()

	rc, err := testutil.NewRealmClient(t, g.realmAddr, constants.TestRealmKey)
	require.NoError(t, err)
	require.NoError(t, rc.SendRealmAuth(name, true))

	ok, reason, err := rc.ReadAuthResponse()
	require.NoError(t, err)
	require.True(t, ok, reason)
	return rc
}

func (g *gateway) login(t *testing.T, realmName string) *testutil.LoginClient {
	t.Helper()

	client, err := testutil.NewLoginClient(t, g.loginAddr, testTables, constants.TestTransportKey)
	require.NoError(t, err)
	require.NoError(t, client.SendMsgAccount(testutil.MsgAccountFields{
		Username: testutil.Fixtures.ValidAccount,
		Password: testutil.Fixtures.ValidPassword,
		Realm:    realmName,
		DeviceID: "PC-0001",
	}))
	return client
}

func TestGateway_FullLogin(t *testing.T) {
	g := startGateway(t)
	rc := g.connectRealm(t, constants.TestRealmName)

	client := g.login(t, constants.TestRealmName)

	exchange, err := rc.ReadLoginExchange()
	require.NoError(t, err)
	assert.Equal(t, testutil.Fixtures.AccountID, exchange.AccountID)
	assert.Equal(t, testutil.Fixtures.AuthorityID, exchange.AuthorityID)
	assert.Equal(t, byte(2), exchange.VipLevel)
	assert.Equal(t, "127.0.0.1", exchange.IPAddress)
	assert.NotEmpty(t, exchange.Request)

	require.NoError(t, rc.SendLoginExchangeReply(realm.LoginExchangeReply{
		AccountID: exchange.AccountID,
		Request:   exchange.Request,
		Accepted:  true,
		GameHost:  "127.0.0.1",
		GamePort:  5816,
		Token:     42,
	}))

	resp, err := client.ReadConnectEx()
	require.NoError(t, err)
	assert.False(t, resp.Rejected())
	assert.Equal(t, uint64(42), resp.Token)
	assert.Equal(t, "127.0.0.1", resp.Host)
	assert.Equal(t, uint32(5816), resp.Port)

	testutil.WaitFor(t, func() bool { return g.auth.Users().Count() == 0 }, constants.TestReadTimeout)
	assert.Equal(t, uint64(1), g.auth.Stats().Snapshot().Successes)
}

func TestGateway_RealmOffline(t *testing.T) {
	g := startGateway(t)

	client := g.login(t, constants.TestRealmName)

	resp, err := client.ReadConnectEx()
	require.NoError(t, err)
	assert.Equal(t, uint32(login.ServerDown), resp.Code)
}

func TestGateway_RealmDisconnectRejectsPending(t *testing.T) {
	g := startGateway(t)
	rc := g.connectRealm(t, constants.TestRealmName)

	client := g.login(t, constants.TestRealmName)
	_, err := rc.ReadLoginExchange()
	require.NoError(t, err)

	require.NoError(t, rc.Close())

	resp, err := client.ReadConnectEx()
	require.NoError(t, err)
	assert.Equal(t, uint32(login.ServerDown), resp.Code)

	testutil.WaitFor(t, func() bool { return g.realms.Count() == 0 }, constants.TestReadTimeout)

	// Реалм может переподключиться под тем же именем
	g.connectRealm(t, constants.TestRealmName)
}

func TestGateway_WrongRealmKey(t *testing.T) {
	g := startGateway(t)

	rc, err := testutil.NewRealmClient(t, g.realmAddr, "some-other-key")
	require.NoError(t, err)
	require.NoError(t, rc.SendRealmAuth(constants.TestRealmName, true))

	// Checksum не сойдётся, listener закроет соединение
	_, _, err = rc.ReadAuthResponse()
	assert.Error(t, err)
	assert.Zero(t, g.realms.Count())
}
