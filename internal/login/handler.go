package login

import (
	"context"
	"crypto/subtle"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/udisondev/longgate/internal/constants"
	"github.com/udisondev/longgate/internal/login/clientpackets"
	"github.com/udisondev/longgate/internal/model"
	"github.com/udisondev/longgate/internal/protocol"
	"github.com/udisondev/longgate/internal/realm"
)

// Deps - внешние зависимости Authenticator.
type Deps struct {
	Accounts AccountRepository
	Vips     VipRepository
	Records  LoginRecordRepository // nil - журнал не пишется
	Hasher   PasswordHasher
	Realms   RealmRegistry
	Users    *UserManager
	Stats    *Stats // nil - создаётся новый

	// Now используется для User.CreatedAt (по умолчанию time.Now)
	Now func() time.Time
}

// Outcome - результат одной попытки аутентификации.
type Outcome struct {
	State    AuthState     // StateSessionCreated или StateRejected
	FailedAt AuthState     // шаг, на котором произошёл отказ
	Code     RejectionCode // RejectNone при успехе
	User     *User
}

// Authenticator проверяет MsgAccount и передаёт сессию реалму. Singleton - один на сервер.
type Authenticator struct {
	deps Deps
}

// NewAuthenticator creates an authenticator.
func NewAuthenticator(deps Deps) *Authenticator {
	if deps.Stats == nil {
		deps.Stats = NewStats()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Users == nil {
		deps.Users = NewUserManager()
	}
	return &Authenticator{deps: deps}
}

// Users returns the session directory.
func (a *Authenticator) Users() *UserManager {
	return a.deps.Users
}

// Stats returns the login counters.
func (a *Authenticator) Stats() *Stats {
	return a.deps.Stats
}

// HandlePacket dispatches a decrypted client packet.
// Returns ok=false when the connection must be closed.
func (a *Authenticator) HandlePacket(ctx context.Context, client *Client, data []byte) (bool, error) {
	switch typ := protocol.PacketType(data); typ {
	case constants.PacketTypeMsgAccount:
		if client.User() != nil {
			slog.Warn("MsgAccount after login was accepted", "client", client.IP(), "login", client.Username())
			return true, nil
		}
		if err := a.HandleMsgAccount(ctx, client, data); err != nil {
			return false, err
		}
		return !client.IsClosed(), nil
	default:
		slog.Warn("unknown client packet type", "type", typ, "client", client.IP())
		return true, nil
	}
}

// HandleMsgAccount decodes MsgAccount, authenticates it and delivers a rejection if needed.
// A malformed packet closes the connection without a reply.
func (a *Authenticator) HandleMsgAccount(ctx context.Context, client *Client, data []byte) error {
	msg, err := clientpackets.ParseMsgAccount(data)
	if err != nil {
		slog.Warn("malformed MsgAccount", "client", client.IP(), "err", err)
		_ = client.Close()
		return fmt.Errorf("decoding MsgAccount: %w", err)
	}

	out := a.Authenticate(ctx, client, msg)
	if out.State == StateRejected {
		if err := client.Reject(out.Code); err != nil {
			return fmt.Errorf("delivering rejection: %w", err)
		}
	}
	return nil
}

// Authenticate runs the state machine for one credential packet.
// Expected failures come back as StateRejected with a code; collaborator errors
// and panics are logged and mapped to PleaseTryAgainLater.
func (a *Authenticator) Authenticate(ctx context.Context, client *Client, msg clientpackets.MsgAccount) (out Outcome) {
	a.deps.Stats.IncreaseLogin()
	client.SetState(StateReceived)

	defer func() {
		if r := recover(); r != nil {
			slog.Error("panic during authentication",
				"login", msg.Username, "client", client.IP(), "panic", r, "stack", string(debug.Stack()))
			if u := client.User(); u != nil {
				a.deps.Users.RemoveIf(u.AccountID, u)
				client.setUser(nil)
			}
			out = Outcome{State: StateRejected, FailedAt: client.State(), Code: PleaseTryAgainLater}
		}
		if out.State == StateRejected {
			a.deps.Stats.reject(out.Code)
			client.SetState(StateRejected)
		} else {
			a.deps.Stats.success()
		}
	}()

	out, err := a.authenticate(ctx, client, msg)
	if err != nil {
		slog.Error("error on MsgAccount processing",
			"login", msg.Username, "client", client.IP(), "state", out.FailedAt, "err", err)
		out.State = StateRejected
		out.Code = PleaseTryAgainLater
		out.User = nil
	}
	return out
}

func rejected(at AuthState, code RejectionCode) Outcome {
	return Outcome{State: StateRejected, FailedAt: at, Code: code}
}

func (a *Authenticator) authenticate(ctx context.Context, client *Client, msg clientpackets.MsgAccount) (Outcome, error) {
	client.SetState(StateAccountLookup)
	acc, code, err := a.lookupAccount(ctx, msg.Username)
	if err != nil || code != RejectNone {
		return rejected(StateAccountLookup, code), err
	}

	client.SetState(StatePasswordCheck)
	if code := a.checkPassword(acc, msg.Password); code != RejectNone {
		slog.Warn("invalid password", "login", msg.Username, "client", client.IP())
		return rejected(StatePasswordCheck, code), nil
	}

	client.SetState(StateBanCheck)
	if code := checkBan(acc); code != RejectNone {
		slog.Warn("account is locked", "login", msg.Username, "flag", acc.Flag)
		return rejected(StateBanCheck, code), nil
	}

	client.SetState(StateRealmLookup)
	rlm, code := a.lookupRealm(msg.Realm)
	if code != RejectNone {
		slog.Warn("unknown realm", "login", msg.Username, "realm", msg.Realm)
		return rejected(StateRealmLookup, code), nil
	}

	client.SetState(StateVipLookup)
	vipLevel, err := a.lookupVip(ctx, acc.ID)
	if err != nil {
		return rejected(StateVipLookup, RejectNone), err
	}

	client.SetAccount(acc.ID, acc.Username)
	if err := a.recordLogin(ctx, client, msg, acc.ID); err != nil {
		return rejected(StateVipLookup, RejectNone), err
	}

	client.SetState(StateDuplicateCheck)
	user := &User{
		AccountID:   acc.ID,
		Username:    acc.Username,
		AuthorityID: acc.AuthorityID,
		VipLevel:    vipLevel,
		Realm:       rlm,
		Client:      client,
		CreatedAt:   a.deps.Now(),
	}
	if !a.deps.Users.TryRegister(user) {
		slog.Warn("user is already awaiting for a login response", "login", msg.Username)
		return rejected(StateDuplicateCheck, PleaseTryAgainLater), nil
	}
	client.setUser(user)

	if err := a.handoff(ctx, client, user); err != nil {
		a.deps.Users.RemoveIf(user.AccountID, user)
		client.setUser(nil)
		return rejected(StateDuplicateCheck, RejectNone), err
	}

	client.SetState(StateSessionCreated)
	slog.Info("login accepted, waiting for realm",
		"login", acc.Username, "account", acc.ID, "realm", rlm.Name(), "vip", vipLevel, "client", client.IP())
	return Outcome{State: StateSessionCreated, User: user}, nil
}

func (a *Authenticator) lookupAccount(ctx context.Context, username string) (*model.Account, RejectionCode, error) {
	acc, err := a.deps.Accounts.GetByUsername(ctx, username)
	if err != nil {
		return nil, RejectNone, fmt.Errorf("getting account %q: %w", username, err)
	}
	if acc == nil {
		slog.Warn("username does not exist", "login", username)
		return nil, InvalidAccount, nil
	}
	return acc, RejectNone, nil
}

func (a *Authenticator) checkPassword(acc *model.Account, password string) RejectionCode {
	hash := a.deps.Hasher.Hash(password, acc.Salt)
	if subtle.ConstantTimeCompare([]byte(hash), []byte(acc.PasswordHash)) != 1 {
		return InvalidPassword
	}
	return RejectNone
}

func checkBan(acc *model.Account) RejectionCode {
	if acc.IsBanned() {
		return AccountBanned
	}
	return RejectNone
}

func (a *Authenticator) lookupRealm(name string) (*realm.Realm, RejectionCode) {
	rlm, ok := a.deps.Realms.Get(name)
	if !ok || rlm == nil {
		return nil, ServerDown
	}
	return rlm, RejectNone
}

// lookupVip returns tier 0 when the account has no VIP.
func (a *Authenticator) lookupVip(ctx context.Context, accountID uint32) (byte, error) {
	if a.deps.Vips == nil {
		return 0, nil
	}
	vip, err := a.deps.Vips.GetAccountVip(ctx, accountID)
	if err != nil {
		return 0, fmt.Errorf("getting vip for account %d: %w", accountID, err)
	}
	if vip == nil {
		return 0, nil
	}
	return vip.VipLevel, nil
}

func (a *Authenticator) recordLogin(ctx context.Context, client *Client, msg clientpackets.MsgAccount, accountID uint32) error {
	if a.deps.Records == nil {
		return nil
	}
	err := a.deps.Records.Record(ctx, model.LoginRecord{
		AccountID: accountID,
		IPAddress: client.IP(),
		DeviceID:  msg.DeviceID,
		MAC:       msg.MAC,
		Success:   true,
		CreatedAt: a.deps.Now(),
	})
	if err != nil {
		return fmt.Errorf("recording login for account %d: %w", accountID, err)
	}
	return nil
}

func (a *Authenticator) handoff(ctx context.Context, client *Client, user *User) error {
	err := user.Realm.Send(ctx, realm.LoginExchange{
		AccountID:   user.AccountID,
		AuthorityID: user.AuthorityID,
		IPAddress:   client.IP(),
		Request:     client.Token(),
		VipLevel:    user.VipLevel,
	})
	if err != nil {
		return fmt.Errorf("sending login exchange to realm %s: %w", user.Realm.Name(), err)
	}
	return nil
}
