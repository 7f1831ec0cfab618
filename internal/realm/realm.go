package realm

import (
	"context"
	"errors"
	"sync/atomic"
)

// ErrRealmClosed is returned by Send after the realm connection went away.
var ErrRealmClosed = errors.New("realm connection closed")

// LoginExchange - handoff аутентифицированного игрока на реалм.
type LoginExchange struct {
	AccountID   uint32
	AuthorityID uint16
	IPAddress   string
	Request     string // correlation token соединения клиента
	VipLevel    byte
}

// LoginExchangeReply - ответ реалма на LoginExchange.
type LoginExchangeReply struct {
	AccountID uint32
	Request   string
	Accepted  bool
	GameHost  string
	GamePort  uint16
	Token     uint64 // одноразовый ключ входа на игровой сервер
}

// Sender delivers handoff messages over the realm connection.
type Sender interface {
	SendLoginExchange(ctx context.Context, msg LoginExchange) error
}

// Realm is one authenticated realm server.
type Realm struct {
	name       string
	production bool
	sender     Sender

	exchanges atomic.Uint64
}

// New creates a realm backed by sender.
func New(name string, production bool, sender Sender) *Realm {
	return &Realm{
		name:       name,
		production: production,
		sender:     sender,
	}
}

// Name returns the realm name clients put into MsgAccount.
func (r *Realm) Name() string {
	return r.name
}

// IsProduction reports whether the realm serves live players.
func (r *Realm) IsProduction() bool {
	return r.production
}

// Exchanges returns how many handoffs were sent successfully.
func (r *Realm) Exchanges() uint64 {
	return r.exchanges.Load()
}

// Send forwards the handoff to the realm.
func (r *Realm) Send(ctx context.Context, msg LoginExchange) error {
	if r.sender == nil {
		return ErrRealmClosed
	}
	if err := r.sender.SendLoginExchange(ctx, msg); err != nil {
		return err
	}
	r.exchanges.Add(1)
	return nil
}
