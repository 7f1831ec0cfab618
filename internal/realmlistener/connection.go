package realmlistener

import (
	"context"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/udisondev/longgate/internal/constants"
	"github.com/udisondev/longgate/internal/crypto"
	"github.com/udisondev/longgate/internal/protocol"
	"github.com/udisondev/longgate/internal/realm"
	"github.com/udisondev/longgate/internal/realmlistener/serverpackets"
)

// ConnectionState - состояние соединения реалма.
type ConnectionState int

const (
	StateConnected ConnectionState = iota // ждём RealmAuth
	StateAuthed                           // реалм зарегистрирован
)

func (s ConnectionState) String() string {
	switch s {
	case StateConnected:
		return "CONNECTED"
	case StateAuthed:
		return "AUTHED"
	default:
		return "UNKNOWN"
	}
}

// RealmConnection представляет подключение одного реалма к LoginServer.
// Реализует realm.Sender: handoff пишется из горутин клиентов,
// поэтому запись сериализуется через writeMu.
type RealmConnection struct {
	conn   net.Conn
	ip     string
	cipher *crypto.BlowfishCipher

	writeMu  sync.Mutex
	writeBuf []byte
	closed   atomic.Bool

	mu    sync.Mutex
	state ConnectionState
	realm *realm.Realm
}

// NewRealmConnection создаёт подключение реалма.
func NewRealmConnection(conn net.Conn, cipher *crypto.BlowfishCipher) *RealmConnection {
	host, _, err := net.SplitHostPort(conn.RemoteAddr().String())
	if err != nil {
		host = conn.RemoteAddr().String()
	}

	return &RealmConnection{
		conn:     conn,
		ip:       host,
		cipher:   cipher,
		writeBuf: make([]byte, constants.RealmListenerSendBufSize),
		state:    StateConnected,
	}
}

// IP returns the remote IP address
func (c *RealmConnection) IP() string {
	return c.ip
}

// State возвращает текущее состояние соединения
func (c *RealmConnection) State() ConnectionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// SetState устанавливает новое состояние соединения
func (c *RealmConnection) SetState(s ConnectionState) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = s
}

// AttachRealm привязывает зарегистрированный реалм к соединению
func (c *RealmConnection) AttachRealm(r *realm.Realm) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.realm = r
}

// Realm возвращает реалм (nil до RealmAuth)
func (c *RealmConnection) Realm() *realm.Realm {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.realm
}

// WritePacket шифрует и отправляет buf, payload лежит в buf[constants.RealmPacketHeaderSize:].
func (c *RealmConnection) WritePacket(buf []byte, payloadLen int) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return protocol.WriteRealmPacket(c.conn, c.cipher, buf, payloadLen)
}

// SendLoginExchange implements realm.Sender.
// Дедлайн ctx переносится на запись в сокет.
func (c *RealmConnection) SendLoginExchange(ctx context.Context, msg realm.LoginExchange) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if c.closed.Load() {
		return realm.ErrRealmClosed
	}

	if deadline, ok := ctx.Deadline(); ok {
		if err := c.conn.SetWriteDeadline(deadline); err != nil {
			return fmt.Errorf("set write deadline: %w", err)
		}
		defer c.conn.SetWriteDeadline(time.Time{})
	}

	n := serverpackets.LoginExchange(c.writeBuf[constants.RealmPacketHeaderSize:], msg)
	if err := protocol.WriteRealmPacket(c.conn, c.cipher, c.writeBuf, n); err != nil {
		return fmt.Errorf("writing LoginExchange: %w", err)
	}
	return nil
}

// Close закрывает соединение. После Close SendLoginExchange возвращает realm.ErrRealmClosed.
func (c *RealmConnection) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	return c.conn.Close()
}
