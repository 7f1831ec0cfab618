package testutil

import (
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/udisondev/longgate/internal/constants"
	"github.com/udisondev/longgate/internal/crypto"
	"github.com/udisondev/longgate/internal/protocol"
	"github.com/udisondev/longgate/internal/realm"
	"github.com/udisondev/longgate/internal/realmlistener/packet"
)

// RealmClient упрощает написание integration тестов для realmlistener.
// Играет роль сервера реалма: регистрируется и отвечает на handoff.
type RealmClient struct {
	t        testing.TB
	conn     net.Conn
	cipher   *crypto.BlowfishCipher
	readBuf  []byte
	writeBuf []byte

	// Timeout для операций
	timeout time.Duration
}

// NewRealmClient подключается к realmlistener по указанному адресу.
// Использует t.Cleanup() для автоматического закрытия соединения.
func NewRealmClient(t testing.TB, addr, realmKey string) (*RealmClient, error) {
	t.Helper()

	conn, err := net.DialTimeout("tcp", addr, 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("dial realm listener: %w", err)
	}

	client, err := NewRealmClientConn(t, conn, realmKey)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	return client, nil
}

// NewRealmClientConn оборачивает уже установленное соединение.
func NewRealmClientConn(t testing.TB, conn net.Conn, realmKey string) (*RealmClient, error) {
	t.Helper()

	cipher, err := crypto.NewBlowfishCipher([]byte(realmKey))
	if err != nil {
		return nil, fmt.Errorf("create realm cipher: %w", err)
	}

	client := &RealmClient{
		t:        t,
		conn:     conn,
		cipher:   cipher,
		readBuf:  make([]byte, constants.RealmListenerReadBufSize),
		writeBuf: make([]byte, constants.RealmListenerSendBufSize),
		timeout:  5 * time.Second,
	}

	t.Cleanup(func() {
		_ = client.Close()
	})

	return client, nil
}

// SendRealmAuth отправляет RealmAuth (0x01).
func (c *RealmClient) SendRealmAuth(name string, production bool) error {
	c.t.Helper()

	w := packet.NewWriter(c.writeBuf[constants.RealmPacketHeaderSize:])
	_ = w.WriteByte(constants.RealmOpcodeRealmAuth)
	w.WriteString(name)
	w.WriteBool(production)
	return c.write(w.Len())
}

// ReadAuthResponse читает AuthResponse (0x01).
func (c *RealmClient) ReadAuthResponse() (ok bool, reason string, err error) {
	c.t.Helper()

	r, err := c.read(constants.LoginOpcodeAuthResponse)
	if err != nil {
		return false, "", err
	}
	if ok, err = r.ReadBool(); err != nil {
		return false, "", fmt.Errorf("reading ok flag: %w", err)
	}
	if reason, err = r.ReadString(); err != nil {
		return false, "", fmt.Errorf("reading reason: %w", err)
	}
	return ok, reason, nil
}

// ReadLoginExchange читает handoff игрока (0x02).
func (c *RealmClient) ReadLoginExchange() (realm.LoginExchange, error) {
	c.t.Helper()

	var msg realm.LoginExchange
	r, err := c.read(constants.LoginOpcodeLoginExchange)
	if err != nil {
		return msg, err
	}
	if msg.AccountID, err = r.ReadUint32(); err != nil {
		return msg, fmt.Errorf("reading account id: %w", err)
	}
	if msg.AuthorityID, err = r.ReadUint16(); err != nil {
		return msg, fmt.Errorf("reading authority: %w", err)
	}
	if msg.VipLevel, err = r.ReadByte(); err != nil {
		return msg, fmt.Errorf("reading vip: %w", err)
	}
	if msg.IPAddress, err = r.ReadString(); err != nil {
		return msg, fmt.Errorf("reading ip: %w", err)
	}
	if msg.Request, err = r.ReadString(); err != nil {
		return msg, fmt.Errorf("reading request: %w", err)
	}
	return msg, nil
}

// SendLoginExchangeReply отправляет ответ реалма (0x02).
func (c *RealmClient) SendLoginExchangeReply(reply realm.LoginExchangeReply) error {
	c.t.Helper()

	w := packet.NewWriter(c.writeBuf[constants.RealmPacketHeaderSize:])
	_ = w.WriteByte(constants.RealmOpcodeLoginExchangeReply)
	w.WriteUint32(reply.AccountID)
	w.WriteString(reply.Request)
	w.WriteBool(reply.Accepted)
	w.WriteString(reply.GameHost)
	w.WriteUint16(reply.GamePort)
	w.WriteUint64(reply.Token)
	return c.write(w.Len())
}

// Close закрывает соединение.
func (c *RealmClient) Close() error {
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

func (c *RealmClient) write(n int) error {
	if err := c.conn.SetWriteDeadline(time.Now().Add(c.timeout)); err != nil {
		return fmt.Errorf("set write deadline: %w", err)
	}
	return protocol.WriteRealmPacket(c.conn, c.cipher, c.writeBuf, n)
}

func (c *RealmClient) read(opcode byte) (*packet.Reader, error) {
	if err := c.conn.SetReadDeadline(time.Now().Add(c.timeout)); err != nil {
		return nil, fmt.Errorf("set read deadline: %w", err)
	}

	data, err := protocol.ReadRealmPacket(c.conn, c.cipher, c.readBuf)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 || data[0] != opcode {
		return nil, fmt.Errorf("expected opcode 0x%02X, got % X", opcode, data[:min(len(data), 1)])
	}
	return packet.NewReader(data[1:]), nil
}
