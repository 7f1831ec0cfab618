package testutil

import (
	"encoding/binary"
	"fmt"
	"math/rand/v2"
	"net"
	"testing"
	"time"

	"github.com/udisondev/longgate/internal/constants"
	"github.com/udisondev/longgate/internal/crypto"
	"github.com/udisondev/longgate/internal/protocol"
)

// LoginClient упрощает написание integration тестов для LoginServer.
// Управляет подключением, CFB шифрованием и чтением/записью пакетов.
type LoginClient struct {
	t        testing.TB
	conn     net.Conn
	enc      *crypto.CFBStream
	dec      *crypto.CFBStream
	readBuf  []byte
	writeBuf []byte

	// Timeout для операций
	timeout time.Duration
}

// ConnectEx - разобранный ответ MsgConnectEx.
type ConnectEx struct {
	// Code != 0 означает отказ
	Code uint32

	Token uint64
	Host  string
	Port  uint32
}

// Rejected сообщает, является ли ответ отказом.
func (c ConnectEx) Rejected() bool {
	return c.Token == 0 && c.Code != 0
}

// NewLoginClient создаёт LoginClient и подключается к LoginServer по указанному адресу.
// Использует t.Cleanup() для автоматического закрытия соединения.
func NewLoginClient(t testing.TB, addr string, tables *crypto.Tables, transportKey string) (*LoginClient, error) {
	t.Helper()

	// Retry dial с экспоненциальным бэкофф + jitter
	var conn net.Conn
	var err error
	for attempt := range 5 {
		conn, err = net.DialTimeout("tcp", addr, 5*time.Second)
		if err == nil {
			break
		}
		if attempt < 4 {
			base := time.Duration(20<<attempt) * time.Millisecond
			jitter := time.Duration(rand.IntN(int(base/2)+1)) * time.Millisecond
			time.Sleep(base + jitter)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("dial login server: %w", err)
	}

	client, err := NewLoginClientConn(t, conn, tables, transportKey)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	return client, nil
}

// NewLoginClientConn оборачивает уже установленное соединение (например net.Pipe).
func NewLoginClientConn(t testing.TB, conn net.Conn, tables *crypto.Tables, transportKey string) (*LoginClient, error) {
	t.Helper()

	enc, dec, err := NewClientStreams(tables, transportKey)
	if err != nil {
		return nil, err
	}

	client := &LoginClient{
		t:        t,
		conn:     conn,
		enc:      enc,
		dec:      dec,
		readBuf:  make([]byte, constants.MaxClientPacketSize),
		writeBuf: make([]byte, constants.MaxClientPacketSize),
		timeout:  5 * time.Second,
	}

	t.Cleanup(func() {
		_ = client.Close()
	})

	return client, nil
}

// NewClientStreams создаёт пару CFB потоков клиентской стороны (нулевой IV).
func NewClientStreams(tables *crypto.Tables, transportKey string) (enc, dec *crypto.CFBStream, err error) {
	key := []byte(transportKey)

	encEngine, err := crypto.NewCipher(tables, key, true)
	if err != nil {
		return nil, nil, fmt.Errorf("create encrypt engine: %w", err)
	}
	decEngine, err := crypto.NewCipher(tables, key, true)
	if err != nil {
		return nil, nil, fmt.Errorf("create decrypt engine: %w", err)
	}

	if enc, err = crypto.NewCFB64(encEngine, nil); err != nil {
		return nil, nil, err
	}
	if dec, err = crypto.NewCFB64(decEngine, nil); err != nil {
		return nil, nil, err
	}
	return enc, dec, nil
}

// SendMsgAccount отправляет MsgAccount собранный из полей f.
func (c *LoginClient) SendMsgAccount(f MsgAccountFields) error {
	c.t.Helper()
	return c.SendRaw(BuildMsgAccount(f))
}

// SendRaw шифрует и отправляет готовый пакет (длина перезаписывается).
func (c *LoginClient) SendRaw(packet []byte) error {
	c.t.Helper()

	n := copy(c.writeBuf, packet)

	if err := c.conn.SetWriteDeadline(time.Now().Add(c.timeout)); err != nil {
		return fmt.Errorf("set write deadline: %w", err)
	}
	if err := protocol.WriteClientPacket(c.conn, c.enc, c.writeBuf, n); err != nil {
		return fmt.Errorf("write packet: %w", err)
	}
	return nil
}

// ReadConnectEx читает и разбирает ответ MsgConnectEx.
func (c *LoginClient) ReadConnectEx() (ConnectEx, error) {
	c.t.Helper()

	if err := c.conn.SetReadDeadline(time.Now().Add(c.timeout)); err != nil {
		return ConnectEx{}, fmt.Errorf("set read deadline: %w", err)
	}

	data, err := protocol.ReadClientPacket(c.conn, c.dec, c.readBuf)
	if err != nil {
		return ConnectEx{}, fmt.Errorf("read packet: %w", err)
	}
	return ParseConnectEx(data)
}

// ParseConnectEx разбирает расшифрованный MsgConnectEx.
func ParseConnectEx(data []byte) (ConnectEx, error) {
	if t := protocol.PacketType(data); t != constants.PacketTypeMsgConnectEx {
		return ConnectEx{}, fmt.Errorf("expected MsgConnectEx, got type %d", t)
	}

	switch len(data) {
	case constants.MsgConnectExRejectSize:
		return ConnectEx{Code: binary.LittleEndian.Uint32(data[8:12])}, nil
	case constants.MsgConnectExRedirectSize:
		host := data[12 : 12+constants.MsgConnectExHostSize]
		end := 0
		for end < len(host) && host[end] != 0 {
			end++
		}
		return ConnectEx{
			Token: binary.LittleEndian.Uint64(data[4:12]),
			Host:  string(host[:end]),
			Port:  binary.LittleEndian.Uint32(data[28:32]),
		}, nil
	default:
		return ConnectEx{}, fmt.Errorf("unexpected MsgConnectEx size %d", len(data))
	}
}

// SetTimeout изменяет timeout для операций.
func (c *LoginClient) SetTimeout(d time.Duration) {
	c.timeout = d
}

// Conn возвращает сырое соединение.
func (c *LoginClient) Conn() net.Conn {
	return c.conn
}

// Close закрывает соединение.
func (c *LoginClient) Close() error {
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
