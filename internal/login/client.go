package login

import (
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/udisondev/longgate/internal/constants"
	"github.com/udisondev/longgate/internal/crypto"
	"github.com/udisondev/longgate/internal/login/serverpackets"
	"github.com/udisondev/longgate/internal/protocol"
)

// Client represents a single client connection to the login server.
type Client struct {
	conn  net.Conn
	ip    string
	token uuid.UUID

	// enc шифрует исходящий поток; запись сериализуется через writeMu
	enc     *crypto.CFBStream
	writeMu sync.Mutex

	closeOnce sync.Once
	closed    atomic.Bool
	closeErr  error

	state     AuthState
	accountID uint32
	username  string
	user      *User

	mu sync.Mutex
}

// NewClient creates a new login client for the given connection.
// enc is the outgoing CFB stream of this connection.
func NewClient(conn net.Conn, enc *crypto.CFBStream) (*Client, error) {
	host, _, err := net.SplitHostPort(conn.RemoteAddr().String())
	if err != nil {
		return nil, fmt.Errorf("splitting host port: %w", err)
	}

	return &Client{
		conn:  conn,
		ip:    host,
		token: uuid.New(),
		enc:   enc,
		state: StateReceived,
	}, nil
}

// IP returns the client's remote IP address.
func (c *Client) IP() string {
	return c.ip
}

// Token returns the correlation token sent to the realm in the handoff.
func (c *Client) Token() string {
	return c.token.String()
}

// State returns the current authentication state.
func (c *Client) State() AuthState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// SetState sets the authentication state.
func (c *Client) SetState(s AuthState) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = s
}

// SetAccount binds the connection to an account identity.
func (c *Client) SetAccount(id uint32, username string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.accountID = id
	c.username = username
}

// AccountID returns the bound account id (0 before authentication).
func (c *Client) AccountID() uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.accountID
}

// Username returns the bound account name.
func (c *Client) Username() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.username
}

// User returns the pending user created for this connection, if any.
func (c *Client) User() *User {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.user
}

func (c *Client) setUser(u *User) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.user = u
}

// IsClosed reports whether Close was called.
func (c *Client) IsClosed() bool {
	return c.closed.Load()
}

// Send encrypts and writes one packet: buf[:n] with the type already at buf[2:4].
// Returns net.ErrClosed after Close.
func (c *Client) Send(buf []byte, n int) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if c.closed.Load() {
		return net.ErrClosed
	}
	return protocol.WriteClientPacket(c.conn, c.enc, buf, n)
}

// Reject sends MsgConnectEx with code and closes the connection.
// On an already closed connection it does nothing.
func (c *Client) Reject(code RejectionCode) error {
	if c.closed.Load() {
		return nil
	}
	c.SetState(StateRejected)

	var buf [constants.MsgConnectExRejectSize]byte
	n := serverpackets.ConnectExReject(buf[:], uint32(code))
	sendErr := c.Send(buf[:], n)
	closeErr := c.Close()
	if sendErr != nil && !errors.Is(sendErr, net.ErrClosed) {
		return fmt.Errorf("sending rejection %s: %w", code, sendErr)
	}
	return closeErr
}

// Redirect sends MsgConnectEx pointing the client at its game server and closes the connection.
func (c *Client) Redirect(token uint64, host string, port uint16) error {
	var buf [constants.MsgConnectExRedirectSize]byte
	n := serverpackets.ConnectExRedirect(buf[:], token, host, port)
	sendErr := c.Send(buf[:], n)
	closeErr := c.Close()
	if sendErr != nil {
		return fmt.Errorf("sending redirect: %w", sendErr)
	}
	return closeErr
}

// Close closes the connection. Repeated calls return the first result.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		c.closeErr = c.conn.Close()
	})
	return c.closeErr
}
