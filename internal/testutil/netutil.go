package testutil

import (
	"bytes"
	"context"
	"net"
	"sync"
	"testing"
	"time"
)

// PipeConn создаёт пару net.Conn соединений через net.Pipe для тестирования.
// Автоматически закрывает соединения при завершении теста.
func PipeConn(t testing.TB) (client, server net.Conn) {
	t.Helper()

	server, client = net.Pipe()

	t.Cleanup(func() {
		_ = server.Close()
		_ = client.Close()
	})

	return client, server
}

// ListenTCP создаёт TCP listener на случайном порту для тестов.
// Возвращает listener и адрес в формате "host:port".
// Автоматически закрывает listener при завершении теста.
func ListenTCP(t testing.TB) (net.Listener, string) {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to create TCP listener: %v", err)
	}

	t.Cleanup(func() {
		_ = listener.Close()
	})

	return listener, listener.Addr().String()
}

// ContextWithTimeout создаёт context с timeout и автоматически отменяет его при завершении теста.
func ContextWithTimeout(t testing.TB, duration time.Duration) context.Context {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), duration)
	t.Cleanup(cancel)

	return ctx
}

// FakeAddr реализует net.Addr для тестов.
type FakeAddr string

func (f FakeAddr) Network() string { return "tcp" }
func (f FakeAddr) String() string  { return string(f) }

// BufferConn - net.Conn, который складывает записанные байты в буфер.
// Чтение всегда возвращает EOF. Используется там, где нужен Client без сети.
type BufferConn struct {
	mu     sync.Mutex
	buf    bytes.Buffer
	remote FakeAddr
	closed bool
	closes int
}

// NewBufferConn создаёт BufferConn с указанным удалённым адресом ("ip:port").
func NewBufferConn(remote string) *BufferConn {
	return &BufferConn{remote: FakeAddr(remote)}
}

func (c *BufferConn) Read([]byte) (int, error) { return 0, net.ErrClosed }

func (c *BufferConn) Write(b []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return 0, net.ErrClosed
	}
	return c.buf.Write(b)
}

func (c *BufferConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.closes++
	return nil
}

// Bytes возвращает копию всего записанного.
func (c *BufferConn) Bytes() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return bytes.Clone(c.buf.Bytes())
}

// Closes возвращает, сколько раз вызывался Close.
func (c *BufferConn) Closes() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closes
}

func (c *BufferConn) LocalAddr() net.Addr              { return FakeAddr("127.0.0.1:9958") }
func (c *BufferConn) RemoteAddr() net.Addr             { return c.remote }
func (c *BufferConn) SetDeadline(time.Time) error      { return nil }
func (c *BufferConn) SetReadDeadline(time.Time) error  { return nil }
func (c *BufferConn) SetWriteDeadline(time.Time) error { return nil }
