package login

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/udisondev/longgate/internal/config"
	"github.com/udisondev/longgate/internal/constants"
	"github.com/udisondev/longgate/internal/crypto"
	"github.com/udisondev/longgate/internal/protocol"
)

// Server is the login server that accepts client connections.
type Server struct {
	cfg    config.LoginServer
	tables *crypto.Tables
	auth   *Authenticator

	readPool *BytePool

	listener net.Listener
	mu       sync.Mutex
}

// NewServer creates a login server.
// The transport key is checked once here so that a bad key fails at startup, not per connection.
func NewServer(cfg config.LoginServer, tables *crypto.Tables, auth *Authenticator) (*Server, error) {
	if _, err := crypto.NewCipher(tables, []byte(cfg.Cipher.TransportKey), true); err != nil {
		return nil, fmt.Errorf("checking transport key: %w", err)
	}

	return &Server{
		cfg:      cfg,
		tables:   tables,
		auth:     auth,
		readPool: NewBytePool(constants.DefaultReadBufSize),
	}, nil
}

// Authenticator возвращает аутентификатор (для интеграции с realmlistener).
func (s *Server) Authenticator() *Authenticator {
	return s.auth
}

// Addr возвращает адрес, на котором слушает сервер.
// Возвращает nil если сервер ещё не запущен.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Close закрывает listener и останавливает сервер.
func (s *Server) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Close()
	}
	return nil
}

// Run begins listening for client connections.
// Создаёт listener на cfg.BindAddress:cfg.Port и запускает accept loop.
func (s *Server) Run(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.BindAddress, s.cfg.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}

	return s.Serve(ctx, ln)
}

// Serve принимает готовый listener и запускает accept loop.
// Используется для тестирования с произвольным listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	var wg sync.WaitGroup
	wg.Go(func() {
		slog.Info("login server started", "address", ln.Addr())
		acceptLoop(ctx, &wg, s, ln)
	})

	wg.Wait()

	return nil
}

// RunSweeper периодически снимает пользователей, не дождавшихся ответа реалма.
// Блокируется до отмены ctx.
func (s *Server) RunSweeper(ctx context.Context) error {
	ttl := s.cfg.UserTTLDuration()
	ticker := time.NewTicker(max(ttl/2, time.Second))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.sweep(ttl)
		}
	}
}

func (s *Server) sweep(ttl time.Duration) int {
	expired := s.auth.Users().CleanExpired(ttl)
	for _, u := range expired {
		slog.Warn("realm did not answer in time", "login", u.Username, "realm", u.Realm.Name())
		if err := u.Client.Reject(PleaseTryAgainLater); err != nil {
			slog.Debug("rejecting expired user", "login", u.Username, "err", err)
		}
	}
	return len(expired)
}

func acceptLoop(
	ctx context.Context,
	wg *sync.WaitGroup,
	srv *Server,
	ln net.Listener,
) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
			conn, err := ln.Accept()
			if err != nil {
				if errors.Is(err, net.ErrClosed) {
					return
				}
				slog.Error("failed to accept new connection", "err", err)
				continue
			}
			wg.Go(func() {
				handleConnection(ctx, srv, conn)
			})
		}
	}
}

// newStreams creates the per-connection CFB streams.
// Каждое направление получает собственный engine и нулевой IV.
func (s *Server) newStreams() (dec, enc *crypto.CFBStream, err error) {
	key := []byte(s.cfg.Cipher.TransportKey)

	decEngine, err := crypto.NewCipher(s.tables, key, true)
	if err != nil {
		return nil, nil, fmt.Errorf("creating decrypt engine: %w", err)
	}
	encEngine, err := crypto.NewCipher(s.tables, key, true)
	if err != nil {
		return nil, nil, fmt.Errorf("creating encrypt engine: %w", err)
	}

	if dec, err = crypto.NewCFB64(decEngine, nil); err != nil {
		return nil, nil, err
	}
	if enc, err = crypto.NewCFB64(encEngine, nil); err != nil {
		return nil, nil, err
	}
	return dec, enc, nil
}

func handleConnection(ctx context.Context, srv *Server, conn net.Conn) {
	dec, enc, err := srv.newStreams()
	if err != nil {
		slog.Error("failed to create transport cipher", "err", err, "remote", conn.RemoteAddr())
		conn.Close()
		return
	}

	client, err := NewClient(conn, enc)
	if err != nil {
		slog.Error("failed to create client", "err", err, "remote", conn.RemoteAddr())
		conn.Close()
		return
	}

	done := make(chan struct{})
	defer close(done)
	defer client.Close()
	defer srv.releaseUser(client)

	go func() {
		select {
		case <-ctx.Done():
			client.Close()
		case <-done:
		}
	}()

	slog.Info("new connection", "remote", client.IP(), "token", client.Token())

	for {
		select {
		case <-ctx.Done():
			return
		default:
			if ok, err := handlePacket(ctx, client, dec, srv); err != nil {
				if !client.IsClosed() {
					slog.Error("failed to handle packet", "remote", client.IP(), "err", err)
				}
				return
			} else if !ok {
				return
			}
		}
	}
}

// releaseUser drops the pending user of a disconnected client.
func (s *Server) releaseUser(client *Client) {
	u := client.User()
	if u == nil {
		return
	}
	if s.auth.Users().RemoveIf(u.AccountID, u) {
		slog.Info("client left before realm answer", "login", u.Username)
	}
}

func handlePacket(
	ctx context.Context,
	cli *Client,
	dec *crypto.CFBStream,
	srv *Server,
) (bool, error) {
	readBuf := srv.readPool.Get(constants.DefaultReadBufSize)
	defer srv.readPool.Put(readBuf)

	data, err := protocol.ReadClientPacket(cli.conn, dec, readBuf)
	if err != nil {
		return false, fmt.Errorf("read packet: %w", err)
	}

	ok, err := srv.auth.HandlePacket(ctx, cli, data)
	if err != nil {
		return false, fmt.Errorf("handle packet: %w", err)
	}
	return ok, nil
}
