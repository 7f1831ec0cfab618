package realmlistener

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"

	"github.com/udisondev/longgate/internal/config"
	"github.com/udisondev/longgate/internal/constants"
	"github.com/udisondev/longgate/internal/crypto"
	"github.com/udisondev/longgate/internal/login"
	"github.com/udisondev/longgate/internal/protocol"
	"github.com/udisondev/longgate/internal/realm"
)

// Server представляет Realm↔LoginServer TCP listener
type Server struct {
	cfg    config.LoginServer
	cipher *crypto.BlowfishCipher

	sendPool *login.BytePool
	readPool *login.BytePool
	handler  *Handler

	listener net.Listener
	mu       sync.Mutex
}

// NewServer создаёт listener реалмов.
// Канал шифруется Blowfish с общим ключом cfg.RealmKey.
func NewServer(cfg config.LoginServer, realms *realm.Registry, users *login.UserManager) (*Server, error) {
	cipher, err := crypto.NewBlowfishCipher([]byte(cfg.RealmKey))
	if err != nil {
		return nil, fmt.Errorf("creating realm channel cipher: %w", err)
	}

	return &Server{
		cfg:      cfg,
		cipher:   cipher,
		sendPool: login.NewBytePool(constants.RealmListenerSendBufSize),
		readPool: login.NewBytePool(constants.RealmListenerReadBufSize),
		handler:  NewHandler(cfg, realms, users),
	}, nil
}

// Addr возвращает адрес, на котором слушает listener.
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

// Run начинает прослушивание подключений от реалмов.
// Создаёт listener на cfg.RealmListenHost:cfg.RealmListenPort и запускает accept loop.
func (s *Server) Run(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.RealmListenHost, s.cfg.RealmListenPort)
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

	// Graceful shutdown
	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	var wg sync.WaitGroup
	wg.Go(func() {
		slog.Info("realm listener started", "address", ln.Addr())
		acceptLoop(ctx, &wg, s, ln)
	})

	wg.Wait()
	return nil
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
				slog.Error("failed to accept realm connection", "error", err)
				continue
			}
			wg.Go(func() {
				handleConnection(ctx, srv, conn)
			})
		}
	}
}

func handleConnection(ctx context.Context, srv *Server, conn net.Conn) {
	rc := NewRealmConnection(conn, srv.cipher)
	defer rc.Close()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			rc.Close()
		case <-done:
		}
	}()

	slog.Info("realm connected", "remote", rc.IP())
	defer cleanup(srv, rc)

	for {
		select {
		case <-ctx.Done():
			return
		default:
			ok, err := handlePacket(ctx, rc, srv)
			if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
				slog.Error("failed to handle realm packet", "remote", rc.IP(), "error", err)
			}
			if !ok {
				return
			}
		}
	}
}

func cleanup(srv *Server, rc *RealmConnection) {
	srv.handler.releaseRealm(rc)
	if r := rc.Realm(); r != nil {
		slog.Info("realm disconnected", "realm", r.Name(), "remote", rc.IP())
	} else {
		slog.Info("realm disconnected", "remote", rc.IP())
	}
}

func handlePacket(
	ctx context.Context,
	conn *RealmConnection,
	srv *Server,
) (bool, error) {
	sendBuf := srv.sendPool.Get(constants.RealmListenerSendBufSize)
	defer srv.sendPool.Put(sendBuf)
	readBuf := srv.readPool.Get(constants.RealmListenerReadBufSize)
	defer srv.readPool.Put(readBuf)

	data, err := protocol.ReadRealmPacket(conn.conn, conn.cipher, readBuf)
	if err != nil {
		return false, fmt.Errorf("read packet: %w", err)
	}

	// Handler writes response payload into sendBuf[constants.RealmPacketHeaderSize:]
	n, ok, err := srv.handler.HandlePacket(ctx, conn, data, sendBuf[constants.RealmPacketHeaderSize:])
	if err != nil {
		return false, fmt.Errorf("handle packet: %w", err)
	}

	if n > 0 {
		if err := conn.WritePacket(sendBuf, n); err != nil {
			return false, fmt.Errorf("write packet: %w", err)
		}
	}

	return ok, nil
}
