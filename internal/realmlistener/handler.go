package realmlistener

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/udisondev/longgate/internal/config"
	"github.com/udisondev/longgate/internal/constants"
	"github.com/udisondev/longgate/internal/login"
	"github.com/udisondev/longgate/internal/realm"
	"github.com/udisondev/longgate/internal/realmlistener/clientpackets"
	"github.com/udisondev/longgate/internal/realmlistener/serverpackets"
)

// Handler обрабатывает входящие пакеты от реалмов
type Handler struct {
	cfg    config.LoginServer
	realms *realm.Registry
	users  *login.UserManager
}

// NewHandler создаёт новый handler для пакетов канала реалмов
func NewHandler(cfg config.LoginServer, realms *realm.Registry, users *login.UserManager) *Handler {
	return &Handler{
		cfg:    cfg,
		realms: realms,
		users:  users,
	}
}

// HandlePacket диспетчеризирует пакет по (state, opcode) → handler function.
// Writes response into buf. Returns: n - bytes written to buf (0 = nothing to send),
// ok - true if connection stays open (false = close after sending).
func (h *Handler) HandlePacket(
	ctx context.Context,
	conn *RealmConnection,
	data, buf []byte,
) (int, bool, error) {
	if len(data) == 0 {
		return 0, false, fmt.Errorf("empty packet")
	}

	opcode := data[0]
	body := data[1:]
	state := conn.State()

	switch state {
	case StateConnected:
		switch opcode {
		case constants.RealmOpcodeRealmAuth:
			return h.handleRealmAuth(ctx, conn, body, buf)
		default:
			return 0, false, fmt.Errorf("invalid opcode 0x%02x for state %s", opcode, state)
		}

	case StateAuthed:
		switch opcode {
		case constants.RealmOpcodeLoginExchangeReply:
			return h.handleLoginExchangeReply(ctx, conn, body, buf)
		default:
			slog.Warn("unknown realm opcode", "opcode", opcode, "realm", conn.Realm().Name())
			return 0, true, nil
		}

	default:
		return 0, false, fmt.Errorf("invalid connection state: %v", state)
	}
}

func (h *Handler) handleRealmAuth(_ context.Context, conn *RealmConnection, body, buf []byte) (int, bool, error) {
	var pkt clientpackets.RealmAuth
	if err := pkt.Parse(body); err != nil {
		return 0, false, fmt.Errorf("parsing RealmAuth packet: %w", err)
	}

	entry, allowed := h.cfg.AllowedRealm(pkt.Name)
	if !allowed {
		slog.Warn("realm is not in allow-list", "realm", pkt.Name, "ip", conn.IP())
		return serverpackets.AuthResponse(buf, false, "realm not allowed"), false, nil
	}

	production := entry.Production
	if len(h.cfg.Realms) == 0 {
		production = pkt.Production
	}

	rlm := realm.New(pkt.Name, production, conn)
	if !h.realms.Register(rlm) {
		slog.Warn("realm already connected", "realm", pkt.Name, "ip", conn.IP())
		return serverpackets.AuthResponse(buf, false, "realm already connected"), false, nil
	}

	conn.AttachRealm(rlm)
	conn.SetState(StateAuthed)

	slog.Info("realm authenticated", "realm", rlm.Name(), "production", production, "ip", conn.IP())
	return serverpackets.AuthResponse(buf, true, ""), true, nil
}

// handleLoginExchangeReply завершает вход: клиент получает адрес игрового сервера или отказ.
// Ответы на неизвестные, чужие или устаревшие запросы игнорируются.
func (h *Handler) handleLoginExchangeReply(_ context.Context, conn *RealmConnection, body, _ []byte) (int, bool, error) {
	var pkt clientpackets.LoginExchangeReply
	if err := pkt.Parse(body); err != nil {
		return 0, false, fmt.Errorf("parsing LoginExchangeReply packet: %w", err)
	}

	rlm := conn.Realm()
	u, ok := h.users.Get(pkt.AccountID)
	switch {
	case !ok:
		slog.Warn("login reply for unknown user", "account", pkt.AccountID, "realm", rlm.Name())
		return 0, true, nil
	case u.Realm != rlm:
		slog.Warn("login reply from foreign realm", "account", pkt.AccountID, "realm", rlm.Name(), "expected", u.Realm.Name())
		return 0, true, nil
	case u.Client.Token() != pkt.Request:
		slog.Warn("stale login reply", "account", pkt.AccountID, "realm", rlm.Name())
		return 0, true, nil
	}

	if !h.users.RemoveIf(u.AccountID, u) {
		// пользователь уже снят (отключился или истёк TTL)
		return 0, true, nil
	}

	if !pkt.Accepted {
		slog.Warn("realm refused login", "login", u.Username, "realm", rlm.Name())
		if err := u.Client.Reject(login.ServerDown); err != nil {
			slog.Debug("rejecting refused user", "login", u.Username, "err", err)
		}
		return 0, true, nil
	}

	if err := u.Client.Redirect(pkt.Token, pkt.GameHost, pkt.GamePort); err != nil {
		slog.Warn("failed to redirect client", "login", u.Username, "err", err)
		return 0, true, nil
	}

	slog.Info("user redirected to game server",
		"login", u.Username, "realm", rlm.Name(), "host", pkt.GameHost, "port", pkt.GamePort)
	return 0, true, nil
}

// releaseRealm снимает реалм с регистрации и отказывает ожидающим его игрокам.
// Соединение закрывается до RemoveByRealm: handoff, зарегистрированный позже,
// получит realm.ErrRealmClosed вместо записи в живой сокет.
func (h *Handler) releaseRealm(conn *RealmConnection) {
	rlm := conn.Realm()
	if rlm == nil {
		return
	}
	if err := conn.Close(); err != nil {
		slog.Debug("closing released realm connection", "realm", rlm.Name(), "err", err)
	}
	h.realms.Remove(rlm.Name(), rlm)

	for _, u := range h.users.RemoveByRealm(rlm) {
		if err := u.Client.Reject(login.ServerDown); err != nil {
			slog.Debug("rejecting user of disconnected realm", "login", u.Username, "err", err)
		}
	}
}
