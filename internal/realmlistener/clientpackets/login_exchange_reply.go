package clientpackets

import (
	"fmt"

	"github.com/udisondev/longgate/internal/realm"
	"github.com/udisondev/longgate/internal/realmlistener/packet"
)

// LoginExchangeReply [0x02] - Realm → Login ответ на handoff игрока
//
// Format (после удаления opcode):
//
//	[accountID int32]
//	[request UTF-16LE]  // correlation token из LoginExchange
//	[accepted byte]
//	[host UTF-16LE]     // адрес игрового сервера
//	[port int16]
//	[token int64]       // одноразовый ключ входа
//
// При accepted=0 поля host, port и token присутствуют, но не используются.
type LoginExchangeReply struct {
	realm.LoginExchangeReply
}

// Parse парсит пакет LoginExchangeReply из body (без opcode).
func (p *LoginExchangeReply) Parse(body []byte) error {
	r := packet.NewReader(body)

	accountID, err := r.ReadUint32()
	if err != nil {
		return fmt.Errorf("reading account id: %w", err)
	}
	p.AccountID = accountID

	if p.Request, err = r.ReadString(); err != nil {
		return fmt.Errorf("reading request: %w", err)
	}
	if p.Accepted, err = r.ReadBool(); err != nil {
		return fmt.Errorf("reading accepted flag: %w", err)
	}
	if p.GameHost, err = r.ReadString(); err != nil {
		return fmt.Errorf("reading game host: %w", err)
	}
	if p.GamePort, err = r.ReadUint16(); err != nil {
		return fmt.Errorf("reading game port: %w", err)
	}
	if p.Token, err = r.ReadUint64(); err != nil {
		return fmt.Errorf("reading token: %w", err)
	}

	return nil
}
