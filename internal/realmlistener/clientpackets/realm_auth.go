package clientpackets

import (
	"errors"
	"fmt"

	"github.com/udisondev/longgate/internal/realmlistener/packet"
)

// RealmAuth [0x01] - Realm → Login регистрация реалма
//
// Format (после удаления opcode):
//
//	[name UTF-16LE null-terminated] // имя, которое клиенты пишут в MsgAccount
//	[production byte]               // 0x01 = боевой реалм
type RealmAuth struct {
	Name       string
	Production bool
}

// Parse парсит пакет RealmAuth из body (без opcode).
func (p *RealmAuth) Parse(body []byte) error {
	r := packet.NewReader(body)

	name, err := r.ReadString()
	if err != nil {
		return fmt.Errorf("reading name: %w", err)
	}
	if name == "" {
		return errors.New("empty realm name")
	}
	p.Name = name

	production, err := r.ReadBool()
	if err != nil {
		return fmt.Errorf("reading production flag: %w", err)
	}
	p.Production = production

	return nil
}
