package serverpackets

import (
	"github.com/udisondev/longgate/internal/constants"
	"github.com/udisondev/longgate/internal/realm"
	"github.com/udisondev/longgate/internal/realmlistener/packet"
)

// LoginExchange [0x02] - Login → Realm handoff аутентифицированного игрока
//
// Format:
//
//	[opcode]
//	[accountID int32]
//	[authorityID int16]
//	[vipLevel byte]
//	[ip UTF-16LE]
//	[request UTF-16LE]
//
// Returns: number of bytes written to buf
func LoginExchange(buf []byte, msg realm.LoginExchange) int {
	w := packet.NewWriter(buf)
	_ = w.WriteByte(constants.LoginOpcodeLoginExchange)
	w.WriteUint32(msg.AccountID)
	w.WriteUint16(msg.AuthorityID)
	_ = w.WriteByte(msg.VipLevel)
	w.WriteString(msg.IPAddress)
	w.WriteString(msg.Request)
	return w.Len()
}
