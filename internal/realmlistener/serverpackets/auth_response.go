package serverpackets

import (
	"github.com/udisondev/longgate/internal/constants"
	"github.com/udisondev/longgate/internal/realmlistener/packet"
)

// AuthResponse [0x01] - Login → Realm результат регистрации
//
// Format:
//
//	[opcode]
//	[ok byte]                     // 0x01 = реалм зарегистрирован
//	[reason UTF-16LE]             // пусто при успехе
//
// Returns: number of bytes written to buf
func AuthResponse(buf []byte, ok bool, reason string) int {
	w := packet.NewWriter(buf)
	_ = w.WriteByte(constants.LoginOpcodeAuthResponse)
	w.WriteBool(ok)
	w.WriteString(reason)
	return w.Len()
}
