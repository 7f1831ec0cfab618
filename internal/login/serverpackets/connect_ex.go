package serverpackets

import (
	"encoding/binary"

	"github.com/udisondev/longgate/internal/constants"
)

// ConnectExReject writes MsgConnectEx [1055] with a rejection code into buf.
// The length prefix is left for protocol.WriteClientPacket.
// Returns the number of bytes written.
//
// Format:
//
//	[length u16][type u16][zero u32][code u32]
func ConnectExReject(buf []byte, code uint32) int {
	binary.LittleEndian.PutUint16(buf[2:], constants.PacketTypeMsgConnectEx)
	binary.LittleEndian.PutUint32(buf[4:], 0)
	binary.LittleEndian.PutUint32(buf[8:], code)
	return constants.MsgConnectExRejectSize
}

// ConnectExRedirect writes MsgConnectEx [1055] sending the client to a game server.
// host is truncated to 15 bytes and NUL padded.
//
// Format:
//
//	[length u16][type u16][token u64][host 16][port u32]
func ConnectExRedirect(buf []byte, token uint64, host string, port uint16) int {
	binary.LittleEndian.PutUint16(buf[2:], constants.PacketTypeMsgConnectEx)
	binary.LittleEndian.PutUint64(buf[4:], token)

	hostField := buf[12 : 12+constants.MsgConnectExHostSize]
	clear(hostField)
	copy(hostField[:constants.MsgConnectExHostSize-1], host)

	binary.LittleEndian.PutUint32(buf[28:], uint32(port))
	return constants.MsgConnectExRedirectSize
}
