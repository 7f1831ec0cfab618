package testutil

import (
	"encoding/binary"

	"github.com/udisondev/longgate/internal/constants"
	"github.com/udisondev/longgate/internal/crypto"
)

// Fixtures содержит предварительно подготовленные тестовые данные
// для избежания дублирования в тестах.
var Fixtures = struct {
	ValidAccount  string
	ValidPassword string
	ValidSalt     string
	AccountID     uint32
	AuthorityID   uint16
}{
	ValidAccount:  "testuser",
	ValidPassword: "testpass",
	ValidSalt:     "NaCl",
	AccountID:     1001,
	AuthorityID:   1,
}

// MsgAccountFields - поля MsgAccount в открытом виде.
type MsgAccountFields struct {
	Username   string
	Password   string
	Realm      string
	MAC        string
	EffectHash string
	MagicHash  string
	BinaryHash string
	DeviceID   string
}

// BuildMsgAccount собирает MsgAccount так, как его пишет лоадер клиента:
// пароль и серийник зашифрованы, длина проставлена.
func BuildMsgAccount(f MsgAccountFields) []byte {
	device := crypto.EncryptSerial(f.DeviceID)
	buf := make([]byte, constants.MsgAccountDeviceIDOffset+len(device))

	binary.LittleEndian.PutUint16(buf[0:], uint16(len(buf)))
	binary.LittleEndian.PutUint16(buf[2:], constants.PacketTypeMsgAccount)

	putFixed(buf, constants.MsgAccountUsernameOffset, constants.MsgAccountUsernameSize, f.Username)

	buf[constants.MsgAccountPasswordSizeOffset] = byte(min(len(f.Password), crypto.PasswordMaxLength))
	copy(buf[constants.MsgAccountPasswordOffset:], crypto.EncryptPassword(f.Password))

	putFixed(buf, constants.MsgAccountRealmOffset, constants.MsgAccountRealmSize, f.Realm)
	putFixed(buf, constants.MsgAccountMACOffset, constants.MsgAccountMACSize, f.MAC)
	putFixed(buf, constants.MsgAccountEffectHashOffset, constants.MsgAccountHashSize, f.EffectHash)
	putFixed(buf, constants.MsgAccountMagicHashOffset, constants.MsgAccountHashSize, f.MagicHash)
	putFixed(buf, constants.MsgAccountBinaryHashOffset, constants.MsgAccountHashSize, f.BinaryHash)

	binary.LittleEndian.PutUint16(buf[constants.MsgAccountDeviceIDLengthOffset:], uint16(len(device)))
	copy(buf[constants.MsgAccountDeviceIDOffset:], device)
	return buf
}

func putFixed(buf []byte, offset, size int, s string) {
	copy(buf[offset:offset+size], s)
}
