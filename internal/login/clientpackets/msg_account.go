package clientpackets

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strings"

	"github.com/udisondev/longgate/internal/constants"
	"github.com/udisondev/longgate/internal/crypto"
)

var (
	ErrPacketTooShort     = errors.New("msg account: packet too short")
	ErrDeviceIDOutOfRange = errors.New("msg account: device id length out of range")
)

// MsgAccount [1086] - Client → LS учётные данные
//
// Format (absolute offsets, see constants.MsgAccount*):
//
//	[length u16][type u16]
//	[username 32][gap 36]
//	[passwordSize u8][password 63]   // шифр лоадера
//	[realm 16][mac 12][gap 136]
//	[effectHash 33][magicHash 33][binaryHash 33][gap 66]
//	[deviceIDLength i16][deviceID ...] // серийник, сдвиг +156
type MsgAccount struct {
	Username   string
	Password   string
	Realm      string
	MAC        string
	EffectHash string
	MagicHash  string
	BinaryHash string
	DeviceID   string
}

// ParseMsgAccount decodes a whole MsgAccount packet, length prefix included.
// On error the zero value is returned.
func ParseMsgAccount(data []byte) (MsgAccount, error) {
	if len(data) < constants.MsgAccountMinSize {
		return MsgAccount{}, fmt.Errorf("%w: got %d, want at least %d", ErrPacketTooShort, len(data), constants.MsgAccountMinSize)
	}

	deviceLen := int(int16(binary.LittleEndian.Uint16(data[constants.MsgAccountDeviceIDLengthOffset:])))
	if deviceLen < 0 || constants.MsgAccountDeviceIDOffset+deviceLen > len(data) {
		return MsgAccount{}, fmt.Errorf("%w: %d bytes at offset %d, packet is %d bytes",
			ErrDeviceIDOutOfRange, deviceLen, constants.MsgAccountDeviceIDOffset, len(data))
	}

	passwordSize := data[constants.MsgAccountPasswordSizeOffset]
	password := data[constants.MsgAccountPasswordOffset : constants.MsgAccountPasswordOffset+constants.MsgAccountPasswordSize]
	device := data[constants.MsgAccountDeviceIDOffset : constants.MsgAccountDeviceIDOffset+deviceLen]

	return MsgAccount{
		Username:   fixedString(data, constants.MsgAccountUsernameOffset, constants.MsgAccountUsernameSize),
		Password:   crypto.DecryptPassword(password, passwordSize),
		Realm:      fixedString(data, constants.MsgAccountRealmOffset, constants.MsgAccountRealmSize),
		MAC:        fixedString(data, constants.MsgAccountMACOffset, constants.MsgAccountMACSize),
		EffectHash: fixedString(data, constants.MsgAccountEffectHashOffset, constants.MsgAccountHashSize),
		MagicHash:  fixedString(data, constants.MsgAccountMagicHashOffset, constants.MsgAccountHashSize),
		BinaryHash: fixedString(data, constants.MsgAccountBinaryHashOffset, constants.MsgAccountHashSize),
		DeviceID:   crypto.DecryptSerial(device),
	}, nil
}

// fixedString decodes a fixed-width single-byte text field and drops its NUL padding.
func fixedString(data []byte, offset, size int) string {
	return strings.ReplaceAll(crypto.DecodeSingleByte(data[offset:offset+size]), "\x00", "")
}
