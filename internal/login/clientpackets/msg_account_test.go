package clientpackets

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udisondev/longgate/internal/constants"
	"github.com/udisondev/longgate/internal/testutil"
)

func TestParseMsgAccount(t *testing.T) {
	raw := testutil.BuildMsgAccount(testutil.MsgAccountFields{
		Username:   "testuser",
		Password:   "secret",
		Realm:      constants.TestRealmName,
		MAC:        "00AABBCCDDEE",
		EffectHash: "effect",
		MagicHash:  "magic",
		BinaryHash: "dll",
		DeviceID:   "PC-01 HOME",
	})

	msg, err := ParseMsgAccount(raw)
	require.NoError(t, err)

	assert.Equal(t, "testuser", msg.Username)
	assert.Equal(t, "secret", msg.Password)
	assert.Equal(t, constants.TestRealmName, msg.Realm)
	assert.Equal(t, "00AABBCCDDEE", msg.MAC)
	assert.Equal(t, "effect", msg.EffectHash)
	assert.Equal(t, "magic", msg.MagicHash)
	assert.Equal(t, "dll", msg.BinaryHash)
	assert.Equal(t, "PC-01HOME", msg.DeviceID, "spaces are stripped from the device id")
}

func TestParseMsgAccount_FieldOffsets(t *testing.T) {
	raw := make([]byte, constants.MsgAccountMinSize)
	copy(raw[4:], "user")
	copy(raw[136:], "realm")
	copy(raw[152:], "mac")
	copy(raw[300:], "h1")
	copy(raw[333:], "h2")
	copy(raw[366:], "h3")

	msg, err := ParseMsgAccount(raw)
	require.NoError(t, err)
	assert.Equal(t, "user", msg.Username)
	assert.Equal(t, "realm", msg.Realm)
	assert.Equal(t, "mac", msg.MAC)
	assert.Equal(t, "h1", msg.EffectHash)
	assert.Equal(t, "h2", msg.MagicHash)
	assert.Equal(t, "h3", msg.BinaryHash)
	assert.Empty(t, msg.Password, "declared size 0")
	assert.Empty(t, msg.DeviceID)
}

func TestParseMsgAccount_TooShort(t *testing.T) {
	for _, size := range []int{0, 4, constants.MsgAccountMinSize - 1} {
		msg, err := ParseMsgAccount(make([]byte, size))
		assert.ErrorIs(t, err, ErrPacketTooShort, "size %d", size)
		assert.Equal(t, MsgAccount{}, msg)
	}
}

func TestParseMsgAccount_DeviceIDOutOfRange(t *testing.T) {
	tests := []struct {
		name   string
		length int16
		extra  int
	}{
		{"past the end", 10, 9},
		{"negative", -1, 16},
		{"min int16", -32768, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := make([]byte, constants.MsgAccountMinSize+tt.extra)
			copy(raw[4:], "user")
			binary.LittleEndian.PutUint16(raw[constants.MsgAccountDeviceIDLengthOffset:], uint16(tt.length))

			msg, err := ParseMsgAccount(raw)
			assert.ErrorIs(t, err, ErrDeviceIDOutOfRange)
			assert.Equal(t, MsgAccount{}, msg, "no partially decoded fields")
		})
	}
}

func TestParseMsgAccount_DeviceIDExactFit(t *testing.T) {
	raw := testutil.BuildMsgAccount(testutil.MsgAccountFields{Username: "u", DeviceID: "ABCD"})
	require.Len(t, raw, constants.MsgAccountMinSize+4)

	msg, err := ParseMsgAccount(raw)
	require.NoError(t, err)
	assert.Equal(t, "ABCD", msg.DeviceID)
}
