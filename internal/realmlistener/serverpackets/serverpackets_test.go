package serverpackets

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udisondev/longgate/internal/constants"
	"github.com/udisondev/longgate/internal/realm"
	"github.com/udisondev/longgate/internal/realmlistener/packet"
)

func TestAuthResponse(t *testing.T) {
	buf := make([]byte, 64)
	n := AuthResponse(buf, false, "no")

	// opcode + ok + "no\0" in UTF-16LE
	require.Equal(t, 1+1+6, n)
	assert.Equal(t, []byte{constants.LoginOpcodeAuthResponse, 0x00, 'n', 0, 'o', 0, 0, 0}, buf[:n])
}

func TestLoginExchange(t *testing.T) {
	buf := make([]byte, 256)
	msg := realm.LoginExchange{
		AccountID:   1001,
		AuthorityID: 2,
		IPAddress:   "10.0.0.1",
		Request:     "f47ac10b-58cc-4372-a567-0e02b2c3d479",
		VipLevel:    4,
	}
	n := LoginExchange(buf, msg)

	r := packet.NewReader(buf[:n])
	opcode, _ := r.ReadByte()
	assert.Equal(t, byte(constants.LoginOpcodeLoginExchange), opcode)

	id, err := r.ReadUint32()
	require.NoError(t, err)
	assert.Equal(t, msg.AccountID, id)

	authority, err := r.ReadUint16()
	require.NoError(t, err)
	assert.Equal(t, msg.AuthorityID, authority)

	vip, err := r.ReadByte()
	require.NoError(t, err)
	assert.Equal(t, msg.VipLevel, vip)

	ip, err := r.ReadString()
	require.NoError(t, err)
	assert.Equal(t, msg.IPAddress, ip)

	req, err := r.ReadString()
	require.NoError(t, err)
	assert.Equal(t, msg.Request, req)
	assert.Zero(t, r.Remaining())
}
