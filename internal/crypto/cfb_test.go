package crypto

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCFB64_RoundTripAcrossCalls(t *testing.T) {
	e, err := NewCipher(MustStandardTables(), []byte("transport-key"), true)
	require.NoError(t, err)

	enc, err := NewCFB64(e, nil)
	require.NoError(t, err)
	dec, err := NewCFB64(e, nil)
	require.NoError(t, err)

	msg := []byte("account packet crossing several cipher blocks, split into uneven parts")
	ct := make([]byte, len(msg))
	// Шифруем кусками разного размера, позиция потока должна сохраняться
	require.NoError(t, enc.Encrypt(ct[:3], msg[:3]))
	require.NoError(t, enc.Encrypt(ct[3:20], msg[3:20]))
	require.NoError(t, enc.Encrypt(ct[20:], msg[20:]))
	assert.NotEqual(t, msg, ct)

	pt := make([]byte, len(msg))
	require.NoError(t, dec.Decrypt(pt[:11], ct[:11]))
	require.NoError(t, dec.Decrypt(pt[11:], ct[11:]))
	assert.Equal(t, msg, pt)
}

func TestCFB64_IVMatters(t *testing.T) {
	e, err := NewCipher(MustStandardTables(), []byte("transport-key"), true)
	require.NoError(t, err)

	a, err := NewCFB64(e, nil)
	require.NoError(t, err)
	b, err := NewCFB64(e, bytes.Repeat([]byte{1}, BlockSize))
	require.NoError(t, err)

	msg := []byte("same plaintext")
	ca := make([]byte, len(msg))
	cb := make([]byte, len(msg))
	require.NoError(t, a.Encrypt(ca, msg))
	require.NoError(t, b.Encrypt(cb, msg))
	assert.NotEqual(t, ca, cb)
}

func TestCFB64_Errors(t *testing.T) {
	_, err := NewCFB64(nil, nil)
	assert.ErrorIs(t, err, ErrNotInitialized)

	_, err = NewCFB64(NewEngine(MustStandardTables()), nil)
	assert.ErrorIs(t, err, ErrNotInitialized)

	e, err := NewCipher(MustStandardTables(), []byte("k"), true)
	require.NoError(t, err)
	_, err = NewCFB64(e, []byte{1, 2, 3})
	assert.Error(t, err)

	s, err := NewCFB64(e, nil)
	require.NoError(t, err)
	assert.Error(t, s.Encrypt(make([]byte, 2), make([]byte, 4)))
	assert.Error(t, s.Decrypt(make([]byte, 2), make([]byte, 4)))
}
