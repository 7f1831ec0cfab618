package crypto

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDecryptPassword(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		size byte
		want string
	}{
		{"zero size", make([]byte, 63), 0, ""},
		{"round trip", EncryptPassword("hunter2"), 7, "hunter2"},
		{"size truncates", EncryptPassword("hunter2"), 4, "hunt"},
		{"size capped at 32", EncryptPassword("abcdefghijklmnopqrstuvwxyz0123456789"), 200, "abcdefghijklmnopqrstuvwxyz012345"},
		{"size beyond data", EncryptPassword("pw")[:2], 10, "pw"},
		{"empty data", nil, 16, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DecryptPassword(tt.data, tt.size))
		})
	}
}

func TestDecryptPassword_SkipsNulAndReplacesHighBytes(t *testing.T) {
	data := EncryptPassword("ab")
	// Третий байт даёт 0x00 после XOR, четвёртый даёт 0xE9
	data[2] = loaderKey1[2*44%PasswordMaxLength] ^ loaderKey2[2*99%PasswordMaxLength]
	data[3] = 0xE9 ^ loaderKey1[3*44%PasswordMaxLength] ^ loaderKey2[3*99%PasswordMaxLength]

	assert.Equal(t, "ab?", DecryptPassword(data, 4))
}

func TestDecryptSerial(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want string
	}{
		{"empty", nil, ""},
		{"offset wraps", []byte{255}, "›"},
		{"ascii", []byte{'A' - SerialOffset + 256, 'b' - SerialOffset + 256, '7' - SerialOffset + 256}, "Ab7"},
		{"spaces and nul removed", []byte{' ' - SerialOffset + 256, 'X' - SerialOffset + 256, 256 - SerialOffset, 'Y' - SerialOffset + 256}, "XY"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DecryptSerial(tt.data))
		})
	}
}

func TestEncryptSerial_RoundTrip(t *testing.T) {
	assert.Equal(t, "HDD-7F3A›", DecryptSerial(EncryptSerial("HDD-7F3A›")))
	assert.Len(t, EncryptPassword("x"), 63)
}

func TestDecryptSerial_DoesNotModifyInput(t *testing.T) {
	data := []byte{1, 2, 3}
	_ = DecryptSerial(data)
	assert.Equal(t, []byte{1, 2, 3}, data)
}
