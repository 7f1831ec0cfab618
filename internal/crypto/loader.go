package crypto

import (
	"strings"

	"golang.org/x/text/encoding/charmap"
)

const (
	// PasswordMaxLength caps the declared password size.
	PasswordMaxLength = 32

	// SerialOffset is added (mod 256) to every byte of the device id.
	SerialOffset = 156
)

// Фиксированные ключи лоадера клиента.
var (
	loaderKey1 = [PasswordMaxLength]byte{
		68, 101, 226, 42, 136, 112, 41, 93, 119, 214, 190, 131, 36, 138, 41, 70,
		218, 115, 53, 197, 139, 196, 209, 31, 39, 219, 145, 17, 94, 194, 204, 219,
	}
	loaderKey2 = [PasswordMaxLength]byte{
		253, 8, 70, 229, 253, 183, 12, 140, 83, 52, 158, 214, 83, 162, 239, 120,
		135, 243, 179, 113, 64, 203, 72, 95, 101, 187, 77, 116, 29, 254, 247, 175,
	}
)

// DecryptPassword recovers the password typed into the client loader.
// Only min(size, 32, len(data)) bytes are used; NUL bytes are dropped.
func DecryptPassword(data []byte, size byte) string {
	n := min(int(size), PasswordMaxLength, len(data))

	var sb strings.Builder
	sb.Grow(n)
	for i := range n {
		b := data[i] ^ loaderKey1[i*44%PasswordMaxLength] ^ loaderKey2[i*99%PasswordMaxLength]
		switch {
		case b == 0:
			continue
		case b >= 0x80:
			// ASCII decoder replacement character
			sb.WriteByte('?')
		default:
			sb.WriteByte(b)
		}
	}
	return sb.String()
}

// DecryptSerial recovers the device (computer) id. The input is not modified.
// NUL and space characters are removed from the result.
func DecryptSerial(data []byte) string {
	buf := make([]byte, len(data))
	for i, b := range data {
		buf[i] = b + SerialOffset
	}
	text := DecodeSingleByte(buf)
	return strings.NewReplacer("\x00", "", " ", "").Replace(text)
}

// DecodeSingleByte decodes one character per byte (Windows-1252).
func DecodeSingleByte(b []byte) string {
	out, err := charmap.Windows1252.NewDecoder().Bytes(b)
	if err != nil {
		// Windows-1252 maps every byte, fall back to a raw copy anyway
		return string(b)
	}
	return string(out)
}

// EncryptPassword is the client loader side of DecryptPassword.
// The result is always 63 bytes; passwords longer than 32 bytes are truncated.
func EncryptPassword(password string) []byte {
	out := make([]byte, 63)
	n := min(len(password), PasswordMaxLength)
	for i := range n {
		out[i] = password[i] ^ loaderKey1[i*44%PasswordMaxLength] ^ loaderKey2[i*99%PasswordMaxLength]
	}
	return out
}

// EncryptSerial is the client loader side of DecryptSerial for Windows-1252 text.
func EncryptSerial(serial string) []byte {
	raw, err := charmap.Windows1252.NewEncoder().Bytes([]byte(serial))
	if err != nil {
		raw = []byte(serial)
	}
	for i := range raw {
		raw[i] -= SerialOffset
	}
	return raw
}
