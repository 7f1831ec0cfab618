package protocol

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/udisondev/longgate/internal/constants"
	"github.com/udisondev/longgate/internal/crypto"
)

// ReadClientPacket reads one client packet from r into buf and decrypts it.
// Returns a subslice of buf holding the whole packet, length and type included:
// field offsets of client packets are counted from the length prefix.
//
// Client protocol format (everything CFB encrypted):
//   - 2-byte inclusive length (LE)
//   - 2-byte packet type (LE)
//   - body
func ReadClientPacket(r io.Reader, dec *crypto.CFBStream, buf []byte) ([]byte, error) {
	if len(buf) < constants.PacketHeaderSize {
		return nil, fmt.Errorf("read client packet: buffer too small (%d)", len(buf))
	}

	if _, err := io.ReadFull(r, buf[:constants.PacketLengthSize]); err != nil {
		return nil, fmt.Errorf("reading packet length: %w", err)
	}
	if err := dec.Decrypt(buf[:constants.PacketLengthSize], buf[:constants.PacketLengthSize]); err != nil {
		return nil, fmt.Errorf("decrypting packet length: %w", err)
	}

	totalLen := int(binary.LittleEndian.Uint16(buf[:constants.PacketLengthSize]))
	if totalLen < constants.PacketHeaderSize {
		return nil, fmt.Errorf("invalid packet length: %d", totalLen)
	}
	if totalLen > constants.MaxClientPacketSize || totalLen > len(buf) {
		return nil, fmt.Errorf("packet too large: %d bytes (buffer: %d)", totalLen, len(buf))
	}

	rest := buf[constants.PacketLengthSize:totalLen]
	if _, err := io.ReadFull(r, rest); err != nil {
		return nil, fmt.Errorf("reading packet body: %w", err)
	}
	if err := dec.Decrypt(rest, rest); err != nil {
		return nil, fmt.Errorf("decrypting packet body: %w", err)
	}

	return buf[:totalLen], nil
}

// PacketType returns the little-endian type tag of a client packet.
func PacketType(packet []byte) uint16 {
	if len(packet) < constants.PacketHeaderSize {
		return 0
	}
	return binary.LittleEndian.Uint16(packet[constants.PacketLengthSize:])
}

// WriteClientPacket stamps the length prefix on buf[:n], encrypts it in-place and writes it to w.
// The packet type must already be at buf[2:4].
func WriteClientPacket(w io.Writer, enc *crypto.CFBStream, buf []byte, n int) error {
	if n < constants.PacketHeaderSize || n > len(buf) || n > constants.MaxClientPacketSize {
		return fmt.Errorf("invalid packet length: %d", n)
	}

	binary.LittleEndian.PutUint16(buf[:constants.PacketLengthSize], uint16(n))

	if err := enc.Encrypt(buf[:n], buf[:n]); err != nil {
		return fmt.Errorf("encrypting packet: %w", err)
	}
	if _, err := w.Write(buf[:n]); err != nil {
		return fmt.Errorf("writing packet: %w", err)
	}
	return nil
}

// WriteRealmPacket encrypts payload in-place and writes the packet to w.
// Precondition: payload lives at buf[constants.RealmPacketHeaderSize : constants.RealmPacketHeaderSize+payloadLen].
// buf must have enough room for header + payload + checksum + padding.
//
// Realm channel format:
//   - 2-byte length header (LE), header included
//   - Blowfish payload (payload + checksum + padding to multiple of constants.PacketPaddingAlign)
func WriteRealmPacket(w io.Writer, cipher *crypto.BlowfishCipher, buf []byte, payloadLen int) error {
	minBufSize := constants.RealmPacketHeaderSize + constants.PacketBufferPadding
	if payloadLen < 0 || payloadLen > len(buf)-minBufSize {
		return fmt.Errorf("invalid payload length: %d", payloadLen)
	}

	// Padding до кратности constants.PacketPaddingAlign
	dataSize := payloadLen + constants.PacketChecksumSize
	padding := (constants.PacketPaddingAlign - (dataSize % constants.PacketPaddingAlign)) % constants.PacketPaddingAlign
	encryptedSize := dataSize + padding

	start := constants.RealmPacketHeaderSize
	clear(buf[start+payloadLen : start+encryptedSize])
	crypto.AppendChecksum(buf, start, encryptedSize)

	if err := cipher.Encrypt(buf, start, encryptedSize); err != nil {
		return fmt.Errorf("encrypting packet: %w", err)
	}

	totalSize := start + encryptedSize
	binary.LittleEndian.PutUint16(buf[0:start], uint16(totalSize))

	if _, err := w.Write(buf[0:totalSize]); err != nil {
		return fmt.Errorf("writing packet: %w", err)
	}
	return nil
}

// ReadRealmPacket reads one realm channel packet from r into buf.
// Returns a subslice of buf with the decrypted payload (без checksum, padding остаётся).
func ReadRealmPacket(r io.Reader, cipher *crypto.BlowfishCipher, buf []byte) ([]byte, error) {
	var header [constants.RealmPacketHeaderSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, fmt.Errorf("reading packet header: %w", err)
	}

	totalLen := int(binary.LittleEndian.Uint16(header[:]))
	encryptedSize := totalLen - constants.RealmPacketHeaderSize
	if encryptedSize <= constants.PacketChecksumSize || encryptedSize%constants.PacketPaddingAlign != 0 {
		return nil, fmt.Errorf("invalid packet length: %d", totalLen)
	}
	if encryptedSize > len(buf) {
		return nil, fmt.Errorf("packet too large: %d bytes (buffer: %d)", encryptedSize, len(buf))
	}

	payload := buf[0:encryptedSize]
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, fmt.Errorf("reading encrypted payload: %w", err)
	}

	if err := cipher.Decrypt(buf, 0, encryptedSize); err != nil {
		return nil, fmt.Errorf("decrypting packet: %w", err)
	}
	if !crypto.VerifyChecksum(buf, 0, encryptedSize) {
		return nil, fmt.Errorf("checksum verification failed")
	}

	return buf[0 : encryptedSize-constants.PacketChecksumSize], nil
}
