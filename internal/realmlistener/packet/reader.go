package packet

import (
	"encoding/binary"
	"fmt"
	"unicode/utf16"
)

// Reader предоставляет методы для чтения данных из пакета канала реалмов.
// Использует Little-Endian byte order для всех многобайтовых значений.
type Reader struct {
	data []byte
	pos  int
}

// NewReader создаёт новый Reader для чтения пакета.
func NewReader(data []byte) *Reader {
	return &Reader{data: data}
}

// ReadByte читает 1 байт.
func (r *Reader) ReadByte() (byte, error) {
	if r.pos >= len(r.data) {
		return 0, fmt.Errorf("ReadByte: not enough data (pos=%d, len=%d)", r.pos, len(r.data))
	}
	b := r.data[r.pos]
	r.pos++
	return b, nil
}

// ReadBool читает 1 байт, любое ненулевое значение - true.
func (r *Reader) ReadBool() (bool, error) {
	b, err := r.ReadByte()
	return b != 0, err
}

// ReadUint16 читает 2 байта (LE).
func (r *Reader) ReadUint16() (uint16, error) {
	if r.pos+2 > len(r.data) {
		return 0, fmt.Errorf("ReadUint16: not enough data (pos=%d, len=%d)", r.pos, len(r.data))
	}
	val := binary.LittleEndian.Uint16(r.data[r.pos:])
	r.pos += 2
	return val, nil
}

// ReadUint32 читает 4 байта (LE).
func (r *Reader) ReadUint32() (uint32, error) {
	if r.pos+4 > len(r.data) {
		return 0, fmt.Errorf("ReadUint32: not enough data (pos=%d, len=%d)", r.pos, len(r.data))
	}
	val := binary.LittleEndian.Uint32(r.data[r.pos:])
	r.pos += 4
	return val, nil
}

// ReadUint64 читает 8 байт (LE).
func (r *Reader) ReadUint64() (uint64, error) {
	if r.pos+8 > len(r.data) {
		return 0, fmt.Errorf("ReadUint64: not enough data (pos=%d, len=%d)", r.pos, len(r.data))
	}
	val := binary.LittleEndian.Uint64(r.data[r.pos:])
	r.pos += 8
	return val, nil
}

// ReadString читает UTF-16LE null-terminated строку.
func (r *Reader) ReadString() (string, error) {
	var units []uint16

	for {
		if r.pos+2 > len(r.data) {
			return "", fmt.Errorf("ReadString: unexpected end of data (pos=%d, len=%d)", r.pos, len(r.data))
		}

		u := binary.LittleEndian.Uint16(r.data[r.pos:])
		r.pos += 2

		if u == 0 {
			break
		}
		units = append(units, u)
	}

	return string(utf16.Decode(units)), nil
}

// Remaining возвращает количество непрочитанных байт.
func (r *Reader) Remaining() int {
	return len(r.data) - r.pos
}

// Position возвращает текущую позицию чтения.
func (r *Reader) Position() int {
	return r.pos
}
