package packet

import (
	"encoding/binary"
	"unicode/utf16"
)

// Writer пишет пакет канала реалмов в заранее выделенный буфер.
// Выход за пределы буфера - panic, размер буфера задаётся constants.RealmListenerSendBufSize.
type Writer struct {
	buf []byte
	pos int
}

// NewWriter создаёт Writer поверх buf.
func NewWriter(buf []byte) *Writer {
	return &Writer{buf: buf}
}

func (w *Writer) WriteByte(b byte) error {
	w.buf[w.pos] = b
	w.pos++
	return nil
}

func (w *Writer) WriteBool(v bool) {
	if v {
		_ = w.WriteByte(1)
		return
	}
	_ = w.WriteByte(0)
}

func (w *Writer) WriteUint16(v uint16) {
	binary.LittleEndian.PutUint16(w.buf[w.pos:], v)
	w.pos += 2
}

func (w *Writer) WriteUint32(v uint32) {
	binary.LittleEndian.PutUint32(w.buf[w.pos:], v)
	w.pos += 4
}

func (w *Writer) WriteUint64(v uint64) {
	binary.LittleEndian.PutUint64(w.buf[w.pos:], v)
	w.pos += 8
}

// WriteString пишет строку в UTF-16LE с завершающим 0x0000.
func (w *Writer) WriteString(s string) {
	for _, u := range utf16.Encode([]rune(s)) {
		w.WriteUint16(u)
	}
	w.WriteUint16(0)
}

// Len возвращает количество записанных байт.
func (w *Writer) Len() int {
	return w.pos
}
