package crypto

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"sync"
)

const (
	// SBoxCount is the number of substitution tables used by the block engine.
	SBoxCount = 8

	// SBoxEntries is the number of 32-bit entries in every table.
	SBoxEntries = 256

	// SBoxDumpSize is the size of a raw table dump: 8 tables × 256 entries × 4 bytes.
	SBoxDumpSize = SBoxCount * SBoxEntries * 4
)

// ErrTablesUnavailable is returned when the substitution tables could not be loaded.
var ErrTablesUnavailable = errors.New("substitution tables unavailable")

// SBoxes holds the eight substitution tables.
// Tables 0..3 feed the round function, tables 4..7 feed the key schedule.
type SBoxes [SBoxCount][SBoxEntries]uint32

// TableSource supplies the substitution tables.
// LoadTables must be deterministic: every call returns the same values.
type TableSource interface {
	LoadTables() (*SBoxes, error)
}

// StandardTableSource returns the tables published in RFC 2144.
type StandardTableSource struct{}

// LoadTables returns a copy of the RFC 2144 tables.
func (StandardTableSource) LoadTables() (*SBoxes, error) {
	boxes := standardSBoxes
	return &boxes, nil
}

// FileTableSource reads a raw little-endian dump of all eight tables.
// The file must contain exactly SBoxDumpSize bytes, table 0 first.
type FileTableSource struct {
	Path string
}

// LoadTables reads and decodes the dump.
func (s FileTableSource) LoadTables() (*SBoxes, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("reading sbox dump %s: %w", s.Path, err)
	}
	boxes, err := DecodeSBoxes(data)
	if err != nil {
		return nil, fmt.Errorf("decoding sbox dump %s: %w", s.Path, err)
	}
	return boxes, nil
}

// DecodeSBoxes parses a raw dump produced by EncodeSBoxes.
func DecodeSBoxes(data []byte) (*SBoxes, error) {
	if len(data) != SBoxDumpSize {
		return nil, fmt.Errorf("sbox dump: got %d bytes, want %d", len(data), SBoxDumpSize)
	}
	var boxes SBoxes
	for i := range SBoxCount {
		for j := range SBoxEntries {
			off := (i*SBoxEntries + j) * 4
			boxes[i][j] = binary.LittleEndian.Uint32(data[off:])
		}
	}
	return &boxes, nil
}

// EncodeSBoxes writes the tables in the dump format read by FileTableSource.
func EncodeSBoxes(boxes *SBoxes) []byte {
	out := make([]byte, SBoxDumpSize)
	for i := range SBoxCount {
		for j := range SBoxEntries {
			off := (i*SBoxEntries + j) * 4
			binary.LittleEndian.PutUint32(out[off:], boxes[i][j])
		}
	}
	return out
}

// Tables is the process-wide, read-only holder of the substitution tables.
// The source is consulted exactly once; the result (or the error) is cached.
type Tables struct {
	src   TableSource
	once  sync.Once
	boxes *SBoxes
	err   error
}

// NewTables creates a holder backed by src. Nothing is loaded until the first Get.
func NewTables(src TableSource) *Tables {
	return &Tables{src: src}
}

// MustStandardTables returns an already loaded holder with the RFC 2144 tables.
func MustStandardTables() *Tables {
	t := NewTables(StandardTableSource{})
	if _, err := t.Get(); err != nil {
		panic(err)
	}
	return t
}

// Get returns the loaded tables, loading them on the first call.
func (t *Tables) Get() (*SBoxes, error) {
	if t == nil {
		return nil, ErrTablesUnavailable
	}
	t.once.Do(func() {
		if t.src == nil {
			t.err = ErrTablesUnavailable
			return
		}
		boxes, err := t.src.LoadTables()
		if err != nil {
			t.err = fmt.Errorf("%w: %w", ErrTablesUnavailable, err)
			return
		}
		if boxes == nil {
			t.err = ErrTablesUnavailable
			return
		}
		t.boxes = boxes
	})
	return t.boxes, t.err
}
