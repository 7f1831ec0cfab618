package crypto

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math/bits"
)

const (
	// BlockSize is the engine block size in bytes (64 bits).
	BlockSize = 8

	// MaxKeySize is the longest key the schedule accepts.
	MaxKeySize = 16

	// FullRounds is used for keys of 11 bytes and longer.
	FullRounds = 16

	// ReducedRounds is used for keys shorter than 11 bytes (80 bits and below).
	ReducedRounds = 12

	reducedKeyLimit = 11
)

var (
	ErrNotInitialized = errors.New("cast5: engine not initialised")
	ErrEmptyKey       = errors.New("cast5: empty key")
	ErrKeyTooLong     = errors.New("cast5: key longer than 16 bytes")
	ErrBlockSize      = errors.New("cast5: block must be exactly 8 bytes")
)

// Engine is the 64-bit Feistel block cipher used by the account protocol.
// The zero value is unusable until Init succeeds. After Init the engine is
// read-only and may be shared by goroutines that use the same key.
type Engine struct {
	tables *Tables

	boxes      *SBoxes
	km         [FullRounds + 1]uint32 // masking keys, 1-based
	kr         [FullRounds + 1]uint8  // rotation keys, 1-based, 0..31
	rounds     int
	encrypting bool
	ready      bool
}

// NewEngine creates an uninitialised engine bound to the given tables.
func NewEngine(tables *Tables) *Engine {
	return &Engine{tables: tables}
}

// NewCipher creates an engine and initialises it with key in one call.
func NewCipher(tables *Tables, key []byte, forEncryption bool) (*Engine, error) {
	e := NewEngine(tables)
	if err := e.Init(key, forEncryption); err != nil {
		return nil, err
	}
	return e, nil
}

// Init derives the round keys. On failure the engine is left untouched.
func (e *Engine) Init(key []byte, forEncryption bool) error {
	if len(key) == 0 {
		return ErrEmptyKey
	}
	if len(key) > MaxKeySize {
		return fmt.Errorf("%w: got %d", ErrKeyTooLong, len(key))
	}
	boxes, err := e.tables.Get()
	if err != nil {
		return fmt.Errorf("cast5 init: %w", err)
	}

	km, kr := keySchedule(boxes, key)

	rounds := FullRounds
	if len(key) < reducedKeyLimit {
		rounds = ReducedRounds
	}

	e.boxes = boxes
	e.km = km
	e.kr = kr
	e.rounds = rounds
	e.encrypting = forEncryption
	e.ready = true
	return nil
}

// BlockSize returns 8.
func (e *Engine) BlockSize() int {
	return BlockSize
}

// Rounds returns the number of Feistel rounds selected by the key length (0 before Init).
func (e *Engine) Rounds() int {
	return e.rounds
}

// ProcessBlock encrypts or decrypts one block depending on the direction given to Init.
func (e *Engine) ProcessBlock(dst, src []byte) error {
	if e.encrypting {
		return e.EncryptBlock(dst, src)
	}
	return e.DecryptBlock(dst, src)
}

// EncryptBlock encrypts exactly one 8-byte block from src into dst.
// dst and src may overlap entirely.
func (e *Engine) EncryptBlock(dst, src []byte) error {
	if err := e.check(dst, src); err != nil {
		return err
	}
	l := binary.BigEndian.Uint32(src[0:4])
	r := binary.BigEndian.Uint32(src[4:8])

	for i := 1; i <= e.rounds; i++ {
		l, r = r, l^e.round(i, r)
	}

	binary.BigEndian.PutUint32(dst[0:4], r)
	binary.BigEndian.PutUint32(dst[4:8], l)
	return nil
}

// DecryptBlock decrypts exactly one 8-byte block from src into dst.
// It runs the rounds backwards; the round functions themselves are not inverted.
func (e *Engine) DecryptBlock(dst, src []byte) error {
	if err := e.check(dst, src); err != nil {
		return err
	}
	l := binary.BigEndian.Uint32(src[0:4])
	r := binary.BigEndian.Uint32(src[4:8])

	for i := e.rounds; i > 0; i-- {
		l, r = r, l^e.round(i, r)
	}

	binary.BigEndian.PutUint32(dst[0:4], r)
	binary.BigEndian.PutUint32(dst[4:8], l)
	return nil
}

func (e *Engine) check(dst, src []byte) error {
	if e == nil || !e.ready {
		return ErrNotInitialized
	}
	if len(src) != BlockSize {
		return fmt.Errorf("%w: input is %d bytes", ErrBlockSize, len(src))
	}
	if len(dst) < BlockSize {
		return fmt.Errorf("%w: output is %d bytes", ErrBlockSize, len(dst))
	}
	return nil
}

// round applies the round function selected by the 1-based round index:
// 1,4,7,10,13,16 → f1; 2,5,8,11,14 → f2; 3,6,9,12,15 → f3.
func (e *Engine) round(i int, d uint32) uint32 {
	s := e.boxes
	switch (i - 1) % 3 {
	case 0:
		x := bits.RotateLeft32(e.km[i]+d, int(e.kr[i]))
		return ((s[0][x>>24] ^ s[1][(x>>16)&0xff]) - s[2][(x>>8)&0xff]) + s[3][x&0xff]
	case 1:
		x := bits.RotateLeft32(e.km[i]^d, int(e.kr[i]))
		return ((s[0][x>>24] - s[1][(x>>16)&0xff]) + s[2][(x>>8)&0xff]) ^ s[3][x&0xff]
	default:
		x := bits.RotateLeft32(e.km[i]-d, int(e.kr[i]))
		return ((s[0][x>>24] + s[1][(x>>16)&0xff]) ^ s[2][(x>>8)&0xff]) - s[3][x&0xff]
	}
}

// subkeyTaps lists, per output group, the five byte positions combined through
// tables 4,5,6,7 and finally 4+j for the j-th subkey of the group.
// Groups 0 and 2 read the z array, groups 1 and 3 read the x array.
var subkeyTaps = [4][4][5]byte{
	{{0x8, 0x9, 0x7, 0x6, 0x2}, {0xA, 0xB, 0x5, 0x4, 0x6}, {0xC, 0xD, 0x3, 0x2, 0x9}, {0xE, 0xF, 0x1, 0x0, 0xC}},
	{{0x3, 0x2, 0xC, 0xD, 0x8}, {0x1, 0x0, 0xE, 0xF, 0xD}, {0x7, 0x6, 0x8, 0x9, 0x3}, {0x5, 0x4, 0xA, 0xB, 0x7}},
	{{0x3, 0x2, 0xC, 0xD, 0x9}, {0x1, 0x0, 0xE, 0xF, 0xC}, {0x7, 0x6, 0x8, 0x9, 0x2}, {0x5, 0x4, 0xA, 0xB, 0x6}},
	{{0x8, 0x9, 0x7, 0x6, 0x3}, {0xA, 0xB, 0x5, 0x4, 0x7}, {0xC, 0xD, 0x3, 0x2, 0x8}, {0xE, 0xF, 0x1, 0x0, 0xD}},
}

// keySchedule derives Km[1..16] and Kr[1..16] from a key of at most 16 bytes.
// Eight stages alternate x→z and z→x; the first four emit masking keys, the
// last four emit rotation keys.
func keySchedule(s *SBoxes, key []byte) (km [FullRounds + 1]uint32, kr [FullRounds + 1]uint8) {
	var x, z [16]byte
	copy(x[:], key)

	for stage := range 8 {
		src := &z
		if stage%2 == 0 {
			expandXZ(s, &x, &z)
		} else {
			expandZX(s, &z, &x)
			src = &x
		}

		group := stage % 4
		for j := range 4 {
			t := subkeyTaps[group][j]
			w := s[4][src[t[0]]] ^ s[5][src[t[1]]] ^ s[6][src[t[2]]] ^ s[7][src[t[3]]] ^ s[4+j][src[t[4]]]
			n := group*4 + j + 1
			if stage < 4 {
				km[n] = w
			} else {
				kr[n] = uint8(w & 0x1f)
			}
		}
	}
	return km, kr
}

func expandXZ(s *SBoxes, x, z *[16]byte) {
	putWord(z, 0x0, word(x, 0x0)^s[4][x[0xD]]^s[5][x[0xF]]^s[6][x[0xC]]^s[7][x[0xE]]^s[6][x[0x8]])
	putWord(z, 0x4, word(x, 0x8)^s[4][z[0x0]]^s[5][z[0x2]]^s[6][z[0x1]]^s[7][z[0x3]]^s[7][x[0xA]])
	putWord(z, 0x8, word(x, 0xC)^s[4][z[0x7]]^s[5][z[0x6]]^s[6][z[0x5]]^s[7][z[0x4]]^s[4][x[0x9]])
	putWord(z, 0xC, word(x, 0x4)^s[4][z[0xA]]^s[5][z[0x9]]^s[6][z[0xB]]^s[7][z[0x8]]^s[5][x[0xB]])
}

func expandZX(s *SBoxes, z, x *[16]byte) {
	putWord(x, 0x0, word(z, 0x8)^s[4][z[0x5]]^s[5][z[0x7]]^s[6][z[0x4]]^s[7][z[0x6]]^s[6][z[0x0]])
	putWord(x, 0x4, word(z, 0x0)^s[4][x[0x0]]^s[5][x[0x2]]^s[6][x[0x1]]^s[7][x[0x3]]^s[7][z[0x2]])
	putWord(x, 0x8, word(z, 0x4)^s[4][x[0x7]]^s[5][x[0x6]]^s[6][x[0x5]]^s[7][x[0x4]]^s[4][z[0x1]])
	putWord(x, 0xC, word(z, 0xC)^s[4][x[0xA]]^s[5][x[0x9]]^s[6][x[0xB]]^s[7][x[0x8]]^s[5][z[0x3]])
}

func word(b *[16]byte, i int) uint32 {
	return binary.BigEndian.Uint32(b[i : i+4])
}

func putWord(b *[16]byte, i int, v uint32) {
	binary.BigEndian.PutUint32(b[i:i+4], v)
}
