package crypto

import "fmt"

// CFBStream is a byte-oriented 64-bit cipher feedback stream over Engine.
// Both directions only use block encryption. The keystream position is kept
// between calls, so one stream must serve exactly one direction of one connection.
type CFBStream struct {
	engine *Engine
	iv     [BlockSize]byte
	num    int
}

// NewCFB64 creates a stream. iv may be nil (all zeros) or exactly 8 bytes.
func NewCFB64(engine *Engine, iv []byte) (*CFBStream, error) {
	if engine == nil || !engine.ready {
		return nil, ErrNotInitialized
	}
	s := &CFBStream{engine: engine}
	if iv != nil {
		if len(iv) != BlockSize {
			return nil, fmt.Errorf("cfb64: iv must be %d bytes, got %d", BlockSize, len(iv))
		}
		copy(s.iv[:], iv)
	}
	return s, nil
}

// Encrypt encrypts src into dst. len(dst) must be at least len(src).
func (s *CFBStream) Encrypt(dst, src []byte) error {
	if len(dst) < len(src) {
		return fmt.Errorf("cfb64 encrypt: output %d shorter than input %d", len(dst), len(src))
	}
	for i, p := range src {
		if err := s.refill(); err != nil {
			return err
		}
		c := s.iv[s.num] ^ p
		s.iv[s.num] = c
		dst[i] = c
		s.num = (s.num + 1) % BlockSize
	}
	return nil
}

// Decrypt decrypts src into dst. len(dst) must be at least len(src).
func (s *CFBStream) Decrypt(dst, src []byte) error {
	if len(dst) < len(src) {
		return fmt.Errorf("cfb64 decrypt: output %d shorter than input %d", len(dst), len(src))
	}
	for i, c := range src {
		if err := s.refill(); err != nil {
			return err
		}
		dst[i] = s.iv[s.num] ^ c
		s.iv[s.num] = c
		s.num = (s.num + 1) % BlockSize
	}
	return nil
}

func (s *CFBStream) refill() error {
	if s.num != 0 {
		return nil
	}
	return s.engine.EncryptBlock(s.iv[:], s.iv[:])
}
