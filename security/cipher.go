package security

import (
	"crypto/aes"
	"crypto/rc4"
	"encoding/binary"
	"fmt"
)

// applyRC4 runs the RC4 keystream XOR over data. Encrypt and decrypt
// are the same operation.
func applyRC4(key, data []byte) []byte {
	c, err := rc4.NewCipher(key)
	if err != nil {
		// Key length is fixed by Validate before any data is touched.
		panic(fmt.Sprintf("security: rc4 key: %v", err))
	}
	out := make([]byte, len(data))
	c.XORKeyStream(out, data)
	return out
}

// applyAES processes data in 16-byte blocks. Each block is XORed with
// the cipher output for a per-block counter, the final partial block is
// zero-padded before the XOR and the result truncated back to the
// original length. The operation is its own inverse, so round-trips
// hold for payload lengths that are not multiples of the block size.
func applyAES(key, data []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("aes cipher: %w", err)
	}
	out := make([]byte, len(data))
	var ctr, pad [aes.BlockSize]byte
	for off, n := 0, uint64(0); off < len(data); off, n = off+aes.BlockSize, n+1 {
		binary.LittleEndian.PutUint64(ctr[8:], n)
		block.Encrypt(pad[:], ctr[:])
		end := off + aes.BlockSize
		if end > len(data) {
			end = len(data)
		}
		for i := off; i < end; i++ {
			out[i] = data[i] ^ pad[i-off]
		}
	}
	return out, nil
}
