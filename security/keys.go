package security

import (
	"crypto/sha256"
	"encoding/binary"

	"pdfsan/ir/raw"
)

// SeedSize is the length of the random seed all key material derives from.
const SeedSize = 32

// deriveFileKey hashes the random seed together with the key length and
// revision, then truncates to KeyLength/8 bytes.
func deriveFileKey(seed [SeedSize]byte, keyLength, revision int) []byte {
	h := sha256.New()
	h.Write(seed[:])
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], uint32(keyLength))
	h.Write(buf[:])
	binary.LittleEndian.PutUint32(buf[:], uint32(revision))
	h.Write(buf[:])
	sum := h.Sum(nil)
	return sum[:keyLength/8]
}

// objectKey derives the per-object key for ref from the file key. The
// result is memoized so repeated derivations for the same reference are
// idempotent and cheap.
func (h *Handler) objectKey(ref raw.ObjectRef) []byte {
	if v, ok := h.objKeys.Load(ref); ok {
		return v.([]byte)
	}
	d := sha256.New()
	d.Write(h.fileKey)
	var num [4]byte
	binary.LittleEndian.PutUint32(num[:], uint32(ref.Num))
	d.Write(num[:])
	var gen [2]byte
	binary.LittleEndian.PutUint16(gen[:], uint16(ref.Gen))
	d.Write(gen[:])
	sum := d.Sum(nil)
	key := sum[:len(h.fileKey)]
	actual, _ := h.objKeys.LoadOrStore(ref, key)
	return actual.([]byte)
}
