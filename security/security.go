// Package security implements the document encryption subsystem: key
// derivation, per-object cipher application, and Encrypt dictionary
// synthesis for standard security handlers.
package security

import (
	"crypto/rand"
	"errors"
	"fmt"
	"sync"

	"pdfsan/ir/raw"
)

// Method selects a cipher family.
type Method int

const (
	MethodIdentity Method = iota
	MethodRC4
	MethodAES
)

func (m Method) String() string {
	switch m {
	case MethodRC4:
		return "RC4"
	case MethodAES:
		return "AES"
	case MethodIdentity:
		return "Identity"
	}
	return fmt.Sprintf("Method(%d)", int(m))
}

var (
	// ErrInvalidKeyLength is returned when the key length does not match
	// the selected method.
	ErrInvalidKeyLength = errors.New("security: invalid key length")

	// ErrInvalidEncryptionConfig is returned for any configuration that
	// fails validation. No document object is touched in that case.
	ErrInvalidEncryptionConfig = errors.New("security: invalid encryption config")

	// ErrNoEncryptionKey is returned when a cipher operation is attempted
	// before a file key has been derived.
	ErrNoEncryptionKey = errors.New("security: no encryption key")
)

// Config describes the encryption parameters for a document.
type Config struct {
	Method          Method
	KeyLength       int // bits
	EncryptMetadata bool
	Revision        int
}

// Validate checks the method/length pairing before any key material is
// derived. RC4 accepts 40 or 128 bits, AES accepts 128 or 256 bits,
// Identity accepts anything.
func (c Config) Validate() error {
	switch c.Method {
	case MethodRC4:
		if c.KeyLength != 40 && c.KeyLength != 128 {
			return fmt.Errorf("%w: RC4 key length %d (want 40 or 128): %w",
				ErrInvalidEncryptionConfig, c.KeyLength, ErrInvalidKeyLength)
		}
	case MethodAES:
		if c.KeyLength != 128 && c.KeyLength != 256 {
			return fmt.Errorf("%w: AES key length %d (want 128 or 256): %w",
				ErrInvalidEncryptionConfig, c.KeyLength, ErrInvalidKeyLength)
		}
	case MethodIdentity:
	default:
		return fmt.Errorf("%w: unknown method %d", ErrInvalidEncryptionConfig, int(c.Method))
	}
	return nil
}

// State records what has happened to an object.
type State int

const (
	StateUnprocessed State = iota
	StateEncrypted
	StateDecrypted
)

// Handler derives keys and applies ciphers to document objects. A
// Handler is safe for concurrent use.
type Handler struct {
	cfg     Config
	seed    [SeedSize]byte
	fileKey []byte

	objKeys sync.Map // raw.ObjectRef -> []byte
	states  sync.Map // raw.ObjectRef -> State
}

// NewHandler validates cfg and derives the file key from a fresh random
// seed. A failed validation leaves nothing derived.
func NewHandler(cfg Config) (*Handler, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	h := &Handler{cfg: cfg}
	if cfg.Method == MethodIdentity {
		return h, nil
	}
	if _, err := rand.Read(h.seed[:]); err != nil {
		return nil, fmt.Errorf("security: seed: %w", err)
	}
	h.fileKey = deriveFileKey(h.seed, cfg.KeyLength, cfg.Revision)
	return h, nil
}

// NewHandlerWithSeed derives the file key from a caller-provided seed.
// The same (cfg, seed) pair always yields the same keys, which is what
// lets a later Handler decrypt a document a previous one encrypted.
func NewHandlerWithSeed(cfg Config, seed [SeedSize]byte) (*Handler, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	h := &Handler{cfg: cfg, seed: seed}
	if cfg.Method != MethodIdentity {
		h.fileKey = deriveFileKey(seed, cfg.KeyLength, cfg.Revision)
	}
	return h, nil
}

// Config returns the handler's configuration.
func (h *Handler) Config() Config { return h.cfg }

// Seed returns the seed the handler's keys derive from. Callers that
// need to decrypt later must persist it.
func (h *Handler) Seed() [SeedSize]byte { return h.seed }

// ObjectState reports the processing state of ref.
func (h *Handler) ObjectState(ref raw.ObjectRef) State {
	if v, ok := h.states.Load(ref); ok {
		return v.(State)
	}
	return StateUnprocessed
}

// skip reports whether ref is excluded from cipher application. The
// Encrypt dictionary itself and object number 1 are never processed.
func skip(ref, encryptRef raw.ObjectRef, hasEncrypt bool) bool {
	if ref.Num == 1 {
		return true
	}
	return hasEncrypt && encryptRef == ref
}

// EncryptDocument applies the configured cipher to every string and
// stream payload in doc, excluding the Encrypt dictionary object and
// object number 1. Identity is a no-op.
func (h *Handler) EncryptDocument(doc *raw.Document) error {
	return h.process(doc, true)
}

// DecryptDocument reverses EncryptDocument under the same key material.
func (h *Handler) DecryptDocument(doc *raw.Document) error {
	return h.process(doc, false)
}

func (h *Handler) process(doc *raw.Document, encrypt bool) error {
	if h.cfg.Method == MethodIdentity {
		return nil
	}
	if h.fileKey == nil {
		return ErrNoEncryptionKey
	}
	encRef, hasEnc := doc.EncryptRef()
	for _, ref := range doc.SortedRefs() {
		if skip(ref, encRef, hasEnc) {
			continue
		}
		key := h.objectKey(ref)
		out, err := h.applyObject(doc.Objects[ref], key, encrypt)
		if err != nil {
			return fmt.Errorf("security: object %s: %w", ref, err)
		}
		doc.Objects[ref] = out
		if encrypt {
			h.states.Store(ref, StateEncrypted)
		} else {
			h.states.Store(ref, StateDecrypted)
		}
	}
	return nil
}

// applyObject transforms all string values and the stream payload of
// obj, descending through arrays and dictionaries. The possibly
// replaced object is returned since strings are value types.
func (h *Handler) applyObject(obj raw.Object, key []byte, encrypt bool) (raw.Object, error) {
	switch t := obj.(type) {
	case raw.StringObj:
		out, err := h.apply(key, t.Bytes, encrypt)
		if err != nil {
			return nil, err
		}
		return raw.StringObj{Bytes: out, Hex: t.Hex}, nil
	case *raw.ArrayObj:
		for i, item := range t.Items {
			out, err := h.applyObject(item, key, encrypt)
			if err != nil {
				return nil, err
			}
			t.Items[i] = out
		}
	case *raw.DictObj:
		for k, v := range t.KV {
			out, err := h.applyObject(v, key, encrypt)
			if err != nil {
				return nil, err
			}
			t.KV[k] = out
		}
	case *raw.StreamObj:
		if _, err := h.applyObject(t.Dict, key, encrypt); err != nil {
			return nil, err
		}
		out, err := h.apply(key, t.Data, encrypt)
		if err != nil {
			return nil, err
		}
		t.SetData(out)
	}
	return obj, nil
}

func (h *Handler) apply(key, data []byte, encrypt bool) ([]byte, error) {
	switch h.cfg.Method {
	case MethodRC4:
		return applyRC4(key, data), nil
	case MethodAES:
		return applyAES(key, data)
	}
	return data, nil
}
