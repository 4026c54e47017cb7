package security

import (
	"bytes"
	"errors"
	"testing"

	"pdfsan/ir/raw"
)

func testSeed() [SeedSize]byte {
	var s [SeedSize]byte
	for i := range s {
		s[i] = byte(i * 7)
	}
	return s
}

func testHandler(t *testing.T, method Method, bits int) *Handler {
	t.Helper()
	h, err := NewHandlerWithSeed(Config{Method: method, KeyLength: bits, Revision: 4}, testSeed())
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	return h
}

func TestValidateRejectsBadCombinations(t *testing.T) {
	cases := []Config{
		{Method: MethodAES, KeyLength: 64},
		{Method: MethodAES, KeyLength: 192},
		{Method: MethodRC4, KeyLength: 56},
		{Method: MethodRC4, KeyLength: 256},
		{Method: Method(99), KeyLength: 128},
	}
	for _, cfg := range cases {
		if err := cfg.Validate(); !errors.Is(err, ErrInvalidEncryptionConfig) {
			t.Errorf("Validate(%v/%d) = %v, want ErrInvalidEncryptionConfig", cfg.Method, cfg.KeyLength, err)
		}
	}
	ok := []Config{
		{Method: MethodRC4, KeyLength: 40},
		{Method: MethodRC4, KeyLength: 128},
		{Method: MethodAES, KeyLength: 128},
		{Method: MethodAES, KeyLength: 256},
		{Method: MethodIdentity, KeyLength: 0},
		{Method: MethodIdentity, KeyLength: 12345},
	}
	for _, cfg := range ok {
		if err := cfg.Validate(); err != nil {
			t.Errorf("Validate(%v/%d) = %v, want nil", cfg.Method, cfg.KeyLength, err)
		}
	}
}

func TestInvalidConfigTouchesNoObject(t *testing.T) {
	doc := raw.NewDocument()
	ref := raw.ObjectRef{Num: 2, Gen: 0}
	doc.Objects[ref] = raw.Str([]byte("untouched"))

	if _, err := NewHandler(Config{Method: MethodAES, KeyLength: 64}); !errors.Is(err, ErrInvalidEncryptionConfig) {
		t.Fatalf("NewHandler = %v, want ErrInvalidEncryptionConfig", err)
	}
	if got := doc.Objects[ref].(raw.StringObj).Bytes; string(got) != "untouched" {
		t.Fatalf("object mutated to %q", got)
	}
}

func TestKeyLengthErrorWrapped(t *testing.T) {
	err := Config{Method: MethodRC4, KeyLength: 64}.Validate()
	if !errors.Is(err, ErrInvalidKeyLength) {
		t.Fatalf("err = %v, want ErrInvalidKeyLength in chain", err)
	}
}

func TestObjectKeyDeterministic(t *testing.T) {
	h := testHandler(t, MethodAES, 256)
	ref := raw.ObjectRef{Num: 7, Gen: 0}

	k1 := h.objectKey(ref)
	k2 := h.objectKey(ref)
	if !bytes.Equal(k1, k2) {
		t.Fatal("repeated derivation differs")
	}
	if len(k1) != 32 {
		t.Fatalf("key length = %d, want 32", len(k1))
	}

	h2 := testHandler(t, MethodAES, 256)
	if !bytes.Equal(k1, h2.objectKey(ref)) {
		t.Fatal("same seed and ref produced different keys")
	}
}

func TestObjectKeyGenerationSensitive(t *testing.T) {
	h := testHandler(t, MethodAES, 128)
	k0 := h.objectKey(raw.ObjectRef{Num: 7, Gen: 0})
	k1 := h.objectKey(raw.ObjectRef{Num: 7, Gen: 1})
	if bytes.Equal(k0, k1) {
		t.Fatal("generation change did not change the derived key")
	}
}

func TestCipherRoundTrips(t *testing.T) {
	payloads := [][]byte{
		[]byte("short"),
		bytes.Repeat([]byte{0xAB}, 16),
		bytes.Repeat([]byte{0x01, 0x02}, 16),
		[]byte("twenty-one byte input"),
		{},
	}
	cases := []struct {
		method Method
		bits   int
	}{
		{MethodRC4, 40},
		{MethodRC4, 128},
		{MethodAES, 128},
		{MethodAES, 256},
	}
	for _, tc := range cases {
		h := testHandler(t, tc.method, tc.bits)
		key := h.objectKey(raw.ObjectRef{Num: 5, Gen: 0})
		for _, p := range payloads {
			enc, err := h.apply(key, p, true)
			if err != nil {
				t.Fatalf("%v/%d encrypt: %v", tc.method, tc.bits, err)
			}
			if len(enc) != len(p) {
				t.Fatalf("%v/%d: length changed %d -> %d", tc.method, tc.bits, len(p), len(enc))
			}
			if len(p) > 0 && bytes.Equal(enc, p) {
				t.Fatalf("%v/%d: ciphertext equals plaintext", tc.method, tc.bits)
			}
			dec, err := h.apply(key, enc, false)
			if err != nil {
				t.Fatalf("%v/%d decrypt: %v", tc.method, tc.bits, err)
			}
			if !bytes.Equal(dec, p) {
				t.Fatalf("%v/%d: round trip lost data: %q != %q", tc.method, tc.bits, dec, p)
			}
		}
	}
}

func cryptoDoc() *raw.Document {
	doc := raw.NewDocument()
	root := raw.Dict()
	root.Set(raw.NameLiteral("Type"), raw.NameLiteral("Catalog"))
	doc.Objects[raw.ObjectRef{Num: 1, Gen: 0}] = root
	doc.Objects[raw.ObjectRef{Num: 2, Gen: 0}] = raw.Str([]byte("secret string"))

	sd := raw.Dict()
	sd.Set(raw.NameLiteral("Length"), raw.NumberInt(9))
	doc.Objects[raw.ObjectRef{Num: 3, Gen: 0}] = raw.NewStream(sd, []byte("payloadAB"))

	doc.Objects[raw.ObjectRef{Num: 4, Gen: 0}] = raw.Dict()
	doc.Trailer.Root = raw.ObjectRef{Num: 1, Gen: 0}
	return doc
}

func TestEncryptDocumentRoundTrip(t *testing.T) {
	h := testHandler(t, MethodAES, 256)
	doc := cryptoDoc()

	if err := h.EncryptDocument(doc); err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	str := doc.Objects[raw.ObjectRef{Num: 2, Gen: 0}].(raw.StringObj)
	if string(str.Bytes) == "secret string" {
		t.Fatal("string left in plaintext")
	}
	stm := doc.Objects[raw.ObjectRef{Num: 3, Gen: 0}].(*raw.StreamObj)
	if string(stm.Data) == "payloadAB" {
		t.Fatal("stream left in plaintext")
	}
	if got := h.ObjectState(raw.ObjectRef{Num: 2, Gen: 0}); got != StateEncrypted {
		t.Fatalf("state = %v, want StateEncrypted", got)
	}

	if err := h.DecryptDocument(doc); err != nil {
		t.Fatalf("decrypt: %v", err)
	}
	str = doc.Objects[raw.ObjectRef{Num: 2, Gen: 0}].(raw.StringObj)
	if string(str.Bytes) != "secret string" {
		t.Fatalf("string round trip = %q", str.Bytes)
	}
	if string(stm.Data) != "payloadAB" {
		t.Fatalf("stream round trip = %q", stm.Data)
	}
	if got := h.ObjectState(raw.ObjectRef{Num: 2, Gen: 0}); got != StateDecrypted {
		t.Fatalf("state = %v, want StateDecrypted", got)
	}
}

func TestEncryptSkipsObjectOneAndEncryptDict(t *testing.T) {
	h := testHandler(t, MethodRC4, 128)
	doc := raw.NewDocument()

	one := raw.Dict()
	one.Set(raw.NameLiteral("Producer"), raw.Str([]byte("keep")))
	doc.Objects[raw.ObjectRef{Num: 1, Gen: 0}] = one

	enc := raw.Dict()
	enc.Set(raw.NameLiteral("Filter"), raw.NameLiteral("Standard"))
	enc.Set(raw.NameLiteral("O"), raw.Str([]byte("owner")))
	doc.Objects[raw.ObjectRef{Num: 5, Gen: 0}] = enc
	doc.Trailer.Encrypt = raw.Ref(5, 0)

	doc.Objects[raw.ObjectRef{Num: 2, Gen: 0}] = raw.Str([]byte("plain"))
	doc.Trailer.Root = raw.ObjectRef{Num: 1, Gen: 0}

	if err := h.EncryptDocument(doc); err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	if got := one.KV["Producer"].(raw.StringObj).Bytes; string(got) != "keep" {
		t.Fatalf("object 1 mutated: %q", got)
	}
	if got := enc.KV["O"].(raw.StringObj).Bytes; string(got) != "owner" {
		t.Fatalf("encrypt dictionary mutated: %q", got)
	}
	if got := doc.Objects[raw.ObjectRef{Num: 2, Gen: 0}].(raw.StringObj).Bytes; string(got) == "plain" {
		t.Fatal("ordinary object not encrypted")
	}
	if got := h.ObjectState(raw.ObjectRef{Num: 1, Gen: 0}); got != StateUnprocessed {
		t.Fatalf("object 1 state = %v, want StateUnprocessed", got)
	}
}

func TestIdentityIsNoop(t *testing.T) {
	h, err := NewHandler(Config{Method: MethodIdentity})
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	doc := cryptoDoc()
	if err := h.EncryptDocument(doc); err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	if got := doc.Objects[raw.ObjectRef{Num: 2, Gen: 0}].(raw.StringObj).Bytes; string(got) != "secret string" {
		t.Fatalf("identity mutated string: %q", got)
	}
}

func TestBuildEncryptDict(t *testing.T) {
	cases := []struct {
		method Method
		bits   int
		v, r   int64
		cfm    string
	}{
		{MethodRC4, 40, 1, 2, "V2"},
		{MethodRC4, 128, 2, 3, "V2"},
		{MethodAES, 128, 4, 4, "AESV2"},
		{MethodAES, 256, 5, 6, "AESV3"},
	}
	for _, tc := range cases {
		h := testHandler(t, tc.method, tc.bits)
		d := h.BuildEncryptDict().(*raw.DictObj)
		if got := raw.DictName(d, "Filter"); got != "Standard" {
			t.Errorf("%v/%d: Filter = %q", tc.method, tc.bits, got)
		}
		if got, _ := raw.DictInt(d, "V"); got != tc.v {
			t.Errorf("%v/%d: V = %d, want %d", tc.method, tc.bits, got, tc.v)
		}
		if got, _ := raw.DictInt(d, "R"); got != tc.r {
			t.Errorf("%v/%d: R = %d, want %d", tc.method, tc.bits, got, tc.r)
		}
		cf := d.KV["CF"].(*raw.DictObj)
		stdCF := cf.KV["StdCF"].(*raw.DictObj)
		if got := raw.DictName(stdCF, "CFM"); got != tc.cfm {
			t.Errorf("%v/%d: CFM = %q, want %q", tc.method, tc.bits, got, tc.cfm)
		}
		if got := raw.DictName(stdCF, "AuthEvent"); got != "DocOpen" {
			t.Errorf("%v/%d: AuthEvent = %q", tc.method, tc.bits, got)
		}
	}
}

func TestBuildEncryptDictIdentity(t *testing.T) {
	h, err := NewHandler(Config{Method: MethodIdentity})
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	d := h.BuildEncryptDict().(*raw.DictObj)
	if got := raw.DictName(d, "StmF"); got != "Identity" {
		t.Fatalf("StmF = %q, want Identity", got)
	}
	if _, ok := d.KV["CF"]; ok {
		t.Fatal("identity dictionary should not carry a CF entry")
	}
}
