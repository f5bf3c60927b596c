package device

import (
	"bytes"
	"testing"
)

func TestAESCBCRoundTrip(t *testing.T) {
	key := bytes.Repeat([]byte{0x42}, 16)
	iv := bytes.Repeat([]byte{0x24}, 16)

	for _, size := range []int{0, 1, 15, 16, 17, 300} {
		plain := patternPayload(size)
		enc, err := EncryptAESCBC(key, iv, plain)
		if err != nil {
			t.Fatalf("size %d: %v", size, err)
		}
		if len(enc)%16 != 0 {
			t.Fatalf("size %d: ciphertext length %d not block aligned", size, len(enc))
		}
		dec, err := DecryptAESCBC(key, iv, enc)
		if err != nil {
			t.Fatalf("size %d: %v", size, err)
		}
		if !bytes.Equal(dec, plain) {
			t.Fatalf("size %d: round trip mismatch", size)
		}
	}
}

func TestAESCBCRejectsBadKey(t *testing.T) {
	if _, err := EncryptAESCBC([]byte("short"), bytes.Repeat([]byte{0}, 16), []byte("x")); err == nil {
		t.Fatal("expected key size error")
	}
}

func TestAESCBCRejectsBadIV(t *testing.T) {
	key := bytes.Repeat([]byte{1}, 16)
	if _, err := EncryptAESCBC(key, []byte("short"), []byte("x")); err == nil {
		t.Fatal("expected iv size error")
	}
}

func TestAESCBCRejectsCorruptPadding(t *testing.T) {
	key := bytes.Repeat([]byte{0x42}, 16)
	iv := bytes.Repeat([]byte{0x24}, 16)
	enc, err := EncryptAESCBC(key, iv, []byte("payload"))
	if err != nil {
		t.Fatal(err)
	}
	enc[len(enc)-1] ^= 0xFF
	if _, err := DecryptAESCBC(key, iv, enc); err == nil {
		t.Fatal("expected padding error")
	}
}

func TestAESCBCRejectsUnalignedCiphertext(t *testing.T) {
	key := bytes.Repeat([]byte{0x42}, 16)
	iv := bytes.Repeat([]byte{0x24}, 16)
	if _, err := DecryptAESCBC(key, iv, []byte("not a block")); err == nil {
		t.Fatal("expected alignment error")
	}
}
