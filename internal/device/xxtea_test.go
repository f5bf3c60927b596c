package device

import (
	"bytes"
	"testing"
)

func patternPayload(n int) []byte {
	payload := make([]byte, n)
	for i := range payload {
		payload[i] = byte(i * 7)
	}
	return payload
}

func TestEncryptResourceInvolution(t *testing.T) {
	for _, size := range []int{8, 12, 100, 508, 512, 513, 4096} {
		payload := patternPayload(size)
		round := DecryptResource(EncryptResource(payload))
		if !bytes.Equal(round, payload) {
			t.Fatalf("size %d: decrypt(encrypt(x)) != x", size)
		}
	}
}

func TestEncryptResourceChangesLeadingBlock(t *testing.T) {
	payload := patternPayload(4096)
	enc := EncryptResource(payload)

	if bytes.Equal(enc[:encryptedBlockSize], payload[:encryptedBlockSize]) {
		t.Fatal("leading block unchanged")
	}
	if !bytes.Equal(enc[encryptedBlockSize:], payload[encryptedBlockSize:]) {
		t.Fatal("bytes past the leading block must stay plain")
	}
}

func TestEncryptResourcePadsShortPayloads(t *testing.T) {
	// 100 bytes: already word-aligned, length unchanged.
	payload := patternPayload(100)
	enc := EncryptResource(payload)
	if len(enc) != 100 {
		t.Fatalf("aligned payload grew to %d", len(enc))
	}
	if bytes.Equal(enc, payload) {
		t.Fatal("payload unchanged")
	}

	// 102 bytes: padded to the word boundary and ciphered in full.
	payload = patternPayload(102)
	enc = EncryptResource(payload)
	if len(enc) != 104 {
		t.Fatalf("unaligned payload length = %d, want 104", len(enc))
	}
	dec := DecryptResource(enc)
	if !bytes.Equal(dec[:102], payload) {
		t.Fatal("padded payload does not decipher back")
	}
	if dec[102] != 0 || dec[103] != 0 {
		t.Fatal("pad bytes must decipher to zero")
	}

	// Past the leading block no padding happens: the tail stays plain.
	payload = patternPayload(515)
	enc = EncryptResource(payload)
	if len(enc) != 515 {
		t.Fatalf("long payload length = %d", len(enc))
	}
	if !bytes.Equal(enc[encryptedBlockSize:], payload[encryptedBlockSize:]) {
		t.Fatal("bytes past the leading block must stay plain")
	}
}

func TestEncryptResourceShortPayloadPassthrough(t *testing.T) {
	for _, size := range []int{0, 1, 4} {
		payload := patternPayload(size)
		enc := EncryptResource(payload)
		if !bytes.Equal(enc, payload) {
			t.Fatalf("size %d: too short to cipher, must pass through", size)
		}
	}
}

func TestEncryptResourceDoesNotMutateInput(t *testing.T) {
	payload := patternPayload(64)
	original := append([]byte(nil), payload...)
	_ = EncryptResource(payload)
	if !bytes.Equal(payload, original) {
		t.Fatal("input mutated")
	}
}

func TestEncryptResourceDeterministic(t *testing.T) {
	payload := patternPayload(600)
	if !bytes.Equal(EncryptResource(payload), EncryptResource(payload)) {
		t.Fatal("cipher output must be deterministic")
	}
}

func TestCipherSpan(t *testing.T) {
	cases := []struct{ in, want int }{
		{0, 0},
		{4, 0},
		{5, 8},
		{7, 8},
		{8, 8},
		{10, 12},
		{100, 100},
		{102, 104},
		{511, 512},
		{512, 512},
		{513, 512},
		{10000, 512},
	}
	for _, tc := range cases {
		if got := cipherSpan(tc.in); got != tc.want {
			t.Errorf("cipherSpan(%d) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestBteaRejectsSingleWord(t *testing.T) {
	v := []uint32{0xDEADBEEF}
	bteaEncrypt(v, v2Key())
	if v[0] != 0xDEADBEEF {
		t.Fatal("single word must pass through")
	}
}
