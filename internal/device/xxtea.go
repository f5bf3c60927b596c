package device

import "encoding/binary"

// Fixed transport key used by the v2 cipher scheme. The key is public: it
// gates casual copying, not confidentiality.
var v2KeyBytes = [16]byte{
	0x91, 0xBD, 0x7A, 0x0A,
	0xA7, 0x54, 0x40, 0xA9,
	0xBB, 0xD4, 0x9D, 0x6C,
	0xE0, 0xDC, 0xC0, 0xE3,
}

const xxteaDelta uint32 = 0x9E3779B9

// encryptedBlockSize bounds how much of each resource is ciphered. The
// firmware only deciphers the leading block, so everything past it stays
// plain.
const encryptedBlockSize = 512

func v2Key() [4]uint32 {
	var key [4]uint32
	for i := range key {
		key[i] = binary.LittleEndian.Uint32(v2KeyBytes[i*4:])
	}
	return key
}

// bteaEncrypt runs the XXTEA block cipher over v in place. v must have at
// least two words.
func bteaEncrypt(v []uint32, key [4]uint32) {
	n := uint32(len(v))
	if n < 2 {
		return
	}
	rounds := 6 + 52/n
	var sum uint32
	z := v[n-1]
	for ; rounds > 0; rounds-- {
		sum += xxteaDelta
		e := (sum >> 2) & 3
		var p uint32
		var y uint32
		for p = 0; p < n-1; p++ {
			y = v[p+1]
			v[p] += mx(sum, y, z, p, e, key)
			z = v[p]
		}
		y = v[0]
		v[n-1] += mx(sum, y, z, p, e, key)
		z = v[n-1]
	}
}

// bteaDecrypt reverses bteaEncrypt.
func bteaDecrypt(v []uint32, key [4]uint32) {
	n := uint32(len(v))
	if n < 2 {
		return
	}
	rounds := 6 + 52/n
	sum := rounds * xxteaDelta
	y := v[0]
	for ; rounds > 0; rounds-- {
		e := (sum >> 2) & 3
		var p uint32
		var z uint32
		for p = n - 1; p > 0; p-- {
			z = v[p-1]
			v[p] -= mx(sum, y, z, p, e, key)
			y = v[p]
		}
		z = v[n-1]
		v[0] -= mx(sum, y, z, p, e, key)
		y = v[0]
		sum -= xxteaDelta
	}
}

func mx(sum, y, z, p, e uint32, key [4]uint32) uint32 {
	return ((z>>5 ^ y<<2) + (y>>3 ^ z<<4)) ^ ((sum ^ y) + (key[(p&3)^e] ^ z))
}

// cipherSpan returns how many leading bytes of a payload get ciphered: whole
// 32-bit words, at least two of them, capped at the leading block. Payloads
// shorter than the block are zero-padded up to the next word boundary, so
// the span can exceed the payload length.
func cipherSpan(size int) int {
	if size >= encryptedBlockSize {
		return encryptedBlockSize
	}
	span := (size + 3) &^ 3
	if span < 8 {
		return 0
	}
	return span
}

// EncryptResource returns a copy of payload with its leading block ciphered
// under the fixed v2 key. A payload shorter than the block grows to a word
// boundary; one too short to hold two words passes through unchanged.
func EncryptResource(payload []byte) []byte {
	return cipherResource(payload, bteaEncrypt)
}

// DecryptResource reverses EncryptResource. Pad bytes added by encryption
// stay in the output; the wire format does not record the unpadded length.
func DecryptResource(payload []byte) []byte {
	return cipherResource(payload, bteaDecrypt)
}

func cipherResource(payload []byte, apply func([]uint32, [4]uint32)) []byte {
	span := cipherSpan(len(payload))
	size := len(payload)
	if span > size {
		size = span
	}
	out := make([]byte, size)
	copy(out, payload)
	if span == 0 {
		return out
	}

	words := make([]uint32, span/4)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(out[i*4:])
	}
	apply(words, v2Key())
	for i, w := range words {
		binary.LittleEndian.PutUint32(out[i*4:], w)
	}
	return out
}
