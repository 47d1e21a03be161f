package schema

import "crypto/sha256"

// fingerprintEmpty is the CRC-64-AVRO seed and the fingerprint of no input.
const fingerprintEmpty uint64 = 0xc15d213aa4d7a795

var fingerprintTable = func() [256]uint64 {
	var t [256]uint64
	for i := range t {
		fp := uint64(i)
		for j := 0; j < 8; j++ {
			fp = (fp >> 1) ^ (fingerprintEmpty & -(fp & 1))
		}
		t[i] = fp
	}
	return t
}()

// Fingerprint64 returns the CRC-64-AVRO (Rabin) fingerprint of the
// canonical form of s.
func Fingerprint64(s Schema) uint64 {
	return rabin([]byte(Canonical(s)))
}

// FingerprintSHA256 returns the SHA-256 digest of the canonical form of s.
func FingerprintSHA256(s Schema) [32]byte {
	return sha256.Sum256([]byte(Canonical(s)))
}

func rabin(data []byte) uint64 {
	fp := fingerprintEmpty
	for _, b := range data {
		fp = (fp >> 8) ^ fingerprintTable[byte(fp)^b]
	}
	return fp
}
