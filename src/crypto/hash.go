package crypto

import (
	"crypto/sha256"

	"golang.org/x/crypto/sha3"
)

// SHA256 returns the SHA256 hash of the data.
func SHA256(data []byte) []byte {
	hasher := sha256.New()
	hasher.Write(data)
	hash := hasher.Sum(nil)
	return hash
}

// Shake256 returns the SHAKE256 hash of the data, with a 64 byte output. It is
// the digest function used for signature chains in the authenticated
// agreement scenario.
func Shake256(data []byte) []byte {
	hash := make([]byte, 64)
	sha3.ShakeSum256(hash, data)
	return hash
}
