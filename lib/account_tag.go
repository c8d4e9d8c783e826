package lib

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
)

// RandomTag generates a unique account tag for backends that have no server
// URL to derive one from.
func RandomTag(salt string) string {
	data := make([]byte, 30)
	_, _ = rand.Read(data)
	hasher := sha256.New()
	hasher.Write(data)
	hasher.Write([]byte(salt))
	return hex.EncodeToString(hasher.Sum(nil))
}
