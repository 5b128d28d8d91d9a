package signature

import (
	"crypto/rand"
	"encoding/base64"
)

// GenerateSecret creates a cryptographically random signing secret:
// 32 random bytes, base64 encoded (44 characters).
func GenerateSecret() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		panic("interceder: failed to generate random secret: " + err.Error())
	}
	return base64.StdEncoding.EncodeToString(b)
}
