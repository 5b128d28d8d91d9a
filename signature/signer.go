// Package signature provides HMAC-SHA256 webhook signing.
package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
)

// Sign generates the HMAC-SHA256 signature over the exact payload bytes,
// encoded as standard padded base64.
func Sign(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}
