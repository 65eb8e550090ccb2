package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
)

// verifySignature checks the provider's HMAC-SHA256 over the raw request
// body. The comparison is constant time.
func verifySignature(secret string, body []byte, signature string) bool {
	if signature == "" {
		return false
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(expected), []byte(signature))
}
