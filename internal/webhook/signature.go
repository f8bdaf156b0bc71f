package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// validSignature checks an X-Hub-Signature-256 header value
// ("sha256=<hex hmac of body>") against secret
func validSignature(secret, body []byte, header string) bool {
	algo, digest, ok := strings.Cut(header, "=")
	if !ok || algo != "sha256" {
		return false
	}

	got, err := hex.DecodeString(digest)
	if err != nil {
		return false
	}

	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	return hmac.Equal(got, mac.Sum(nil))
}
