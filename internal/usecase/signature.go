package usecase

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"

	domainErrors "github.com/francisco-dev-ao/loja356-25-sub001/internal/domain/errors"
)

// SignatureVerifier checks a webhook signature against the raw body
type SignatureVerifier interface {
	Verify(payload []byte, signature string) error
}

// HMACVerifier verifies hex-encoded HMAC-SHA256 signatures, with or without
// a "sha256=" prefix.
type HMACVerifier struct {
	secret []byte
}

// NewHMACVerifier creates a verifier for a shared secret
func NewHMACVerifier(secret string) *HMACVerifier {
	return &HMACVerifier{secret: []byte(secret)}
}

// Sign returns the hex signature of payload
func (v *HMACVerifier) Sign(payload []byte) string {
	mac := hmac.New(sha256.New, v.secret)
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

func (v *HMACVerifier) Verify(payload []byte, signature string) error {
	signature = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(signature), "sha256="))
	if signature == "" {
		return &domainErrors.SignatureError{Reason: "missing signature"}
	}
	given, err := hex.DecodeString(signature)
	if err != nil {
		return &domainErrors.SignatureError{Reason: "signature is not hex"}
	}
	expected, _ := hex.DecodeString(v.Sign(payload))
	if !hmac.Equal(given, expected) {
		return &domainErrors.SignatureError{Reason: "signature mismatch"}
	}
	return nil
}
