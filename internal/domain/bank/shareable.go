package bank

import (
	"encoding/base64"
	"unicode/utf8"
)

var shareableEncoding = base64.RawURLEncoding.Strict()

// EncodeShareableID obfuscates an account ID for use in shared URLs.
// It is a reversible encoding, not a security boundary.
func EncodeShareableID(accountID string) string {
	return shareableEncoding.EncodeToString([]byte(accountID))
}

// DecodeShareableID recovers the account ID behind a shareable ID.
func DecodeShareableID(shareableID string) (string, error) {
	if shareableID == "" {
		return "", ErrInvalidShareableID
	}
	raw, err := shareableEncoding.DecodeString(shareableID)
	if err != nil || len(raw) == 0 || !utf8.Valid(raw) {
		return "", ErrInvalidShareableID
	}
	return string(raw), nil
}
