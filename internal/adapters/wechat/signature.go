package wechat

import (
	"crypto/sha1"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"autoreply-project/internal/domain"
)

// Signature computes the platform request signature: the hex SHA-1 of
// token, timestamp and nonce sorted and concatenated.
func Signature(token, timestamp, nonce string) string {
	parts := []string{token, timestamp, nonce}
	sort.Strings(parts)
	sum := sha1.Sum([]byte(strings.Join(parts, "")))
	return hex.EncodeToString(sum[:])
}

// VerifySignature checks signature against token. It returns an error
// wrapping domain.ErrInvalidSignature on mismatch.
func VerifySignature(token, signature, timestamp, nonce string) error {
	if signature == "" || timestamp == "" || nonce == "" {
		return fmt.Errorf("%w: missing signature parameters", domain.ErrInvalidSignature)
	}
	want := Signature(token, timestamp, nonce)
	if subtle.ConstantTimeCompare([]byte(want), []byte(strings.ToLower(signature))) != 1 {
		return domain.ErrInvalidSignature
	}
	return nil
}
