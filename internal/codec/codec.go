// Package codec transcodes Gmail body payloads between the URL-safe
// base64 alphabet used on the wire and UTF-8 text.
package codec

import (
	"encoding/base64"
	"regexp"
	"strings"
)

var whitespaceRuns = regexp.MustCompile(`\s+`)

// DecodeBytes decodes a base64url payload into raw bytes. Payloads may
// arrive with or without padding, and occasionally in the standard
// alphabet already, so the input is normalized before decoding.
func DecodeBytes(payload string) ([]byte, error) {
	normalized := strings.ReplaceAll(payload, "-", "+")
	normalized = strings.ReplaceAll(normalized, "_", "/")
	normalized = strings.TrimRight(normalized, "=")
	return base64.RawStdEncoding.DecodeString(normalized)
}

// DecodeText decodes a base64url body payload into text with every run
// of whitespace collapsed to a single space. Mail clients soft-wrap
// HTML bodies at arbitrary columns; collapsing keeps reconstructed
// bodies comparable. Empty or undecodable input yields "".
func DecodeText(payload string) string {
	if payload == "" {
		return ""
	}
	raw, err := DecodeBytes(payload)
	if err != nil {
		return ""
	}
	return whitespaceRuns.ReplaceAllString(string(raw), " ")
}

// EncodeText is the inverse of DecodeText: collapse whitespace runs,
// base64-encode, then swap into the URL-safe alphabet.
func EncodeText(text string) string {
	if text == "" {
		return ""
	}
	collapsed := whitespaceRuns.ReplaceAllString(text, " ")
	encoded := base64.StdEncoding.EncodeToString([]byte(collapsed))
	encoded = strings.ReplaceAll(encoded, "+", "-")
	return strings.ReplaceAll(encoded, "/", "_")
}
