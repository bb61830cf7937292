// Package signature implements the provider's X-Verify scheme: a SHA-256
// digest over the exact raw payload bytes concatenated with a per-merchant
// salt, hex encoded, suffixed with "###<saltIndex>".
package signature

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strings"
)

const separator = "###"

// Salt is one merchant's signing material.
type Salt struct {
	Key   string
	Index string
}

// Sign computes the X-Verify header value for a raw payload.
func Sign(rawPayload []byte, salt Salt) string {
	sum := sha256.Sum256(append(append([]byte{}, rawPayload...), []byte(salt.Key)...))
	return hex.EncodeToString(sum[:]) + separator + salt.Index
}

// Verify checks an X-Verify header against the raw payload bytes and the
// merchant's salt. It is pure, constant-time on the digest comparison, and
// returns false (never an error) for malformed headers, wrong salt indexes,
// or digest mismatches.
func Verify(rawPayload []byte, header string, salt Salt) bool {
	digest, index, ok := splitHeader(header)
	if !ok {
		return false
	}
	if index != salt.Index {
		return false
	}
	sum := sha256.Sum256(append(append([]byte{}, rawPayload...), []byte(salt.Key)...))
	expected := hex.EncodeToString(sum[:])
	return subtle.ConstantTimeCompare([]byte(expected), []byte(digest)) == 1
}

// splitHeader parses "<hex digest>###<salt index>". Anything else is
// malformed: missing separator, empty parts, non-hex or wrong-length digest.
func splitHeader(header string) (digest, index string, ok bool) {
	i := strings.Index(header, separator)
	if i <= 0 {
		return "", "", false
	}
	digest = header[:i]
	index = header[i+len(separator):]
	if index == "" || len(digest) != hex.EncodedLen(sha256.Size) {
		return "", "", false
	}
	if _, err := hex.DecodeString(digest); err != nil {
		return "", "", false
	}
	return strings.ToLower(digest), index, true
}
