// Package canonical produces the deterministic serialized form of a
// credential and its content digest. Two logically identical payloads must
// serialize to byte-identical output: every stored digest depends on it, so
// any change here breaks round-trip verification for every existing record.
package canonical

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	dErrors "certledger/pkg/domain-errors"
)

// HashFields is the fixed set of credential fields included in the digest.
// Serialization orders keys lexicographically, so the order here is
// documentation only.
var HashFields = []string{
	"student_name",
	"student_email",
	"institution",
	"degree",
	"graduation_year",
	"cgpa",
	"reg_number",
	"honours",
	"state_of_origin",
}

// Canonicalize reduces an arbitrary payload to its canonical mapping:
// only recognized fields, strings trimmed, empty and nil values dropped,
// numeric values kept with their numeric type.
func Canonicalize(payload map[string]any) map[string]any {
	out := make(map[string]any, len(HashFields))
	for _, field := range HashFields {
		value, ok := payload[field]
		if !ok || value == nil {
			continue
		}
		if s, isString := value.(string); isString {
			trimmed := strings.TrimSpace(s)
			if trimmed == "" {
				continue
			}
			out[field] = trimmed
			continue
		}
		out[field] = value
	}
	return out
}

// Serialize renders the canonical mapping as compact JSON: keys in sorted
// order, no inserted whitespace, UTF-8 with no HTML escaping.
func Serialize(canonical map[string]any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(canonical); err != nil {
		return nil, fmt.Errorf("serialize canonical payload: %w", err)
	}
	// Encoder appends a newline that is not part of the canonical form.
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// Digest computes the SHA-256 digest of the canonical serialization of the
// payload, rendered as 64 lowercase hex characters.
func Digest(payload map[string]any) (string, error) {
	serialized, err := Serialize(Canonicalize(payload))
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(serialized)
	return hex.EncodeToString(sum[:]), nil
}

// NormalizeDigest accepts a caller-supplied digest with an optional 0x prefix
// and mixed case, and returns the canonical 64-char lowercase hex form.
func NormalizeDigest(s string) (string, error) {
	normalized := strings.ToLower(strings.TrimSpace(s))
	normalized = strings.TrimPrefix(normalized, "0x")
	if len(normalized) != 64 {
		return "", dErrors.New(dErrors.CodeValidation, "digest must be 64 hex characters")
	}
	if _, err := hex.DecodeString(normalized); err != nil {
		return "", dErrors.New(dErrors.CodeValidation, "digest must be a valid hex string")
	}
	return normalized, nil
}
