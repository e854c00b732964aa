// Package uuid issues the time-ordered identifiers stored on every row and
// converts them to and from the short tokens used in public URLs.
package uuid

import (
	"encoding/base64"
	"fmt"

	googleuuid "github.com/google/uuid"
)

// tokenLen is the length of an unpadded base64url encoding of 16 bytes.
const tokenLen = 22

// New returns a UUIDv7 string. Version 7 ids lead with a millisecond
// timestamp, so rows created later also sort later in the uuid index.
// A random v4 id is returned if the v7 generator fails.
func New() string {
	id, err := googleuuid.NewV7()
	if err != nil {
		return googleuuid.NewString()
	}
	return id.String()
}

// Parse returns s in canonical lowercase hyphenated form.
func Parse(s string) (string, error) {
	parsed, err := googleuuid.Parse(s)
	if err != nil {
		return "", err
	}
	return parsed.String(), nil
}

// IsValid reports whether s parses as a UUID.
func IsValid(s string) bool {
	return googleuuid.Validate(s) == nil
}

// Encode converts a canonical UUID string into the 22-character unpadded
// URL-safe base64 token exposed in public URLs.
func Encode(s string) (string, error) {
	parsed, err := googleuuid.Parse(s)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(parsed[:]), nil
}

// Token is Encode for values read back from the database, which are
// always valid UUIDs. An invalid value yields an empty token.
func Token(s string) string {
	token, err := Encode(s)
	if err != nil {
		return ""
	}
	return token
}

// Decode converts a public token back into the canonical UUID string.
// Padded tokens are accepted too.
func Decode(token string) (string, error) {
	if len(token) == tokenLen+2 && token[tokenLen:] == "==" {
		token = token[:tokenLen]
	}
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return "", fmt.Errorf("invalid token encoding: %w", err)
	}
	parsed, err := googleuuid.FromBytes(raw)
	if err != nil {
		return "", fmt.Errorf("invalid token length: %w", err)
	}
	return parsed.String(), nil
}
