package types

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
)

const redacted = "[redacted]"

// SecretString holds a bearer token or API key. It prints and marshals as a
// placeholder so it can be passed through loggers and config dumps safely.
type SecretString string

// String implements fmt.Stringer.
func (s SecretString) String() string {
	return redacted
}

// MarshalJSON implements json.Marshaler.
func (s SecretString) MarshalJSON() ([]byte, error) {
	return []byte(`"` + redacted + `"`), nil
}

// LogValue keeps slog handlers from reaching the raw value through reflection.
func (s SecretString) LogValue() slog.Value {
	return slog.StringValue(redacted)
}

// Unmask returns the raw value. Only outbound Authorization headers need it.
func (s SecretString) Unmask() string {
	return string(s)
}

// Fingerprint is the hex sha256 of the raw value. It identifies the holder of
// a token without keeping the token itself.
func (s SecretString) Fingerprint() string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}
