package secret

import (
	"fmt"

	"go.uber.org/zap/zapcore"
)

const redacted = "[REDACTED]"

// Secret holds a wallet secret. It never renders its contents through fmt,
// zap or JSON, so it can be passed around freely without leaking into logs
// or error messages.
type Secret struct {
	b []byte
}

// New copies b into a new Secret.
func New(b []byte) Secret {
	return Secret{b: append([]byte{}, b...)}
}

// FromString returns a Secret holding the bytes of s.
func FromString(s string) Secret {
	return Secret{b: []byte(s)}
}

// Bytes returns the raw secret. Callers must not retain or log the slice.
func (s Secret) Bytes() []byte {
	return s.b
}

// IsEmpty reports whether the secret carries no bytes.
func (s Secret) IsEmpty() bool {
	return len(s.b) == 0
}

// Clone returns an independent copy.
func (s Secret) Clone() Secret {
	return New(s.b)
}

// Wipe zeroes the underlying bytes.
func (s *Secret) Wipe() {
	clear(s.b)
	s.b = nil
}

func (s Secret) String() string {
	return redacted
}

func (s Secret) GoString() string {
	return redacted
}

// Format covers every verb, including %x and %v with flags.
func (s Secret) Format(f fmt.State, _ rune) {
	_, _ = f.Write([]byte(redacted))
}

func (s Secret) MarshalText() ([]byte, error) {
	return []byte(redacted), nil
}

func (s Secret) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddString("value", redacted)
	enc.AddInt("length", len(s.b))
	return nil
}
