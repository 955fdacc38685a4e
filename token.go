package accounts

import (
	"strings"

	"github.com/google/uuid"
)

// TokenGenerator produces opaque verification token strings. It is injected
// into the lifecycle handlers so tests can substitute a deterministic one.
type TokenGenerator func() string

// GenerateVerificationToken returns a unique opaque token. The token doubles
// as the credential presented on the public verify endpoint, so it carries
// no structure a caller could derive.
func GenerateVerificationToken() string {
	return strings.ReplaceAll(uuid.NewString()+uuid.NewString(), "-", "")
}
