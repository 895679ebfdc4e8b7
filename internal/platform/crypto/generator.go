// File: internal/platform/crypto/generator.go
package crypto

import (
	"fmt"

	nanoid "github.com/jaevor/go-nanoid"
)

// CodeAlphabet leaves out characters that are easy to misread when a code is
// typed by hand (0/O, 1/l/I).
const CodeAlphabet = "23456789ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz"

// CodeGenerator returns short random codes.
type CodeGenerator func() string

// NewCodeGenerator builds a generator of codes of the given length over
// CodeAlphabet.
func NewCodeGenerator(length int) (CodeGenerator, error) {
	gen, err := nanoid.CustomASCII(CodeAlphabet, length)
	if err != nil {
		return nil, fmt.Errorf("failed to create code generator: %w", err)
	}
	return gen, nil
}

// ProvideInviteCodeGenerator is the generator used for group invite codes.
func ProvideInviteCodeGenerator() (CodeGenerator, error) {
	return NewCodeGenerator(10)
}
