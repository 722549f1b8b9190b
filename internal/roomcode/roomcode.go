// Package roomcode generates short room codes that players can read off a
// screen and type on a phone.
package roomcode

import (
	"crypto/rand"
	"fmt"
)

// Alphabet deliberately omits characters that are easy to misread aloud
// (0/O, 1/I/L).
const alphabet = "23456789ABCDEFGHJKMNPQRSTUVWXYZ"

// Length of a generated code.
const Length = 6

// RandSource allows deterministic code generation in tests.
type RandSource interface {
	Intn(n int) int
}

// Generator produces room codes from a configurable randomness source.
type Generator struct {
	randSource RandSource
}

// NewGenerator creates a generator. A nil randSource uses crypto/rand.
func NewGenerator(randSource RandSource) *Generator {
	return &Generator{randSource: randSource}
}

// Generate returns a fresh code using crypto/rand.
func Generate() string {
	return NewGenerator(nil).Generate()
}

// Generate returns a fresh code. Uniqueness against live rooms is the
// registry's responsibility.
func (g *Generator) Generate() string {
	buf := make([]byte, Length)
	if g.randSource != nil {
		for i := range buf {
			buf[i] = alphabet[g.randSource.Intn(len(alphabet))]
		}
		return string(buf)
	}

	raw := make([]byte, Length)
	if _, err := rand.Read(raw); err != nil {
		panic("roomcode: failed to read random bytes: " + err.Error())
	}
	for i, b := range raw {
		buf[i] = alphabet[int(b)%len(alphabet)]
	}
	return string(buf)
}

// Validate checks that a code has the right length and alphabet.
func Validate(code string) error {
	if len(code) != Length {
		return fmt.Errorf("room code must be exactly %d characters, got %d", Length, len(code))
	}
	for i := 0; i < len(code); i++ {
		valid := false
		for j := 0; j < len(alphabet); j++ {
			if code[i] == alphabet[j] {
				valid = true
				break
			}
		}
		if !valid {
			return fmt.Errorf("invalid character %c at position %d", code[i], i)
		}
	}
	return nil
}
