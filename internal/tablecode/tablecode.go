// Package tablecode generates the short codes players use to find a table.
package tablecode

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
)

// Length is the number of characters in a table code.
const Length = 6

// Alphabet is used for generated codes. It leaves out I, L, O, 0 and 1, which
// are easy to misread when a code is read aloud or copied by hand.
const Alphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

// RandSource is the randomness a Generator draws from.
type RandSource interface {
	IntN(n int) int
}

// Generator produces table codes.
type Generator struct {
	randSource RandSource
}

// NewGenerator creates a generator. A nil source uses crypto/rand.
func NewGenerator(randSource RandSource) *Generator {
	return &Generator{randSource: randSource}
}

// Generate returns a new random code. Uniqueness among live tables is the
// caller's concern.
func (g *Generator) Generate() string {
	var b strings.Builder
	b.Grow(Length)
	for range Length {
		b.WriteByte(Alphabet[g.intN(len(Alphabet))])
	}
	return b.String()
}

func (g *Generator) intN(n int) int {
	if g.randSource != nil {
		return g.randSource.IntN(n)
	}
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		panic("failed to generate random table code: " + err.Error())
	}
	return int(v.Int64())
}

// Normalize trims and upper-cases a code typed by a player.
func Normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Validate checks that code is six uppercase letters or digits. Codes are
// accepted over the full [A-Z0-9] range even though Generate avoids some
// glyphs.
func Validate(code string) error {
	if len(code) != Length {
		return fmt.Errorf("table code must be exactly %d characters, got %d", Length, len(code))
	}
	for i := 0; i < len(code); i++ {
		c := code[i]
		if (c < 'A' || c > 'Z') && (c < '0' || c > '9') {
			return fmt.Errorf("invalid character %q at position %d", c, i)
		}
	}
	return nil
}
