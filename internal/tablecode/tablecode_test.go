package tablecode

import (
	"strings"
	"testing"

	"github.com/lox/blackjack/internal/randutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate(t *testing.T) {
	t.Parallel()

	gen := NewGenerator(nil)
	for range 200 {
		code := gen.Generate()
		require.Len(t, code, Length)
		require.NoError(t, Validate(code))
		for _, c := range code {
			require.True(t, strings.ContainsRune(Alphabet, c), "unexpected %q in %s", c, code)
		}
	}
}

func TestGenerateWithRandSourceIsDeterministic(t *testing.T) {
	t.Parallel()

	a := NewGenerator(randutil.NewLocked(randutil.New(11)))
	b := NewGenerator(randutil.NewLocked(randutil.New(11)))
	for range 10 {
		assert.Equal(t, a.Generate(), b.Generate())
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		code    string
		wantErr bool
	}{
		{"generated style", "K7PQ2M", false},
		{"full alphanumeric range", "ABC123", false},
		{"too short", "ABC12", true},
		{"too long", "ABC1234", true},
		{"lower case", "abc123", true},
		{"punctuation", "ABC-12", true},
		{"empty", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.code)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNormalize(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "ABC123", Normalize("  abc123 \n"))
}
