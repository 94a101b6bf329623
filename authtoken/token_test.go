package authtoken

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	"cozzyhub/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var tokenPattern = regexp.MustCompile(`^[A-Za-z0-9]{16}$`)

// scriptedLookup answers probes from a fixed script, then "not found".
type scriptedLookup struct {
	answers []error
	probed  []string
}

func (l *scriptedLookup) LookupAuthToken(_ context.Context, token string) error {
	l.probed = append(l.probed, token)
	i := len(l.probed) - 1
	if i < len(l.answers) {
		return l.answers[i]
	}
	return repository.ErrNotFound
}

func repeat(err error, n int) []error {
	out := make([]error, n)
	for i := range out {
		out[i] = err
	}
	return out
}

func TestGenerate_Format(t *testing.T) {
	for i := 0; i < 500; i++ {
		tok := Generate()
		require.Len(t, tok, Length)
		require.Regexp(t, tokenPattern, tok)
	}
}

func TestGenerate_NonDeterministic(t *testing.T) {
	assert.NotEqual(t, Generate(), Generate())
}

func TestIsValidFormat(t *testing.T) {
	valid := []string{
		"ABCDEFGHIJKLMNOP",
		"abcdefghijklmnop",
		"0123456789abcdef",
		"aB3dE5gH7jK9mN1p",
	}
	for _, v := range valid {
		assert.True(t, IsValidFormat(v), v)
	}

	invalid := []string{
		"",
		"ABCDEFGHIJKLMNO",
		"ABCDEFGHIJKLMNOPQ",
		"ABCDEFGHIJKLMNO!",
		"ABCDEFGHIJKLMNO@",
		"ABCDEFGHIJKLMNO#",
		"ABCDEFGHIJKLMNO-",
		"ABCDEFGHIJKLMNO_",
		"ABCDEFGHIJKLMNO ",
		"ABCDEFGHIJKLMNé",
		"ABCDEFGHIJKLMNOP1700000000000",
	}
	for _, v := range invalid {
		assert.False(t, IsValidFormat(v), v)
	}
}

func TestIsRedeemable(t *testing.T) {
	assert.True(t, IsRedeemable("aB3dE5gH7jK9mN1p"))
	assert.True(t, IsRedeemable("aB3dE5gH7jK9mN1p1700000000000"))

	assert.False(t, IsRedeemable("aB3dE5gH7jK9mN1pXYZ"))
	assert.False(t, IsRedeemable("aB3dE5gH7jK9mN!p1700000000000"))
	assert.False(t, IsRedeemable("short"))
	assert.False(t, IsRedeemable("aB3dE5gH7jK9mN1p"+strings.Repeat("1", 21)))
}

func TestGenerateUnique_FirstProbeFree(t *testing.T) {
	lookup := &scriptedLookup{}
	g := NewGenerator(lookup)

	tok := g.GenerateUnique(context.Background())

	require.Len(t, lookup.probed, 1)
	assert.Equal(t, lookup.probed[0], tok)
	assert.Regexp(t, tokenPattern, tok)
}

func TestGenerateUnique_RetriesUntilFree(t *testing.T) {
	for _, n := range []int{1, 4, 9} {
		lookup := &scriptedLookup{answers: repeat(nil, n)}
		g := NewGenerator(lookup)

		tok := g.GenerateUnique(context.Background())

		require.Len(t, lookup.probed, n+1, "n=%d", n)
		assert.Equal(t, lookup.probed[n], tok)
	}
}

func TestGenerateUnique_StoreErrorsAreRetried(t *testing.T) {
	lookup := &scriptedLookup{answers: []error{errors.New("connection reset"), nil}}
	g := NewGenerator(lookup)

	tok := g.GenerateUnique(context.Background())

	require.Len(t, lookup.probed, 3)
	assert.Equal(t, lookup.probed[2], tok)
}

func TestGenerateUnique_FallbackAfterExhaustion(t *testing.T) {
	for name, answer := range map[string]error{
		"exists":      nil,
		"store error": errors.New("timeout"),
	} {
		t.Run(name, func(t *testing.T) {
			lookup := &scriptedLookup{answers: repeat(answer, MaxAttempts)}
			g := NewGenerator(lookup)
			g.now = func() time.Time { return time.UnixMilli(1700000000123) }

			tok := g.GenerateUnique(context.Background())

			require.Len(t, lookup.probed, MaxAttempts)
			assert.Greater(t, len(tok), Length)
			assert.Regexp(t, tokenPattern, tok[:Length])
			assert.Equal(t, lookup.probed[MaxAttempts-1]+"1700000000123", tok)
			assert.False(t, IsValidFormat(tok))
			assert.True(t, IsRedeemable(tok))
		})
	}
}
