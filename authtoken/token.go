// Package authtoken issues and validates the opaque account authorization
// tokens that are emailed to new registrants.
package authtoken

import (
	"context"
	"crypto/rand"
	"errors"
	"strconv"
	"time"

	"cozzyhub/repository"

	"github.com/rs/zerolog/log"
)

const (
	// Length of every freshly generated token.
	Length = 16
	// MaxAttempts bounds the uniqueness probes before falling back to a
	// timestamp-suffixed token.
	MaxAttempts = 10

	charset = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	// Largest multiple of len(charset) that fits in a byte; bytes at or above
	// it are rejected to keep the draw uniform.
	maxUnbiased = 256 - 256%len(charset)
)

// Generate draws Length independent uniform symbols from [A-Za-z0-9].
func Generate() string {
	out := make([]byte, 0, Length)
	buf := make([]byte, Length*2)
	for len(out) < Length {
		if _, err := rand.Read(buf); err != nil {
			panic("authtoken: crypto/rand failed: " + err.Error())
		}
		for _, b := range buf {
			if int(b) >= maxUnbiased {
				continue
			}
			out = append(out, charset[int(b)%len(charset)])
			if len(out) == Length {
				break
			}
		}
	}
	return string(out)
}

// IsValidFormat is true iff candidate is exactly 16 characters from [A-Za-z0-9].
func IsValidFormat(candidate string) bool {
	if len(candidate) != Length {
		return false
	}
	for i := 0; i < len(candidate); i++ {
		if !isAlnum(candidate[i]) {
			return false
		}
	}
	return true
}

// IsRedeemable accepts the standard form plus the fallback form produced by
// GenerateUnique after exhausting its probes: 16 alphanumerics followed by a
// decimal millisecond timestamp.
func IsRedeemable(candidate string) bool {
	if IsValidFormat(candidate) {
		return true
	}
	if len(candidate) <= Length || len(candidate) > Length+20 {
		return false
	}
	if !IsValidFormat(candidate[:Length]) {
		return false
	}
	for i := Length; i < len(candidate); i++ {
		if candidate[i] < '0' || candidate[i] > '9' {
			return false
		}
	}
	return true
}

func isAlnum(c byte) bool {
	return (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9')
}

// Lookup probes the account store's token column. It returns nil when a row
// holds the token and repository.ErrNotFound when the token is free.
type Lookup interface {
	LookupAuthToken(ctx context.Context, token string) error
}

// Generator produces tokens that are unique against a Lookup.
type Generator struct {
	lookup      Lookup
	maxAttempts int
	next        func() string
	now         func() time.Time
}

func NewGenerator(lookup Lookup) *Generator {
	return &Generator{
		lookup:      lookup,
		maxAttempts: MaxAttempts,
		next:        Generate,
		now:         time.Now,
	}
}

// GenerateUnique probes up to MaxAttempts candidates. Only a not-found probe
// counts as success; a found row or any other store error means try again.
// When every probe fails the last candidate is returned with the current
// Unix millisecond time appended, without a further check.
func (g *Generator) GenerateUnique(ctx context.Context) string {
	var token string
	for attempt := 1; attempt <= g.maxAttempts; attempt++ {
		token = g.next()
		err := g.lookup.LookupAuthToken(ctx, token)
		if errors.Is(err, repository.ErrNotFound) {
			return token
		}
		if err != nil {
			log.Warn().Err(err).Int("attempt", attempt).Msg("[AUTH] token uniqueness probe failed, retrying")
		}
	}

	log.Warn().Int("attempts", g.maxAttempts).Msg("[AUTH] token probes exhausted, using timestamp suffix")
	return token + strconv.FormatInt(g.now().UnixMilli(), 10)
}
