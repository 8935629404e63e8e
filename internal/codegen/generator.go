// Package codegen produces human-enterable reservation and voucher codes and
// the signed payload embedded in a voucher's QR code.
package codegen

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog/log"
)

// Alphabet holds 32 upper-case characters without the look-alikes 0/O and 1/I/L.
// Its size divides 256, so masking a random byte gives an unbiased pick.
const Alphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// MinLength keeps the code space above 32^7 (about 3.4e10) combinations.
const MinLength = 7

var (
	// ErrCodeSpaceExhausted is returned when every attempt produced a code that is already taken.
	ErrCodeSpaceExhausted = errors.New("unique code generation exhausted attempts")
	// ErrInvalidLength is returned for code lengths below MinLength.
	ErrInvalidLength = errors.New("code length below minimum")
)

// ExistsFunc reports whether code is already in use.
type ExistsFunc func(ctx context.Context, code string) (bool, error)

// Options configures a Generator. Zero values fall back to defaults.
type Options struct {
	ReservationLength int
	VoucherLength     int
	MaxAttempts       int
	Random            io.Reader
}

// Generator draws random codes and retries them against a uniqueness check.
type Generator struct {
	random            io.Reader
	reservationLength int
	voucherLength     int
	maxAttempts       int
}

// NewGenerator creates a Generator. Random defaults to crypto/rand.
func NewGenerator(opts Options) (*Generator, error) {
	g := &Generator{
		random:            opts.Random,
		reservationLength: opts.ReservationLength,
		voucherLength:     opts.VoucherLength,
		maxAttempts:       opts.MaxAttempts,
	}
	if g.random == nil {
		g.random = rand.Reader
	}
	if g.reservationLength == 0 {
		g.reservationLength = 8
	}
	if g.voucherLength == 0 {
		g.voucherLength = 10
	}
	if g.maxAttempts < 1 {
		g.maxAttempts = 5
	}
	if g.reservationLength < MinLength || g.voucherLength < MinLength {
		return nil, fmt.Errorf("%w: reservation=%d voucher=%d min=%d",
			ErrInvalidLength, g.reservationLength, g.voucherLength, MinLength)
	}
	return g, nil
}

// Code returns a random code of the given length drawn from Alphabet.
func (g *Generator) Code(length int) (string, error) {
	buf := make([]byte, length)
	if _, err := io.ReadFull(g.random, buf); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	for i, b := range buf {
		buf[i] = Alphabet[b&31]
	}
	return string(buf), nil
}

// ReservationCode returns a reservation code that exists reports as free.
func (g *Generator) ReservationCode(ctx context.Context, exists ExistsFunc) (string, error) {
	return g.unique(ctx, "reservation", g.reservationLength, exists)
}

// VoucherCode returns a voucher code that exists reports as free.
func (g *Generator) VoucherCode(ctx context.Context, exists ExistsFunc) (string, error) {
	return g.unique(ctx, "voucher", g.voucherLength, exists)
}

func (g *Generator) unique(ctx context.Context, kind string, length int, exists ExistsFunc) (string, error) {
	for attempt := 1; attempt <= g.maxAttempts; attempt++ {
		code, err := g.Code(length)
		if err != nil {
			return "", err
		}
		taken, err := exists(ctx, code)
		if err != nil {
			return "", fmt.Errorf("check %s code: %w", kind, err)
		}
		if !taken {
			return code, nil
		}
		log.Warn().Str("kind", kind).Int("attempt", attempt).Msg("generated code already taken, retrying")
	}
	return "", fmt.Errorf("%s code: %w after %d attempts", kind, ErrCodeSpaceExhausted, g.maxAttempts)
}

// Normalize upper-cases and trims a code typed by a person.
func Normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
