// Package pincode holds all format and validity rules for the monthly
// redemption code: generation, canonical formatting, masking, and the
// calendar-month validity window.
package pincode

import (
	"crypto/rand"
	"fmt"
	"io"
	"math/big"
	"strings"
	"time"

	"discount-pin-service/internal/domain"
)

const (
	digits    = 8
	separator = '-'
	maskRune  = '*'
)

// Period identifies a calendar month.
type Period struct {
	Year  int
	Month time.Month
}

func (p Period) String() string { return fmt.Sprintf("%04d-%02d", p.Year, int(p.Month)) }

// PeriodOf returns the calendar month t falls in.
func PeriodOf(t time.Time) Period {
	y, m, _ := t.Date()
	return Period{Year: y, Month: m}
}

// Codec evaluates code validity against a clock in a fixed location.
type Codec struct {
	now func() time.Time
	loc *time.Location
}

// NewCodec returns a codec. A nil clock uses time.Now; a nil location uses UTC.
func NewCodec(now func() time.Time, loc *time.Location) *Codec {
	if now == nil {
		now = time.Now
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Codec{now: now, loc: loc}
}

// Now returns the current instant in the codec's location.
func (c *Codec) Now() time.Time { return c.now().In(c.loc) }

func (c *Codec) Location() *time.Location { return c.loc }

// CurrentPeriod returns the calendar month of the codec's clock.
func (c *Codec) CurrentPeriod() Period { return PeriodOf(c.Now()) }

// PeriodOf returns the calendar month of t in the codec's location.
func (c *Codec) PeriodOf(t time.Time) Period { return PeriodOf(t.In(c.loc)) }

// IsExpired reports whether a code issued at issuedAt no longer belongs to the
// current calendar month. A code that was never issued is expired.
func (c *Codec) IsExpired(issuedAt *time.Time) bool {
	if issuedAt == nil || issuedAt.IsZero() {
		return true
	}
	return c.PeriodOf(*issuedAt) != c.CurrentPeriod()
}

// IsExpiredAt is IsExpired evaluated against an explicit instant.
func (c *Codec) IsExpiredAt(issuedAt *time.Time, now time.Time) bool {
	if issuedAt == nil || issuedAt.IsZero() {
		return true
	}
	return c.PeriodOf(*issuedAt) != c.PeriodOf(now)
}

// ExpiryInstant is the last representable instant of the current month.
// Display only; validity is decided by IsExpired.
func (c *Codec) ExpiryInstant() time.Time { return EndOfMonth(c.Now()) }

// EndOfMonth returns the last nanosecond of t's month in t's location.
func EndOfMonth(t time.Time) time.Time {
	y, m, _ := t.Date()
	return time.Date(y, m+1, 1, 0, 0, 0, 0, t.Location()).Add(-time.Nanosecond)
}

// Generate draws a new code from crypto/rand in XXXX-XXXX form.
func Generate() (string, error) {
	return generateFrom(rand.Reader)
}

func generateFrom(r io.Reader) (string, error) {
	ten := big.NewInt(10)
	buf := make([]byte, 0, digits)
	for i := 0; i < digits; i++ {
		n, err := rand.Int(r, ten)
		if err != nil {
			return "", err
		}
		buf = append(buf, byte('0'+n.Int64()))
	}
	return render(string(buf)), nil
}

// Format normalises raw input (with or without separators or spaces) to
// XXXX-XXXX. Anything that does not reduce to exactly 8 digits is malformed.
func Format(raw string) (string, error) {
	d, err := Digits(raw)
	if err != nil {
		return "", err
	}
	return render(d), nil
}

// Digits strips separators and returns the bare 8 digits.
func Digits(raw string) (string, error) {
	var b strings.Builder
	b.Grow(digits)
	for _, r := range raw {
		switch {
		case r >= '0' && r <= '9':
			if b.Len() == digits {
				return "", domain.ErrMalformedCode
			}
			b.WriteRune(r)
		case r == separator || r == ' ' || r == '\t':
		default:
			return "", domain.ErrMalformedCode
		}
	}
	if b.Len() != digits {
		return "", domain.ErrMalformedCode
	}
	return b.String(), nil
}

// Mask keeps the first two and last two digits: 12**-**78.
// Input that is not a valid code is masked entirely.
func Mask(code string) string {
	d, err := Digits(code)
	if err != nil {
		return "****-****"
	}
	out := []byte(d)
	for i := 2; i < digits-2; i++ {
		out[i] = maskRune
	}
	return render(string(out))
}

func render(d string) string { return d[:4] + string(separator) + d[4:] }
