package sexp

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"sync"
)

// decimalPattern accepts plain base-10 numbers as KiCad writes them.
// strconv.ParseFloat alone would also accept hex floats, "Inf" and "NaN".
var decimalPattern = sync.OnceValue(func() *regexp.Regexp {
	return regexp.MustCompile(`^[-+]?(?:[0-9]+\.?[0-9]*|\.[0-9]+)(?:[eE][-+]?[0-9]+)?$`)
})

// ParseNumber parses a base-10 floating point literal.
// Anything else yields a ParseError of kind ErrInvalidNumber.
func ParseNumber(s string) (float64, error) {
	if !decimalPattern().MatchString(s) {
		return 0, NewError(ErrInvalidNumber, s, -1)
	}
	val, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, NewError(ErrInvalidNumber, s, -1)
	}
	return val, nil
}

// ParseInt parses a base-10 integer literal.
func ParseInt(s string) (int, error) {
	val, err := strconv.Atoi(s)
	if err != nil {
		return 0, NewError(ErrInvalidNumber, s, -1)
	}
	return val, nil
}

// Unquote decodes the body of a quoted string (without the surrounding
// quotes). The result never shares memory with the input so parsed records
// stay valid after the source buffer is dropped.
func Unquote(body string) string {
	if strings.IndexByte(body, '\\') < 0 {
		return strings.Clone(body)
	}

	var b strings.Builder
	b.Grow(len(body))
	for i := 0; i < len(body); i++ {
		c := body[i]
		if c != '\\' || i+1 == len(body) {
			b.WriteByte(c)
			continue
		}
		i++
		switch body[i] {
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		case 'r':
			b.WriteByte('\r')
		default:
			// \" and \\ plus any unknown escape keep the escaped byte
			b.WriteByte(body[i])
		}
	}
	return b.String()
}

// NormalizeDegrees maps an angle in degrees onto [0, 360).
func NormalizeDegrees(deg float64) float64 {
	deg = math.Mod(deg, 360)
	if deg < 0 {
		deg += 360
	}
	if deg == 0 || deg >= 360 {
		// folds -0 and values that round up to 360
		return 0
	}
	return deg
}
