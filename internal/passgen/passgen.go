// Package passgen generates random passwords and scores password strength.
package passgen

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"unicode"

	"github.com/sakif/forgenotes/internal/apperror"
)

const (
	MinLength     = 4
	MaxLength     = 128
	DefaultLength = 16
)

const (
	lowerChars  = "abcdefghijklmnopqrstuvwxyz"
	upperChars  = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	digitChars  = "0123456789"
	symbolChars = "!@#$%^&*()-_=+[]{};:,.<>?/"
)

// Options selects the length and character classes of a password.
type Options struct {
	Length  int  `json:"length"`
	Lower   bool `json:"lower"`
	Upper   bool `json:"upper"`
	Digits  bool `json:"digits"`
	Symbols bool `json:"symbols"`
}

// DefaultOptions enables every class.
func DefaultOptions() Options {
	return Options{Length: DefaultLength, Lower: true, Upper: true, Digits: true, Symbols: true}
}

func (o Options) sets() []string {
	var sets []string
	if o.Lower {
		sets = append(sets, lowerChars)
	}
	if o.Upper {
		sets = append(sets, upperChars)
	}
	if o.Digits {
		sets = append(sets, digitChars)
	}
	if o.Symbols {
		sets = append(sets, symbolChars)
	}
	return sets
}

// Generate returns a password of opts.Length characters drawn uniformly from
// the enabled classes, with at least one character from each of them.
//
// WHY crypto/rand?
// math/rand is predictable from its seed; anything used as a password must
// come from the operating system's CSPRNG. rand.Int also avoids the modulo
// bias of reducing a random byte into a charset that is not a power of two.
//
// HOW THE GUARANTEE WORKS:
//  1. fill every position from the union of the enabled sets
//  2. pick one distinct random position per enabled set
//  3. overwrite each picked position with a character from its set
//
// The positions come from a shuffle, so the guaranteed characters are not
// always at the front.
func Generate(opts Options) (string, error) {
	if opts.Length < MinLength || opts.Length > MaxLength {
		return "", apperror.ValidationFailed("length",
			fmt.Sprintf("length must be between %d and %d", MinLength, MaxLength))
	}
	sets := opts.sets()
	if len(sets) == 0 {
		return "", apperror.ValidationFailed("options", "at least one character set must be enabled")
	}

	var all string
	for _, s := range sets {
		all += s
	}

	pw := make([]byte, opts.Length)
	for i := range pw {
		c, err := pick(all)
		if err != nil {
			return "", err
		}
		pw[i] = c
	}

	// Overwrite distinct random positions with one character of each class.
	positions, err := perm(opts.Length)
	if err != nil {
		return "", err
	}
	for i, s := range sets {
		c, err := pick(s)
		if err != nil {
			return "", err
		}
		pw[positions[i]] = c
	}

	return string(pw), nil
}

func randInt(n int) (int, error) {
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return 0, fmt.Errorf("passgen: reading random: %w", err)
	}
	return int(v.Int64()), nil
}

func pick(set string) (byte, error) {
	i, err := randInt(len(set))
	if err != nil {
		return 0, err
	}
	return set[i], nil
}

// perm is a Fisher-Yates shuffle of 0..n-1.
func perm(n int) ([]int, error) {
	p := make([]int, n)
	for i := range p {
		p[i] = i
	}
	for i := n - 1; i > 0; i-- {
		j, err := randInt(i + 1)
		if err != nil {
			return nil, err
		}
		p[i], p[j] = p[j], p[i]
	}
	return p, nil
}

// Strength labels.
const (
	Weak   = "weak"
	Medium = "medium"
	Strong = "strong"
)

// Score is the result of Strength. Value ranges over 0..6.
type Score struct {
	Value int    `json:"score"`
	Label string `json:"label"`
}

// Strength scores pw one point each for length ≥ 8, length ≥ 12, and the
// presence of a lowercase letter, an uppercase letter, a digit and a symbol.
func Strength(pw string) Score {
	var lower, upper, digit, symbol bool
	n := 0
	for _, r := range pw {
		n++
		switch {
		case unicode.IsLower(r):
			lower = true
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsDigit(r):
			digit = true
		case !unicode.IsSpace(r):
			symbol = true
		}
	}

	score := 0
	for _, ok := range []bool{n >= 8, n >= 12, lower, upper, digit, symbol} {
		if ok {
			score++
		}
	}

	label := Strong
	switch {
	case score <= 2:
		label = Weak
	case score <= 4:
		label = Medium
	}
	return Score{Value: score, Label: label}
}
