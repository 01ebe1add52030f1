// Package shortcode generates and validates the tokens used as redirect paths.
package shortcode

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"unicode/utf8"

	"github.com/wadjakorntonsri/go-shortlinks/pkg/core/domain"
)

const (
	DefaultLength = 6
	MinLength     = 3
	MaxLength     = 20

	DefaultMaxAttempts = 1000
)

const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

var reserved = map[string]struct{}{
	"api":    {},
	"www":    {},
	"admin":  {},
	"stats":  {},
	"app":    {},
	"create": {},
	"delete": {},
	"edit":   {},
}

// Generate draws length characters uniformly from the alphanumeric charset.
// The result is not checked for uniqueness.
func Generate(length int) (string, error) {
	if length <= 0 {
		length = DefaultLength
	}
	limit := big.NewInt(int64(len(charset)))
	b := make([]byte, length)
	for i := range b {
		num, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", err
		}
		b[i] = charset[num.Int64()]
	}
	return string(b), nil
}

// Validate checks the format of a user-supplied shortcode. Input is trimmed first.
func Validate(code string) error {
	code = strings.TrimSpace(code)
	if code == "" {
		return domain.ErrEmptyInput
	}

	if n := utf8.RuneCountInString(code); n < MinLength || n > MaxLength {
		return domain.ErrInvalidLength
	}

	for i := 0; i < len(code); i++ {
		if !isAlphanumeric(code[i]) {
			return domain.ErrInvalidCharacters
		}
	}

	if IsReserved(code) {
		return domain.ErrReservedWord
	}
	return nil
}

// IsReserved reports whether code collides with a route name, case-insensitively.
func IsReserved(code string) bool {
	_, ok := reserved[strings.ToLower(strings.TrimSpace(code))]
	return ok
}

// IsUnique reports whether code is absent from existing.
func IsUnique(code string, existing map[string]struct{}) bool {
	_, taken := existing[code]
	return !taken
}

func isAlphanumeric(c byte) bool {
	return (c >= 'a' && c <= 'z') ||
		(c >= 'A' && c <= 'Z') ||
		(c >= '0' && c <= '9')
}

// Allocator hands out generated codes that are unique against a caller-supplied set
type Allocator struct {
	length      int
	maxAttempts int
	generate    func(length int) (string, error)
}

func NewAllocator(length, maxAttempts int) *Allocator {
	if length <= 0 {
		length = DefaultLength
	}
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	return &Allocator{
		length:      length,
		maxAttempts: maxAttempts,
		generate:    Generate,
	}
}

// Allocate generates codes until one is absent from taken and not reserved.
// It gives up with ErrAllocationExhausted after maxAttempts draws.
func (a *Allocator) Allocate(taken map[string]struct{}) (string, error) {
	for attempt := 0; attempt < a.maxAttempts; attempt++ {
		code, err := a.generate(a.length)
		if err != nil {
			return "", fmt.Errorf("generating shortcode: %w", err)
		}
		if IsUnique(code, taken) && !IsReserved(code) {
			return code, nil
		}
	}
	return "", fmt.Errorf("%w after %d attempts", domain.ErrAllocationExhausted, a.maxAttempts)
}
