package validation

import (
	"errors"
	"strings"
	"unicode"
)

var (
	ErrQueryEmpty        = errors.New("query is required")
	ErrQueryTooShort     = errors.New("query too short")
	ErrQueryTooLong      = errors.New("query too long")
	ErrQueryInvalidChars = errors.New("query contains invalid characters")
)

// ValidateQuery trims a place search query and enforces rune length bounds
// (a bound of 0 disables it) and the allowed character set: Unicode letters,
// digits, space, comma, hyphen, period and apostrophe ("St. John's").
func ValidateQuery(input string, minLen, maxLen int) (string, error) {
	s := strings.TrimSpace(input)
	r := []rune(s)
	n := len(r)
	if n == 0 {
		return "", ErrQueryEmpty
	}
	if minLen > 0 && n < minLen {
		return "", ErrQueryTooShort
	}
	if maxLen > 0 && n > maxLen {
		return "", ErrQueryTooLong
	}
	for _, c := range r {
		if !isAllowedQueryRune(c) {
			return "", ErrQueryInvalidChars
		}
	}
	return s, nil
}

func isAllowedQueryRune(r rune) bool {
	if unicode.IsLetter(r) || unicode.IsNumber(r) {
		return true
	}
	switch r {
	case ' ', ',', '-', '.', '\'':
		return true
	}
	return false
}

// ValidateLocationKey checks a key taken from a URL path. Keys are either
// "lat,lon" with three decimals or a lower-cased place name.
func ValidateLocationKey(key string) error {
	if strings.TrimSpace(key) == "" {
		return ErrQueryEmpty
	}
	for _, c := range key {
		if !isAllowedQueryRune(c) {
			return ErrQueryInvalidChars
		}
	}
	return nil
}
