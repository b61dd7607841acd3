package validation

import (
	"errors"
	"strings"
	"testing"
)

func TestValidateQuery_EmptyAndWhitespace(t *testing.T) {
	for _, input := range []string{"", "   ", "\t\n"} {
		if _, err := ValidateQuery(input, 1, 100); !errors.Is(err, ErrQueryEmpty) {
			t.Errorf("ValidateQuery(%q) error = %v, want ErrQueryEmpty", input, err)
		}
	}
}

func TestValidateQuery_Length(t *testing.T) {
	if _, err := ValidateQuery("x", 2, 100); !errors.Is(err, ErrQueryTooShort) {
		t.Errorf("error = %v, want ErrQueryTooShort", err)
	}
	if _, err := ValidateQuery(strings.Repeat("a", 101), 1, 100); !errors.Is(err, ErrQueryTooLong) {
		t.Errorf("error = %v, want ErrQueryTooLong", err)
	}
	// Runes, not bytes: five umlauts fit a limit of five.
	if _, err := ValidateQuery("üüüüü", 1, 5); err != nil {
		t.Errorf("error = %v, want nil for 5 runes", err)
	}
	if _, err := ValidateQuery(strings.Repeat("a", 500), 0, 0); err != nil {
		t.Errorf("error = %v, want nil with bounds disabled", err)
	}
}

func TestValidateQuery_InvalidChars(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"slash", "par/is"},
		{"question", "paris?"},
		{"hash", "par#is"},
		{"control", "par\x00is"},
		{"percent", "par%is"},
		{"angle", "<script>"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := ValidateQuery(tc.input, 1, 100); !errors.Is(err, ErrQueryInvalidChars) {
				t.Errorf("error = %v, want ErrQueryInvalidChars", err)
			}
		})
	}
}

func TestValidateQuery_Valid(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Paris", "Paris"},
		{"  New York  ", "New York"},
		{"London, UK", "London, UK"},
		{"Stratford-upon-Avon", "Stratford-upon-Avon"},
		{"St. John's", "St. John's"},
		{"Zürich", "Zürich"},
		{"東京", "東京"},
	}
	for _, tc := range tests {
		t.Run(tc.input, func(t *testing.T) {
			got, err := ValidateQuery(tc.input, 1, 100)
			if err != nil {
				t.Fatalf("ValidateQuery() error = %v", err)
			}
			if got != tc.want {
				t.Errorf("ValidateQuery() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestValidateLocationKey(t *testing.T) {
	for _, key := range []string{"51.507,-0.128", "berlin", "st. john's"} {
		if err := ValidateLocationKey(key); err != nil {
			t.Errorf("ValidateLocationKey(%q) error = %v", key, err)
		}
	}
	if err := ValidateLocationKey(" "); !errors.Is(err, ErrQueryEmpty) {
		t.Errorf("blank key error = %v, want ErrQueryEmpty", err)
	}
	if err := ValidateLocationKey("a/b"); !errors.Is(err, ErrQueryInvalidChars) {
		t.Errorf("slash key error = %v, want ErrQueryInvalidChars", err)
	}
}
