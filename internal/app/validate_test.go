package app

import (
	"errors"
	"testing"
)

func TestParseID(t *testing.T) {
	cases := []struct {
		name  string
		raw   string
		value int64
		ok    bool
	}{
		{name: "simple", raw: "42", value: 42, ok: true},
		{name: "max digits", raw: "1234567890", value: 1234567890, ok: true},
		{name: "too many digits", raw: "12345678901"},
		{name: "letters", raw: "12a"},
		{name: "negative", raw: "-1"},
		{name: "empty", raw: ""},
		{name: "whitespace", raw: " 42"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			value, err := parseID(tc.raw)
			if tc.ok {
				if err != nil {
					t.Fatalf("parseID(%q) error = %v", tc.raw, err)
				}
				if value != tc.value {
					t.Fatalf("parseID(%q) = %d, want %d", tc.raw, value, tc.value)
				}
				return
			}
			var domainErr *DomainError
			if !errors.As(err, &domainErr) || domainErr.Code != "VALIDATION_ERROR" {
				t.Fatalf("parseID(%q) error = %v, want VALIDATION_ERROR", tc.raw, err)
			}
		})
	}
}

func TestSlugifyTitle(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{in: "My Little Project", want: "my-little-project"},
		{in: "  padded   title  ", want: "padded-title"},
		{in: "Single", want: "single"},
	}
	for _, tc := range cases {
		if got := slugifyTitle(tc.in); got != tc.want {
			t.Fatalf("slugifyTitle(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestLooksLikeEmail(t *testing.T) {
	valid := []string{"alice@example.com", "a.b@sub.example.org"}
	invalid := []string{"", "plain", "@example.com", "alice@", "alice@nodot", "two@@example.com", "sp ace@example.com"}

	for _, email := range valid {
		if !looksLikeEmail(email) {
			t.Fatalf("looksLikeEmail(%q) = false, want true", email)
		}
	}
	for _, email := range invalid {
		if looksLikeEmail(email) {
			t.Fatalf("looksLikeEmail(%q) = true, want false", email)
		}
	}
}
