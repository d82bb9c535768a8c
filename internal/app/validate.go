package app

import (
	"net/http"
	"regexp"
	"strconv"
	"strings"
)

// Identifier bound mirrors the column width: at most 10 digits.
const maxIDDigits = 10

var (
	digitsPattern      = regexp.MustCompile(`^[0-9]+$`)
	titlePattern       = regexp.MustCompile(`^[A-Za-z0-9 ]+$`)
	descriptionPattern = regexp.MustCompile(`^[A-Za-z0-9 .]+$`)
	// Permissive class for request/answer free text: letters, digits,
	// whitespace and common punctuation. Blocks markup injection while
	// leaving normal prose alone.
	freeTextPattern = regexp.MustCompile(`^[A-Za-z0-9\s.,:;!@#$%^&*()\[\]_-]+$`)
)

// parseID validates and parses a decoded identifier parameter. Identifiers
// must be plain digit strings within the column's digit bound.
func parseID(raw string) (int64, error) {
	if !digitsPattern.MatchString(raw) {
		return 0, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Parameter must be a digit")
	}
	if len(raw) > maxIDDigits {
		return 0, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Parameter exceeds the maximum number of digits")
	}
	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Parameter must be a digit")
	}
	return value, nil
}

func validateFreeText(value string, min, max int, what string) error {
	if len(value) < min || len(value) > max {
		return domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Invalid "+what+" length")
	}
	if !freeTextPattern.MatchString(value) {
		return domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Invalid "+what+" format")
	}
	return nil
}

// slugifyTitle turns a validated project title into a routing-safe
// identifier: trim, collapse whitespace runs to single hyphens, lowercase.
func slugifyTitle(title string) string {
	return strings.ToLower(strings.Join(strings.Fields(title), "-"))
}

// looksLikeEmail is a shallow shape check; real address verification is a
// transport concern.
func looksLikeEmail(email string) bool {
	at := strings.Index(email, "@")
	if at < 1 || at == len(email)-1 {
		return false
	}
	domain := email[at+1:]
	if strings.Contains(domain, "@") || !strings.Contains(domain, ".") {
		return false
	}
	return !strings.ContainsAny(email, " \t\r\n")
}
