package app

import (
	"errors"
	"fmt"
)

// ErrHardFail is the authentication failure: no matching credentials. The
// call terminates with no payload and no details leaked.
var ErrHardFail = errors.New("authentication failed")

type DomainError struct {
	Status  int
	Code    string
	Message string
}

func (e *DomainError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func domainError(status int, code, message string) *DomainError {
	return &DomainError{
		Status:  status,
		Code:    code,
		Message: message,
	}
}
