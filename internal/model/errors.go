package model

import (
	"errors"
	"fmt"
)

// ErrMalformedSection is matched by every *MalformedSectionError.
var ErrMalformedSection = errors.New("model: malformed section")

// MalformedSectionError reports a section that is present but not shaped as
// expected. Assembly stops at the first one.
type MalformedSectionError struct {
	Section  string
	Expected string
	Err      error
}

func (e *MalformedSectionError) Error() string {
	if e == nil {
		return ErrMalformedSection.Error()
	}
	msg := fmt.Sprintf("model: section %q is malformed", e.Section)
	if e.Expected != "" {
		msg += ", expected " + e.Expected
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *MalformedSectionError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is allows errors.Is(err, ErrMalformedSection).
func (e *MalformedSectionError) Is(target error) bool {
	return target == ErrMalformedSection
}

func malformed(section, expected string, err error) error {
	return &MalformedSectionError{Section: section, Expected: expected, Err: err}
}
