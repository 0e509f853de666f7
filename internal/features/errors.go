package features

import "fmt"

// MissingFieldError reports a required raw field that was not supplied.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("missing required field %q", e.Field)
}

// InvalidFieldError reports a field whose value has an incompatible type.
// Field is empty when the record as a whole is malformed.
type InvalidFieldError struct {
	Field  string
	Reason string
}

func (e *InvalidFieldError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("invalid record: %s", e.Reason)
	}
	return fmt.Sprintf("invalid field %q: %s", e.Field, e.Reason)
}

// ArithmeticError reports a derived feature that cannot be computed because
// its denominator is zero.
type ArithmeticError struct {
	Feature     string
	Denominator string
}

func (e *ArithmeticError) Error() string {
	return fmt.Sprintf("cannot compute %s: %s is zero", e.Feature, e.Denominator)
}
