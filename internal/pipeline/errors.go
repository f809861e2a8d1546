package pipeline

import (
	"errors"
	"strings"
)

// ValidationError rejects a request before any stage runs.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return "pipeline: invalid " + e.Field + ": " + e.Reason
}

// IsValidationError reports whether err carries a ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// Validate normalizes a query and region, returning a ValidationError when the
// query is blank or the region is not two ASCII letters.
func Validate(query, region string) (string, string, error) {
	query = strings.Join(strings.Fields(query), " ")
	if query == "" {
		return "", "", &ValidationError{Field: "query", Reason: "must not be empty"}
	}
	region = strings.ToLower(strings.TrimSpace(region))
	if len(region) != 2 || !isASCIILetter(region[0]) || !isASCIILetter(region[1]) {
		return "", "", &ValidationError{Field: "region", Reason: "must be a two-letter code"}
	}
	return query, region, nil
}

func isASCIILetter(b byte) bool {
	return b >= 'a' && b <= 'z'
}
