package policy

import "errors"

var (
	ErrNoBracketsForYear = errors.New("no tax brackets configured for year")
	ErrBracketCoverage   = errors.New("tax brackets do not form a gap-free partition starting at 0")
	ErrMalformedPolicy   = errors.New("malformed policy value")
)
