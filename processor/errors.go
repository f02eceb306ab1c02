package processor

import (
	"errors"
	"fmt"

	"cryptonorm/internal/symbols"
)

// ErrMissingResult is matched by every *MissingResultError.
var ErrMissingResult = errors.New("missing result")

// MissingResultError reports a venue response that lacks the container the
// operation needs. It signals venue availability, not data quality, and is
// never retried here.
type MissingResultError struct {
	Venue     string
	Operation string
	Response  string
}

func (e *MissingResultError) Error() string {
	if e.Response == "" {
		return fmt.Sprintf("%s %s returned no result", e.Venue, e.Operation)
	}
	return fmt.Sprintf("%s %s returned no result: %s", e.Venue, e.Operation, e.Response)
}

func (e *MissingResultError) Unwrap() error { return ErrMissingResult }

// ErrMalformedSymbol and MalformedSymbolError are raised by the resolver when
// a composite market id does not split into base and quote.
var ErrMalformedSymbol = symbols.ErrMalformedSymbol

type MalformedSymbolError = symbols.MalformedSymbolError
