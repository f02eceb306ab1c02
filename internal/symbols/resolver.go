// Package symbols maps venue currency codes and market identifiers to their
// unified form.
package symbols

import (
	"errors"
	"fmt"
	"strings"

	"cryptonorm/config"
	"cryptonorm/models"
)

// UnifiedSeparator joins base and quote in every unified symbol.
const UnifiedSeparator = "/"

// ErrMalformedSymbol is matched by every *MalformedSymbolError.
var ErrMalformedSymbol = errors.New("malformed market identifier")

// MalformedSymbolError reports a composite market id that does not split into
// exactly one base and one quote.
type MalformedSymbolError struct {
	Venue     string
	ID        string
	Separator string
}

func (e *MalformedSymbolError) Error() string {
	return fmt.Sprintf("%s: market id %q does not split into base and quote on %q", e.Venue, e.ID, e.Separator)
}

func (e *MalformedSymbolError) Unwrap() error { return ErrMalformedSymbol }

// Resolver is safe for concurrent use; it never mutates its tables.
type Resolver struct {
	venue     string
	separator string
	aliases   map[string]string
}

// NewResolver builds a resolver from the venue profile.
func NewResolver(p config.Profile) *Resolver {
	aliases := make(map[string]string, len(p.CommonCurrencies))
	for from, to := range p.CommonCurrencies {
		aliases[strings.ToUpper(from)] = strings.ToUpper(to)
	}
	return &Resolver{
		venue:     p.VenueID,
		separator: p.MarketIDSeparator,
		aliases:   aliases,
	}
}

// Currency returns the unified code for a venue currency code. Unknown codes
// are upper-cased and passed through.
func (r *Resolver) Currency(code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	if unified, ok := r.aliases[code]; ok {
		return unified
	}
	return code
}

// SymbolFromID resolves a venue market id. A market known to markets wins;
// otherwise the id is split on the venue separator and both halves go through
// Currency.
func (r *Resolver) SymbolFromID(id string, markets models.MarketsByID) (string, error) {
	if m, ok := markets[id]; ok && m != nil {
		return m.Symbol, nil
	}
	base, quote, err := r.Split(id)
	if err != nil {
		return "", err
	}
	return r.Currency(base) + UnifiedSeparator + r.Currency(quote), nil
}

// Split cuts a composite venue id into its raw base and quote parts.
func (r *Resolver) Split(id string) (string, string, error) {
	parts := strings.Split(id, r.separator)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", &MalformedSymbolError{Venue: r.venue, ID: id, Separator: r.separator}
	}
	return parts[0], parts[1], nil
}

// QuoteOf returns the quote half of a unified symbol, or "" when the symbol is
// not of the form base/quote.
func QuoteOf(symbol string) string {
	parts := strings.Split(symbol, UnifiedSeparator)
	if len(parts) != 2 {
		return ""
	}
	return parts[1]
}
