// Package processor turns raw venue records into unified records.
//
// Every Parse method is a pure function of its raw input, the venue profile
// and the market context passed in by the caller. Engines hold no mutable
// state and may be shared between goroutines.
package processor

import (
	"github.com/shopspring/decimal"

	"cryptonorm/config"
	"cryptonorm/internal/extract"
	"cryptonorm/internal/symbols"
	"cryptonorm/logger"
	"cryptonorm/models"
)

type Engine struct {
	profile  config.Profile
	resolver *symbols.Resolver
	log      *logger.Log
}

func NewEngine(profile config.Profile) *Engine {
	return &Engine{
		profile:  profile,
		resolver: symbols.NewResolver(profile),
		log:      logger.GetLogger(),
	}
}

func (e *Engine) Venue() string { return e.profile.VenueID }

func (e *Engine) Profile() config.Profile { return e.profile }

func (e *Engine) Resolver() *symbols.Resolver { return e.resolver }

// float reads a numeric field. A value that is present but unusable is
// logged and reported as absent.
func (e *Engine) float(raw models.Raw, kind models.Kind, key string) *float64 {
	if key == "" {
		return nil
	}
	f := extract.Float(raw, key)
	if f == nil {
		if v, ok := extract.Value(raw, key); ok {
			e.degraded(kind, key, v)
		}
	}
	return f
}

// timestamp parses a venue timestamp, appending the profile offset when
// withOffset is set.
func (e *Engine) timestamp(raw models.Raw, kind models.Kind, key string, withOffset bool) *int64 {
	s, ok := extract.String(raw, key)
	if !ok || s == "" {
		return nil
	}
	var ts *int64
	if withOffset {
		ts = extract.ParseWithOffset(s, e.profile.TimestampOffset)
	} else {
		ts = extract.Parse8601(s)
	}
	if ts == nil {
		e.degraded(kind, key, s)
	}
	return ts
}

func (e *Engine) degraded(kind models.Kind, field string, value interface{}) {
	e.log.WithComponent("normalizer").WithFields(logger.Fields{
		"venue": e.profile.VenueID,
		"kind":  string(kind),
		"field": field,
		"value": value,
	}).Debug("field degraded to undefined")
}

func toDecimal(f *float64) (decimal.Decimal, bool) {
	if f == nil {
		return decimal.Zero, false
	}
	return decimal.NewFromFloat(*f), true
}

func fromDecimal(d decimal.Decimal) *float64 {
	f, _ := d.Float64()
	return &f
}

func mul(a, b *float64) *float64 {
	x, ok1 := toDecimal(a)
	y, ok2 := toDecimal(b)
	if !ok1 || !ok2 {
		return nil
	}
	return fromDecimal(x.Mul(y))
}

func sub(a, b *float64) *float64 {
	x, ok1 := toDecimal(a)
	y, ok2 := toDecimal(b)
	if !ok1 || !ok2 {
		return nil
	}
	return fromDecimal(x.Sub(y))
}

func div(a, b *float64) *float64 {
	x, ok1 := toDecimal(a)
	y, ok2 := toDecimal(b)
	if !ok1 || !ok2 || y.IsZero() {
		return nil
	}
	return fromDecimal(x.Div(y))
}

func abs(f *float64) *float64 {
	d, ok := toDecimal(f)
	if !ok {
		return nil
	}
	return fromDecimal(d.Abs())
}

func isZero(f *float64) bool {
	return f == nil || *f == 0
}
