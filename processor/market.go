package processor

import (
	"github.com/shopspring/decimal"

	"cryptonorm/internal/extract"
	"cryptonorm/models"
)

// ParseMarket converts one market-listing entry. Markets never fail: missing
// fields leave the corresponding unified field empty.
func (e *Engine) ParseMarket(raw models.Raw) models.Market {
	f := e.profile.Markets

	id, _ := extract.String(raw, f.ID)
	baseID, _ := extract.String(raw, f.BaseID)
	quoteID, _ := extract.String(raw, f.QuoteID)
	base := e.resolver.Currency(baseID)
	quote := e.resolver.Currency(quoteID)

	pricePrecision := e.profile.PricePrecision(quote)
	minPrice, _ := decimal.New(1, -int32(pricePrecision)).Float64()

	return models.Market{
		ID:      id,
		Symbol:  base + "/" + quote,
		Base:    base,
		Quote:   quote,
		BaseID:  baseID,
		QuoteID: quoteID,
		Active:  activeFlag(raw, f.Active),
		Precision: models.Precision{
			Amount: e.profile.AmountPrecision,
			Price:  pricePrecision,
		},
		Limits: models.Limits{
			Amount: models.MinMax{Min: e.float(raw, models.KindMarket, f.MinAmount)},
			Price:  models.MinMax{Min: &minPrice},
		},
		Info: raw,
	}
}

// activeFlag resolves the venue's boolean-or-string active indicator. The
// literal string "false" is inactive; any other truthy value is active and an
// absent value is inactive.
func activeFlag(raw models.Raw, key string) bool {
	if s, ok := extract.Value(raw, key); ok {
		if str, isString := s.(string); isString && str == "false" {
			return false
		}
	}
	return extract.Truthy(raw, key)
}

// IndexMarkets builds the by-id and by-symbol lookups of a market list.
func IndexMarkets(markets []models.Market) (models.MarketsByID, map[string]*models.Market) {
	byID := make(models.MarketsByID, len(markets))
	bySymbol := make(map[string]*models.Market, len(markets))
	for i := range markets {
		m := &markets[i]
		if m.ID != "" {
			byID[m.ID] = m
		}
		bySymbol[m.Symbol] = m
	}
	return byID, bySymbol
}
