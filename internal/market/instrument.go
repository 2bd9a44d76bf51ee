// Package market holds the simulated instrument set and the stochastic
// price engine that advances it one tick at a time.
package market

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/shopspring/decimal"

	"github.com/atmx/stockquest/internal/model"
)

// Supported sectors.
const (
	SectorTechnology    = "Technology"
	SectorAutomotive    = "Automotive"
	SectorFinance       = "Finance"
	SectorHealthcare    = "Healthcare"
	SectorEnergy        = "Energy"
	SectorConsumer      = "Consumer"
	SectorEntertainment = "Entertainment"
)

// symbolRegex matches exchange-style tickers: AAPL, BRK.B, GOOGL.
var symbolRegex = regexp.MustCompile(`^[A-Z][A-Z0-9.]{0,9}$`)

var (
	ErrInvalidSymbol      = errors.New("market: invalid symbol")
	ErrInvalidPrice       = errors.New("market: price must be positive")
	ErrNegativeVolatility = errors.New("market: volatility must not be negative")
	ErrDuplicateSymbol    = errors.New("market: duplicate symbol")
)

// Spec is the static definition of an instrument at session start.
type Spec struct {
	Symbol      string
	Name        string
	Sector      string
	Price       decimal.Decimal
	Volatility  float64
	Description string
}

// NewInstrument validates a spec and returns the instrument it describes.
// Negative volatility is rejected here so the engine never has to.
func NewInstrument(s Spec) (model.Instrument, error) {
	if !symbolRegex.MatchString(s.Symbol) {
		return model.Instrument{}, fmt.Errorf("%w: %q", ErrInvalidSymbol, s.Symbol)
	}
	if !s.Price.IsPositive() {
		return model.Instrument{}, fmt.Errorf("%w: %s %s", ErrInvalidPrice, s.Symbol, s.Price)
	}
	if s.Volatility < 0 {
		return model.Instrument{}, fmt.Errorf("%w: %s %g", ErrNegativeVolatility, s.Symbol, s.Volatility)
	}
	return model.Instrument{
		Symbol:        s.Symbol,
		Name:          s.Name,
		Price:         s.Price,
		Change:        decimal.Zero,
		ChangePercent: decimal.Zero,
		Sector:        s.Sector,
		Volatility:    s.Volatility,
		Description:   s.Description,
	}, nil
}

// NewInstruments builds the full instrument set, rejecting duplicates.
func NewInstruments(specs []Spec) ([]model.Instrument, error) {
	seen := make(map[string]bool, len(specs))
	out := make([]model.Instrument, 0, len(specs))
	for _, s := range specs {
		if seen[s.Symbol] {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateSymbol, s.Symbol)
		}
		seen[s.Symbol] = true

		inst, err := NewInstrument(s)
		if err != nil {
			return nil, err
		}
		out = append(out, inst)
	}
	return out, nil
}

func price(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// DefaultSpecs returns the starting market of a new session.
func DefaultSpecs() []Spec {
	return []Spec{
		{"AAPL", "Apple Inc.", SectorTechnology, price("178.50"), 0.02,
			"Designs consumer electronics, software and services."},
		{"MSFT", "Microsoft Corp.", SectorTechnology, price("378.90"), 0.018,
			"Cloud computing, productivity software and gaming."},
		{"TSLA", "Tesla Inc.", SectorAutomotive, price("242.80"), 0.045,
			"Electric vehicles and energy storage. Known for large price swings."},
		{"JPM", "JPMorgan Chase & Co.", SectorFinance, price("156.30"), 0.015,
			"Global bank offering investment and consumer banking."},
		{"JNJ", "Johnson & Johnson", SectorHealthcare, price("160.20"), 0.01,
			"Pharmaceuticals and medical devices. A classic defensive stock."},
		{"XOM", "Exxon Mobil Corp.", SectorEnergy, price("104.70"), 0.025,
			"Oil and gas exploration, production and refining."},
		{"KO", "Coca-Cola Co.", SectorConsumer, price("59.40"), 0.008,
			"Beverages sold in more than 200 countries. Pays steady dividends."},
		{"DIS", "Walt Disney Co.", SectorEntertainment, price("91.60"), 0.022,
			"Theme parks, movies and streaming."},
	}
}

// DefaultInstruments returns the validated starting market.
func DefaultInstruments() []model.Instrument {
	out, err := NewInstruments(DefaultSpecs())
	if err != nil {
		panic(err) // static catalog
	}
	return out
}
