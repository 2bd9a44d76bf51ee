package market

import (
	"math"
	"math/rand/v2"

	"github.com/shopspring/decimal"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/atmx/stockquest/internal/model"
)

var (
	// MinPrice is the strictly positive floor every price is clamped to.
	MinPrice = decimal.RequireFromString("0.01")

	// MaxStep bounds a single relative move, so one tick can at most halve
	// a price.
	MaxStep = 0.5

	// PriceScale is the number of decimal places prices are quoted in.
	PriceScale int32 = 2
)

var hundred = decimal.NewFromInt(100)

// Engine advances instrument prices by one multiplicative random step per
// tick. It keeps no memory of earlier steps; the next price depends only on
// the current price, the instrument's volatility and fresh noise.
type Engine struct {
	noise distuv.Normal
}

// NewEngine creates an engine whose noise is drawn from the given seed.
// Engines built from the same seed produce the same price paths.
func NewEngine(seed uint64) *Engine {
	return NewEngineWithSource(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// NewEngineWithSource creates an engine drawing noise from src.
func NewEngineWithSource(src rand.Source) *Engine {
	return &Engine{
		noise: distuv.Normal{Mu: 0, Sigma: 1, Src: src},
	}
}

// Advance returns the instrument set after one tick. The input slice is not
// modified.
func (e *Engine) Advance(instruments []model.Instrument) []model.Instrument {
	out := make([]model.Instrument, len(instruments))
	for i, inst := range instruments {
		out[i] = Step(inst, e.noise.Rand())
	}
	return out
}

// Step applies one standard-normal draw z to an instrument. The relative move
// is z scaled by volatility and bounded to [-MaxStep, +MaxStep].
func Step(inst model.Instrument, z float64) model.Instrument {
	rel := z * inst.Volatility
	if math.IsNaN(rel) {
		rel = 0
	}
	rel = math.Max(-MaxStep, math.Min(MaxStep, rel))

	old := inst.Price
	next := old.Mul(decimal.NewFromFloat(1 + rel)).Round(PriceScale)
	if next.LessThan(MinPrice) {
		next = MinPrice
	}

	inst.Price = next
	inst.Change = next.Sub(old)
	inst.ChangePercent = decimal.Zero
	if old.IsPositive() {
		inst.ChangePercent = inst.Change.Div(old).Mul(hundred).Round(PriceScale)
	}
	return inst
}
