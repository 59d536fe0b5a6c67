// Package flip turns acquisition plans into flip economics: what a quantity
// costs to assemble, what instaselling it returns, and how long the whole
// cycle takes.
package flip

import (
	"math"

	"craftflip/resolver"
)

const secondsPerHour = 3600

// Analysis is the full economics of flipping one item at one quantity.
// Unknown values are null in JSON rather than NaN.
type Analysis struct {
	ItemID             string                    `json:"item_id"`
	Quantity           float64                   `json:"quantity"`
	Strategy           resolver.Strategy         `json:"strategy"`
	Cost               resolver.JSONFloat64      `json:"cost"`
	Revenue            resolver.JSONFloat64      `json:"revenue"`
	Profit             resolver.JSONFloat64      `json:"profit"`
	ProfitPerHour      resolver.JSONFloat64      `json:"profit_per_hour"`
	AcquisitionSeconds resolver.JSONFloat64      `json:"acquisition_seconds"`
	SaleSeconds        resolver.JSONFloat64      `json:"sale_seconds"`
	CycleSeconds       resolver.JSONFloat64      `json:"cycle_seconds"`
	BottleneckItem     string                    `json:"bottleneck_item,omitempty"`
	BottleneckQty      float64                   `json:"bottleneck_qty,omitempty"`
	RawMaterials       map[string]float64        `json:"raw_materials"`
	Possible           bool                      `json:"possible"`
	Plan               *resolver.AcquisitionNode `json:"plan,omitempty"`
}

// Config names the market-scan thresholds that used to live as inline
// constants in the ranking scripts.
type Config struct {
	// MaxCapital caps the total cost of a single flip during quantity search.
	MaxCapital float64
	// MinProfitRatio is the minimum revenue/cost ratio a scanned flip must
	// clear to rank as possible. 1 disables the margin filter.
	MinProfitRatio float64
}

func DefaultConfig() Config {
	return Config{MaxCapital: 800_000_000, MinProfitRatio: 1.15}
}

// Analyzer combines a resolver with the oracle it resolves against.
type Analyzer struct {
	Resolver *resolver.Resolver
	Oracle   resolver.PriceOracle
	cfg      Config
}

func NewAnalyzer(res *resolver.Resolver, oracle resolver.PriceOracle) *Analyzer {
	return NewAnalyzerWithConfig(res, oracle, DefaultConfig())
}

func NewAnalyzerWithConfig(res *resolver.Resolver, oracle resolver.PriceOracle, cfg Config) *Analyzer {
	if cfg.MaxCapital <= 0 {
		cfg.MaxCapital = DefaultConfig().MaxCapital
	}
	if cfg.MinProfitRatio <= 0 {
		cfg.MinProfitRatio = 1
	}
	return &Analyzer{Resolver: res, Oracle: oracle, cfg: cfg}
}

// Analyze resolves the cheapest plan for quantity units of itemID and prices
// the full flip cycle: acquire raw materials, craft, instasell the result.
func (a *Analyzer) Analyze(itemID string, quantity float64) Analysis {
	plan := a.Resolver.Resolve(itemID, quantity)
	raw := resolver.RawMaterials(plan)
	bottleneck := resolver.FillTimeBottleneck(raw, a.Oracle)

	cost := plan.TotalCost()
	revenue := math.NaN()
	saleSecs := math.Inf(1)
	// Auction-sourced quotes carry no sell side; revenue stays unknown for
	// them since there is no bazaar book to instasell into.
	if quote, ok := a.Oracle.Quote(itemID); ok && quote.SellPrice > 0 {
		revenue = quote.SellPrice * quantity
		if quote.HourlyInstasells > 0 {
			saleSecs = quantity / quote.HourlyInstasells * secondsPerHour
		}
	}

	profit := revenue - cost
	cycleSecs := bottleneck.Seconds + saleSecs
	perHour := math.NaN()
	if !math.IsNaN(profit) && cycleSecs > 0 && !math.IsInf(cycleSecs, 0) {
		perHour = profit / (cycleSecs / secondsPerHour)
	}

	possible := !math.IsNaN(cost) && !math.IsInf(cost, 0) &&
		!math.IsNaN(revenue) &&
		!math.IsNaN(cycleSecs) && !math.IsInf(cycleSecs, 0)

	return Analysis{
		ItemID:             itemID,
		Quantity:           quantity,
		Strategy:           plan.Strategy,
		Cost:               resolver.JSONFloat64(cost),
		Revenue:            resolver.JSONFloat64(revenue),
		Profit:             resolver.JSONFloat64(profit),
		ProfitPerHour:      resolver.JSONFloat64(perHour),
		AcquisitionSeconds: resolver.JSONFloat64(bottleneck.Seconds),
		SaleSeconds:        resolver.JSONFloat64(saleSecs),
		CycleSeconds:       resolver.JSONFloat64(cycleSecs),
		BottleneckItem:     bottleneck.ItemID,
		BottleneckQty:      bottleneck.Quantity,
		RawMaterials:       raw,
		Possible:           possible,
		Plan:               plan,
	}
}
