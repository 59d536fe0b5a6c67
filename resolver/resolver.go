// Package resolver computes the cheapest acquisition plan for a bazaar item:
// craft it from ingredients, recursively, or buy it outright. It is a pure
// in-memory computation; market data and recipe definitions come in through
// the PriceOracle and RecipeGraph interfaces.
package resolver

import (
	"encoding/json"
	"math"
	"sort"
)

// Method is how a quote's buy-side price is expected to be realised.
type Method string

const (
	// MethodInstabuy transacts immediately against the best resting sell offer.
	MethodInstabuy Method = "Instabuy"
	// MethodBuyOrder posts a resting buy order and waits for it to fill.
	MethodBuyOrder Method = "Buy Order"
)

// PriceQuote is the per-item market view the resolver consumes. Rates are
// units per hour derived from weekly moving counters.
type PriceQuote struct {
	BuyPrice         float64 // cost per unit to acquire via Method
	SellPrice        float64 // revenue per unit when instaselling
	Method           Method
	HourlyInstabuys  float64 // units instabought per hour
	HourlyInstasells float64 // units instasold per hour; fills resting buy orders
}

// PriceOracle maps an item ID to its current market quote. Absence of a
// quote is a normal condition, not an error.
type PriceOracle interface {
	Quote(itemID string) (PriceQuote, bool)
}

// RecipeGraph maps an item ID to its crafting recipes, already filtered of
// non-crafting kinds. An empty slice means the item cannot be crafted.
type RecipeGraph interface {
	Recipes(itemID string) []Recipe
}

// Strategy is the acquisition decision recorded on a plan node.
type Strategy string

const (
	StrategyBuy     Strategy = "buy-direct"
	StrategyCraft   Strategy = "craft"
	StrategyCycle   Strategy = "cycle-terminated"
	StrategyNoPrice Strategy = "no-price-available"
)

// AcquisitionNode is one decision in an acquisition plan. Nodes are built
// once per Resolve call and never modified afterwards.
type AcquisitionNode struct {
	ItemID      string
	Quantity    float64
	Strategy    Strategy
	UnitCost    float64            // NaN when no cost could be determined
	Ingredients []*AcquisitionNode // populated only when Strategy is StrategyCraft
}

// TotalCost is the node's unit cost scaled to its quantity. NaN propagates.
func (n *AcquisitionNode) TotalCost() float64 {
	return n.UnitCost * n.Quantity
}

// MarshalJSON renders NaN/Inf costs as null so plans survive encoding/json.
func (n *AcquisitionNode) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ItemID      string             `json:"item_id"`
		Quantity    float64            `json:"quantity"`
		Strategy    Strategy           `json:"strategy"`
		UnitCost    JSONFloat64        `json:"unit_cost"`
		TotalCost   JSONFloat64        `json:"total_cost"`
		Ingredients []*AcquisitionNode `json:"ingredients,omitempty"`
	}{n.ItemID, n.Quantity, n.Strategy, JSONFloat64(n.UnitCost), JSONFloat64(n.TotalCost()), n.Ingredients})
}

// JSONFloat64 marshals NaN and ±Inf as null instead of failing the encoder.
type JSONFloat64 float64

func (f JSONFloat64) MarshalJSON() ([]byte, error) {
	v := float64(f)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return []byte("null"), nil
	}
	return json.Marshal(v)
}

// Config names the tie-break knobs that used to be scattered across the
// engine copies as inline constants.
type Config struct {
	// PreferSingleOutput picks, among an item's recipes, the first one whose
	// declared output count is 1 before falling back to the first recipe.
	// Single-output recipes avoid fractional craft counts.
	PreferSingleOutput bool
	// CraftBias scales the crafted unit cost before it is compared with the
	// direct buy price. Values above 1 demand a margin before crafting wins;
	// 1 crafts whenever strictly cheaper.
	CraftBias float64
}

// DefaultConfig matches the behavior of the majority of the old engines.
func DefaultConfig() Config {
	return Config{PreferSingleOutput: true, CraftBias: 1}
}

// Resolver decides craft-vs-buy for every item in a plan. It holds no
// mutable state between calls and is safe for concurrent use.
type Resolver struct {
	graph  RecipeGraph
	oracle PriceOracle
	cfg    Config
}

func New(graph RecipeGraph, oracle PriceOracle) *Resolver {
	return NewWithConfig(graph, oracle, DefaultConfig())
}

func NewWithConfig(graph RecipeGraph, oracle PriceOracle, cfg Config) *Resolver {
	if cfg.CraftBias <= 0 {
		cfg.CraftBias = 1
	}
	return &Resolver{graph: graph, oracle: oracle, cfg: cfg}
}

// Resolve computes the cheapest acquisition plan for quantity units of
// itemID. The returned tree is finite even on cyclic recipe graphs: an item
// already being resolved on the current path is forced to cycle-terminated,
// which bounds recursion depth by the number of distinct items.
func (r *Resolver) Resolve(itemID string, quantity float64) *AcquisitionNode {
	return r.resolve(itemID, quantity, nil)
}

// resolve descends one item. ancestors is the item path from the root down
// to (not including) itemID; it is copied on the descent edge and never
// mutated after a call returns, so sibling branches cannot alias it.
func (r *Resolver) resolve(itemID string, quantity float64, ancestors []string) *AcquisitionNode {
	node := &AcquisitionNode{ItemID: itemID, Quantity: quantity, UnitCost: math.NaN()}

	if inPath(itemID, ancestors) {
		node.Strategy = StrategyCycle
		node.UnitCost = 0
		if q, ok := r.oracle.Quote(itemID); ok {
			node.UnitCost = q.BuyPrice
		}
		return node
	}

	quote, priced := r.oracle.Quote(itemID)

	recipe, craftable := r.pickRecipe(itemID)
	if !craftable {
		if !priced {
			node.Strategy = StrategyNoPrice
			return node
		}
		node.Strategy = StrategyBuy
		node.UnitCost = quote.BuyPrice
		return node
	}

	yield := recipe.Yield()
	crafts := quantity / yield
	path := append(append(make([]string, 0, len(ancestors)+1), ancestors...), itemID)

	merged := recipe.Ingredients()
	names := make([]string, 0, len(merged))
	for name := range merged {
		names = append(names, name)
	}
	sort.Strings(names)

	children := make([]*AcquisitionNode, 0, len(names))
	craftUnit := 0.0
	costKnown := true
	for _, ing := range names {
		perCraft := merged[ing]
		child := r.resolve(ing, perCraft*crafts, path)
		children = append(children, child)
		if !validCost(child.UnitCost) {
			costKnown = false
			continue
		}
		craftUnit += perCraft * child.UnitCost
	}
	craftUnit /= yield
	if !costKnown {
		craftUnit = math.NaN()
	}

	buyable := priced && validCost(quote.BuyPrice) && quote.BuyPrice > 0
	switch {
	case !validCost(craftUnit):
		// Crafted cost unknown: fall back to buying when possible, otherwise
		// keep the craft node so callers can see which branch is unpriced.
		if buyable {
			node.Strategy = StrategyBuy
			node.UnitCost = quote.BuyPrice
			return node
		}
		node.Strategy = StrategyCraft
		node.Ingredients = children
		return node
	case buyable && quote.BuyPrice <= craftUnit*r.cfg.CraftBias:
		node.Strategy = StrategyBuy
		node.UnitCost = quote.BuyPrice
		return node
	default:
		node.Strategy = StrategyCraft
		node.UnitCost = craftUnit
		node.Ingredients = children
		return node
	}
}

// pickRecipe returns the recipe used to cost itemID, skipping invalid
// (self-referential, empty) entries. Among the valid ones a single-output
// recipe wins when PreferSingleOutput is set; otherwise the first is taken.
// This is a deliberate simplification, not a multi-recipe optimizer.
func (r *Resolver) pickRecipe(itemID string) (Recipe, bool) {
	var valid []Recipe
	for _, rec := range r.graph.Recipes(itemID) {
		if rec.Empty() || rec.SelfReferential() {
			continue
		}
		valid = append(valid, rec)
	}
	if len(valid) == 0 {
		return Recipe{}, false
	}
	if r.cfg.PreferSingleOutput {
		for _, rec := range valid {
			if rec.Yield() == 1 {
				return rec, true
			}
		}
	}
	return valid[0], true
}

func inPath(itemID string, path []string) bool {
	for _, p := range path {
		if p == itemID {
			return true
		}
	}
	return false
}

// validCost accepts zero: a cycle-terminated item without a quote costs
// nothing rather than being unknown.
func validCost(c float64) bool {
	return !math.IsNaN(c) && !math.IsInf(c, 0) && c >= 0
}
