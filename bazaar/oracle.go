package bazaar

import (
	"sort"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"craftflip/itemdata"
	"craftflip/resolver"
)

const hoursPerWeek = 168

// Config names the quote-derivation policy knobs.
type Config struct {
	// OrderSpreadRatio is the minimum buy/sell spread above which a resting
	// buy order is assumed to fill at the buy-side price; below it the order
	// is priced at the sell side. The old engines hard-coded 1.07.
	OrderSpreadRatio float64
	// QuoteTTL bounds how long a derived quote is reused before it is
	// re-derived from the snapshot.
	QuoteTTL time.Duration
}

func DefaultConfig() Config {
	return Config{OrderSpreadRatio: 1.07, QuoteTTL: time.Minute}
}

// Oracle derives resolver.PriceQuote values from one market snapshot, with
// lowest-BIN auction prices as a fallback for items the bazaar does not
// trade. Derived quotes are kept in a TTL cache; the snapshot is immutable.
type Oracle struct {
	snap     *Snapshot
	auctions map[string]float64
	cfg      Config
	quotes   *gocache.Cache
}

type cachedQuote struct {
	quote resolver.PriceQuote
	ok    bool
}

// NewOracle wraps a snapshot without auction data. A zero Config gets the
// defaults.
func NewOracle(snap *Snapshot, cfg Config) *Oracle {
	return NewOracleWithAuctions(snap, nil, cfg)
}

// NewOracleWithAuctions wraps a snapshot plus lowest-BIN auction prices keyed
// by normalized item ID, as returned by Client.FetchLowestBins. auctions may
// be nil.
func NewOracleWithAuctions(snap *Snapshot, auctions map[string]float64, cfg Config) *Oracle {
	if cfg.OrderSpreadRatio <= 0 {
		cfg.OrderSpreadRatio = DefaultConfig().OrderSpreadRatio
	}
	if cfg.QuoteTTL <= 0 {
		cfg.QuoteTTL = DefaultConfig().QuoteTTL
	}
	return &Oracle{
		snap:     snap,
		auctions: auctions,
		cfg:      cfg,
		quotes:   gocache.New(cfg.QuoteTTL, 2*cfg.QuoteTTL),
	}
}

// Quote implements resolver.PriceOracle.
func (o *Oracle) Quote(itemID string) (resolver.PriceQuote, bool) {
	id := itemdata.NormalizeID(itemID)
	if v, found := o.quotes.Get(id); found {
		entry := v.(cachedQuote)
		return entry.quote, entry.ok
	}
	quote, ok := o.derive(id)
	o.quotes.Set(id, cachedQuote{quote, ok}, gocache.DefaultExpiration)
	return quote, ok
}

// Items lists every product in the snapshot, sorted, for full-market scans.
func (o *Oracle) Items() []string {
	if o.snap == nil {
		return nil
	}
	ids := make([]string, 0, len(o.snap.Products))
	for id := range o.snap.Products {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// derive builds a quote from the order book and weekly volume, falling back
// to the lowest auction BIN for items the bazaar does not trade. An item with
// a non-positive price on either book side is treated like an untraded one:
// the engines have never trusted one-sided books.
func (o *Oracle) derive(id string) (resolver.PriceQuote, bool) {
	if o.snap == nil {
		return o.auctionQuote(id)
	}
	prod, ok := o.snap.Products[id]
	if !ok {
		return o.auctionQuote(id)
	}

	buyPrice := bestPrice(prod.BuySummary, prod.QuickStatus.BuyPrice)
	sellPrice := bestPrice(prod.SellSummary, prod.QuickStatus.SellPrice)
	if buyPrice <= 0 || sellPrice <= 0 {
		return o.auctionQuote(id)
	}

	quote := resolver.PriceQuote{
		SellPrice:        sellPrice,
		HourlyInstabuys:  prod.QuickStatus.SellMovingWeek / hoursPerWeek,
		HourlyInstasells: prod.QuickStatus.BuyMovingWeek / hoursPerWeek,
	}

	switch {
	case quote.HourlyInstabuys < quote.HourlyInstasells:
		// Demand outpaces supply; a resting order would sit behind the
		// queue, so pay the spread and transact instantly.
		quote.Method = resolver.MethodInstabuy
		quote.BuyPrice = buyPrice
	case buyPrice/sellPrice > o.cfg.OrderSpreadRatio:
		quote.Method = resolver.MethodBuyOrder
		quote.BuyPrice = buyPrice
	default:
		quote.Method = resolver.MethodBuyOrder
		quote.BuyPrice = sellPrice
	}
	return quote, true
}

// auctionQuote prices an item at its lowest buy-it-now auction listing.
// Buying a BIN is immediate, so it behaves like an instabuy; there is no
// sell side and no order-book throughput to wait on.
func (o *Oracle) auctionQuote(id string) (resolver.PriceQuote, bool) {
	price, ok := o.auctions[id]
	if !ok || price <= 0 {
		return resolver.PriceQuote{}, false
	}
	return resolver.PriceQuote{
		BuyPrice: price,
		Method:   resolver.MethodInstabuy,
	}, true
}

// bestPrice prefers the top of the order book and falls back to the rolling
// quick-status average when the book side is empty.
func bestPrice(summary []OrderSummary, fallback float64) float64 {
	if len(summary) > 0 && summary[0].PricePerUnit > 0 {
		return summary[0].PricePerUnit
	}
	return fallback
}
