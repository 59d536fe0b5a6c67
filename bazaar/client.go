// Package bazaar fetches the live market snapshot and derives per-item price
// quotes from it. It is the price-oracle side of the engine; the resolver
// never talks to the network itself.
package bazaar

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/go-redis/redis/v8"

	"craftflip/itemdata"
)

const (
	// DefaultURL is the public bazaar endpoint.
	DefaultURL = "https://api.hypixel.net/v2/skyblock/bazaar"
	// LowestBinURL serves Moulberry's lowest buy-it-now auction prices, used
	// to cost items the bazaar does not trade.
	LowestBinURL = "https://moulberry.codes/lowestbin.json"

	snapshotKey = "bazaar:snapshot"
	snapshotTTL = 10 * time.Minute
)

// OrderSummary is one aggregated level of the order book.
type OrderSummary struct {
	PricePerUnit float64 `json:"pricePerUnit"`
	Amount       int     `json:"amount"`
	Orders       int     `json:"orders"`
}

// QuickStatus carries the rolling price and weekly volume counters.
type QuickStatus struct {
	BuyPrice       float64 `json:"buyPrice"`
	SellPrice      float64 `json:"sellPrice"`
	BuyMovingWeek  float64 `json:"buyMovingWeek"`
	SellMovingWeek float64 `json:"sellMovingWeek"`
}

// Product is one tradable item's market state.
type Product struct {
	ProductID   string         `json:"product_id"`
	SellSummary []OrderSummary `json:"sell_summary"`
	BuySummary  []OrderSummary `json:"buy_summary"`
	QuickStatus QuickStatus    `json:"quick_status"`
}

// Snapshot is one fetch of the whole market.
type Snapshot struct {
	Success     bool               `json:"success"`
	LastUpdated int64              `json:"lastUpdated"` // unix millis
	Products    map[string]Product `json:"products"`
}

// Client fetches snapshots over HTTP and, when a Redis client is configured,
// persists the latest good snapshot so a failed fetch can fall back to it.
type Client struct {
	http   *http.Client
	url    string
	binURL string
	rdb    *redis.Client
}

// NewClient builds a client. url defaults to DefaultURL; rdb may be nil to
// disable the snapshot store.
func NewClient(url string, rdb *redis.Client) *Client {
	if url == "" {
		url = DefaultURL
	}
	return &Client{
		http:   &http.Client{Timeout: 15 * time.Second},
		url:    url,
		binURL: LowestBinURL,
		rdb:    rdb,
	}
}

// Fetch retrieves a fresh snapshot. On failure it returns the last snapshot
// persisted to Redis (when one exists) together with the fetch error, so
// callers can keep serving stale data while surfacing the failure.
func (c *Client) Fetch(ctx context.Context) (*Snapshot, error) {
	snap, err := c.fetchLive(ctx)
	if err == nil {
		c.storeSnapshot(ctx, snap)
		return snap, nil
	}
	if cached := c.cachedSnapshot(ctx); cached != nil {
		log.Printf("bazaar: live fetch failed (%v); using cached snapshot from %d", err, cached.LastUpdated)
		return cached, err
	}
	return nil, err
}

func (c *Client) fetchLive(ctx context.Context) (*Snapshot, error) {
	body, err := c.get(ctx, c.url)
	if err != nil {
		return nil, err
	}

	var snap Snapshot
	if err := json.Unmarshal(body, &snap); err != nil {
		return nil, fmt.Errorf("parsing bazaar JSON: %w", err)
	}
	if !snap.Success {
		return nil, fmt.Errorf("bazaar API reported success=false (lastUpdated %d)", snap.LastUpdated)
	}
	return &snap, nil
}

// FetchLowestBins retrieves the lowest buy-it-now price per auction item,
// keyed by normalized item ID. Items absent from the bazaar fall back to
// these prices when quoting.
func (c *Client) FetchLowestBins(ctx context.Context) (map[string]float64, error) {
	body, err := c.get(ctx, c.binURL)
	if err != nil {
		return nil, err
	}

	var raw map[string]float64
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("parsing lowest-BIN JSON: %w", err)
	}
	bins := make(map[string]float64, len(raw))
	for id, price := range raw {
		if price > 0 {
			bins[itemdata.NormalizeID(id)] = price
		}
	}
	return bins, nil
}

// get performs one GET, negotiating brotli/gzip transfer encoding. The
// lowest-BIN endpoint serves brotli to clients that accept it; the bazaar
// endpoint usually answers plain.
func (c *Client) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request for %s: %w", url, err)
	}
	req.Header.Set("Accept-Encoding", "gzip, br")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", url, err)
	}
	defer resp.Body.Close()

	reader, err := decodeBody(resp)
	if err != nil {
		return nil, err
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("reading response from %s: %w", url, err)
	}
	if resp.StatusCode != http.StatusOK {
		if len(body) > 500 {
			body = body[:500]
		}
		return nil, fmt.Errorf("%s returned status %d: %s", url, resp.StatusCode, body)
	}
	return body, nil
}

func decodeBody(resp *http.Response) (io.Reader, error) {
	switch resp.Header.Get("Content-Encoding") {
	case "br":
		return brotli.NewReader(resp.Body), nil
	case "gzip":
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("opening gzip response: %w", err)
		}
		return gz, nil
	default:
		return resp.Body, nil
	}
}

func (c *Client) storeSnapshot(ctx context.Context, snap *Snapshot) {
	if c.rdb == nil {
		return
	}
	data, err := json.Marshal(snap)
	if err != nil {
		log.Printf("WARN: bazaar: marshaling snapshot for cache: %v", err)
		return
	}
	if err := c.rdb.Set(ctx, snapshotKey, data, snapshotTTL).Err(); err != nil {
		log.Printf("WARN: bazaar: storing snapshot in redis: %v", err)
	}
}

func (c *Client) cachedSnapshot(ctx context.Context) *Snapshot {
	if c.rdb == nil {
		return nil
	}
	data, err := c.rdb.Get(ctx, snapshotKey).Bytes()
	if err != nil {
		if err != redis.Nil {
			log.Printf("WARN: bazaar: reading snapshot from redis: %v", err)
		}
		return nil
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		log.Printf("WARN: bazaar: parsing cached snapshot: %v", err)
		return nil
	}
	return &snap
}
