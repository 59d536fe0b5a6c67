// Command craftflip-server exposes the flip engine as a JSON API:
//
//	GET /api/plan?item=ITEM&qty=N        acquisition plan + flip economics
//	GET /api/flips?time_limit_secs=3600  ranked market scan
//
// The bazaar snapshot is refreshed in the background; requests are served
// from the most recent good snapshot.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"net/http"
	"os"
	"runtime/debug"
	"strconv"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"

	"craftflip/bazaar"
	"craftflip/flip"
	"craftflip/itemdata"
	"craftflip/resolver"
)

type server struct {
	graph   *itemdata.Graph
	client  *bazaar.Client
	flipCfg flip.Config

	mu       sync.RWMutex
	oracle   *bazaar.Oracle
	analyzer *flip.Analyzer
	fetchErr error
}

func main() {
	var (
		addr      = flag.String("addr", envOr("LISTEN_ADDR", ":8080"), "listen address")
		itemsDir  = flag.String("items-dir", envOr("ITEMS_DIR", "dependencies/items"), "directory of per-item recipe JSON files")
		refresh   = flag.Duration("refresh", time.Minute, "bazaar snapshot refresh interval")
		capital   = flag.Float64("max-capital", 800e6, "capital cap on a single flip's total cost")
		minMargin = flag.Float64("min-margin", 1.15, "minimum revenue/cost ratio for a scanned flip to rank")
	)
	flag.Parse()

	graph, err := itemdata.LoadDir(*itemsDir, 8)
	if err != nil {
		log.Fatalf("CRITICAL: loading recipes: %v", err)
	}
	log.Printf("Loaded %d craftable items from %s.", graph.Len(), *itemsDir)

	var rdb *redis.Client
	if redisAddr := os.Getenv("REDIS_ADDR"); redisAddr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: redisAddr})
		log.Printf("Snapshot store enabled at %s.", redisAddr)
	}

	s := &server{
		graph:   graph,
		client:  bazaar.NewClient(os.Getenv("BAZAAR_URL"), rdb),
		flipCfg: flip.Config{MaxCapital: *capital, MinProfitRatio: *minMargin},
	}
	if err := s.refresh(context.Background()); err != nil {
		log.Printf("WARNING: initial bazaar fetch failed: %v", err)
	} else {
		log.Println("Initial bazaar data loaded.")
	}
	go s.refreshLoop(*refresh)

	mux := http.NewServeMux()
	mux.Handle("/api/plan", withCORS(withRecovery(s.planHandler)))
	mux.Handle("/api/flips", withCORS(withRecovery(s.flipsHandler)))

	log.Printf("Listening on %s...", *addr)
	if err := http.ListenAndServe(*addr, mux); err != nil {
		log.Fatalf("CRITICAL: server failed: %v", err)
	}
}

func (s *server) refresh(ctx context.Context) error {
	snap, err := s.client.Fetch(ctx)
	if snap == nil {
		s.mu.Lock()
		s.fetchErr = err
		s.mu.Unlock()
		return err
	}
	bins, binErr := s.client.FetchLowestBins(ctx)
	if binErr != nil {
		log.Printf("WARNING: fetching lowest-BIN prices: %v (auction-only items will be unpriced)", binErr)
	}
	oracle := bazaar.NewOracleWithAuctions(snap, bins, bazaar.DefaultConfig())
	analyzer := flip.NewAnalyzerWithConfig(resolver.New(s.graph, oracle), oracle, s.flipCfg)

	s.mu.Lock()
	s.oracle = oracle
	s.analyzer = analyzer
	s.fetchErr = err
	s.mu.Unlock()
	return err
}

func (s *server) refreshLoop(interval time.Duration) {
	for range time.Tick(interval) {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		if err := s.refresh(ctx); err != nil {
			log.Printf("WARNING: bazaar refresh failed: %v", err)
		}
		cancel()
	}
}

func (s *server) current() (*bazaar.Oracle, *flip.Analyzer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.oracle, s.analyzer, s.fetchErr
}

func (s *server) planHandler(w http.ResponseWriter, r *http.Request) {
	item := r.URL.Query().Get("item")
	if item == "" {
		http.Error(w, "missing item parameter", http.StatusBadRequest)
		return
	}
	qty := 1.0
	if qs := r.URL.Query().Get("qty"); qs != "" {
		parsed, err := strconv.ParseFloat(qs, 64)
		if err != nil || parsed <= 0 {
			http.Error(w, "invalid qty parameter", http.StatusBadRequest)
			return
		}
		qty = parsed
	}

	_, analyzer, fetchErr := s.current()
	if analyzer == nil {
		http.Error(w, "bazaar data unavailable", http.StatusServiceUnavailable)
		return
	}
	if fetchErr != nil {
		w.Header().Set("X-Stale-Data", "true")
	}
	writeJSON(w, analyzer.Analyze(itemdata.NormalizeID(item), qty))
}

func (s *server) flipsHandler(w http.ResponseWriter, r *http.Request) {
	budget := 3600.0
	if ts := r.URL.Query().Get("time_limit_secs"); ts != "" {
		if parsed, err := strconv.ParseFloat(ts, 64); err == nil && parsed > 0 {
			budget = parsed
		} else {
			log.Printf("WARN: invalid time_limit_secs %q, using default %.0fs", ts, budget)
		}
	}
	ceiling := 1e6
	if qs := r.URL.Query().Get("max_qty_search"); qs != "" {
		if parsed, err := strconv.ParseFloat(qs, 64); err == nil && parsed > 0 {
			ceiling = parsed
		}
	}

	oracle, analyzer, fetchErr := s.current()
	if analyzer == nil {
		http.Error(w, "bazaar data unavailable", http.StatusServiceUnavailable)
		return
	}
	if fetchErr != nil {
		w.Header().Set("X-Stale-Data", "true")
	}

	start := time.Now()
	ranked := analyzer.RankFlips(oracle.Items(), budget, ceiling)
	log.Printf("Ranked %d items in %s (budget %.0fs).", len(ranked), time.Since(start), budget)
	writeJSON(w, ranked)
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		http.Error(w, "internal server error during JSON creation", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	if _, err := w.Write(data); err != nil {
		log.Printf("ERROR: writing JSON response: %v", err)
	}
}

func withRecovery(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				log.Printf("PANIC recovered: %v\n%s", rec, debug.Stack())
				http.Error(w, "internal server error", http.StatusInternalServerError)
			}
		}()
		h(w, r)
	}
}

func withCORS(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		if r.Method == http.MethodOptions {
			w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
			w.WriteHeader(http.StatusNoContent)
			return
		}
		h(w, r)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
