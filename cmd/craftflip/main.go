// Command craftflip resolves the cheapest way to assemble a bazaar item and
// prices the flip, or scans the whole market for the best flips per hour.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/go-redis/redis/v8"

	"craftflip/bazaar"
	"craftflip/flip"
	"craftflip/itemdata"
	"craftflip/resolver"
)

func main() {
	var (
		item       = flag.String("item", "", "item ID to resolve; empty scans the whole market")
		qty        = flag.Float64("qty", 1, "quantity to resolve")
		itemsDir   = flag.String("items-dir", envOr("ITEMS_DIR", "dependencies/items"), "directory of per-item recipe JSON files")
		jsonOut    = flag.Bool("json", false, "emit the analysis as JSON instead of tables")
		budgetSecs = flag.Float64("time-budget", 3600, "total cycle time budget in seconds for the market scan")
		ceiling    = flag.Float64("max-qty", 1e6, "quantity search ceiling for the market scan")
		top        = flag.Int("top", 25, "number of ranked flips to print")
		capital    = flag.Float64("max-capital", 800e6, "capital cap on a single flip's total cost")
		minMargin  = flag.Float64("min-margin", 1.15, "minimum revenue/cost ratio for a scanned flip to rank")
	)
	flag.Parse()

	if *item == "" && flag.NArg() > 0 {
		*item = flag.Arg(0)
	}
	if *qty <= 0 {
		log.Fatalf("CRITICAL: -qty must be positive (got %v)", *qty)
	}

	graph, err := itemdata.LoadDir(*itemsDir, 8)
	if err != nil {
		log.Fatalf("CRITICAL: loading recipes: %v", err)
	}
	log.Printf("Loaded %d craftable items from %s.", graph.Len(), *itemsDir)

	var rdb *redis.Client
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: addr})
	}
	client := bazaar.NewClient(os.Getenv("BAZAAR_URL"), rdb)

	ctx := context.Background()
	snap, err := client.Fetch(ctx)
	if snap == nil {
		log.Fatalf("CRITICAL: fetching bazaar data: %v", err)
	}
	if err != nil {
		log.Printf("WARNING: using cached bazaar snapshot: %v", err)
	}

	bins, err := client.FetchLowestBins(ctx)
	if err != nil {
		log.Printf("WARNING: fetching lowest-BIN prices: %v (auction-only items will be unpriced)", err)
	}

	oracle := bazaar.NewOracleWithAuctions(snap, bins, bazaar.DefaultConfig())
	analyzer := flip.NewAnalyzerWithConfig(resolver.New(graph, oracle), oracle,
		flip.Config{MaxCapital: *capital, MinProfitRatio: *minMargin})

	if *item != "" {
		runSingle(analyzer, itemdata.NormalizeID(*item), *qty, *jsonOut)
		return
	}
	runScan(analyzer, oracle, *budgetSecs, *ceiling, *top, *jsonOut)
}

func runSingle(analyzer *flip.Analyzer, item string, qty float64, jsonOut bool) {
	result := analyzer.Analyze(item, qty)
	if jsonOut {
		emitJSON(result)
		return
	}

	fmt.Printf("\nAcquisition plan for %.2f x %s:\n", qty, item)
	printTree(result.Plan, 0)

	fmt.Println("\nRaw materials:")
	names := make([]string, 0, len(result.RawMaterials))
	for name := range result.RawMaterials {
		names = append(names, name)
	}
	sort.Strings(names)
	w := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
	for _, name := range names {
		fmt.Fprintf(w, "  %s\tx%s\n", name, trimQty(result.RawMaterials[name]))
	}
	w.Flush()

	fmt.Printf("\nTotal cost:      %s\n", formatCost(float64(result.Cost)))
	fmt.Printf("Revenue:         %s\n", formatCost(float64(result.Revenue)))
	fmt.Printf("Profit:          %s\n", formatCost(float64(result.Profit)))
	fmt.Printf("Profit/hour:     %s\n", formatCost(float64(result.ProfitPerHour)))
	fmt.Printf("Acquisition:     %s", formatSeconds(float64(result.AcquisitionSeconds)))
	if result.BottleneckItem != "" {
		fmt.Printf("  (bottleneck: %s x%s)", result.BottleneckItem, trimQty(result.BottleneckQty))
	}
	fmt.Printf("\nSale:            %s\n", formatSeconds(float64(result.SaleSeconds)))
	fmt.Printf("Total cycle:     %s\n", formatSeconds(float64(result.CycleSeconds)))
}

func runScan(analyzer *flip.Analyzer, oracle *bazaar.Oracle, budget, ceiling float64, top int, jsonOut bool) {
	log.Printf("Scanning %d bazaar items (time budget %s)...", len(oracle.Items()), formatSeconds(budget))
	ranked := analyzer.RankFlips(oracle.Items(), budget, ceiling)
	if top > 0 && len(ranked) > top {
		ranked = ranked[:top]
	}
	if jsonOut {
		emitJSON(ranked)
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ITEM\tQTY\tPROFIT\tPROFIT/H\tCYCLE\tBOTTLENECK")
	for _, r := range ranked {
		if !r.Possible {
			continue
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			r.ItemID, trimQty(r.Quantity),
			formatCost(float64(r.Profit)), formatCost(float64(r.ProfitPerHour)),
			formatSeconds(float64(r.CycleSeconds)), r.BottleneckItem)
	}
	w.Flush()
}

func printTree(n *resolver.AcquisitionNode, depth int) {
	if n == nil {
		return
	}
	fmt.Printf("%s- %s x%s  [%s]  %s\n",
		strings.Repeat("  ", depth), n.ItemID, trimQty(n.Quantity), n.Strategy, formatCost(n.TotalCost()))
	for _, child := range n.Ingredients {
		printTree(child, depth+1)
	}
}

func emitJSON(v interface{}) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		log.Fatalf("CRITICAL: marshaling output: %v", err)
	}
	fmt.Println(string(data))
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func trimQty(q float64) string {
	if q == math.Trunc(q) {
		return fmt.Sprintf("%.0f", q)
	}
	return fmt.Sprintf("%.2f", q)
}

func formatCost(cost float64) string {
	switch {
	case math.IsNaN(cost):
		return "N/A"
	case math.IsInf(cost, 1):
		return "Infinite"
	case math.Abs(cost) >= 1e6:
		return fmt.Sprintf("%.2fM", cost/1e6)
	case math.Abs(cost) >= 1e3:
		return fmt.Sprintf("%.1fK", cost/1e3)
	default:
		return fmt.Sprintf("%.2f", cost)
	}
}

func formatSeconds(sec float64) string {
	switch {
	case math.IsNaN(sec):
		return "N/A"
	case math.IsInf(sec, 1):
		return "Infinite"
	case sec < 60:
		return fmt.Sprintf("%.1fs", sec)
	case sec < 3600:
		return fmt.Sprintf("%.1fm", sec/60)
	case sec < 86400:
		return fmt.Sprintf("%.1fh", sec/3600)
	default:
		return fmt.Sprintf("%.1fd", sec/86400)
	}
}
