package flip

import (
	"math"
	"sort"
)

// maxSearchIterations bounds the binary search; 50 halvings cover any sane
// quantity ceiling many times over.
const maxSearchIterations = 50

// MaxQuantityWithin finds the largest whole quantity of itemID whose total
// cycle time (acquisition bottleneck + sale) fits budgetSeconds and whose
// total cost stays under the capital cap, searching up to ceiling units.
// Returns 0 when even a single unit does not fit.
func (a *Analyzer) MaxQuantityWithin(itemID string, budgetSeconds, ceiling float64) float64 {
	if ceiling < 1 {
		return 0
	}
	low, high := 1.0, math.Floor(ceiling)
	best := 0.0
	for i := 0; i < maxSearchIterations && low <= high; i++ {
		mid := math.Floor(low + (high-low)/2)
		result := a.Analyze(itemID, mid)
		cycle := float64(result.CycleSeconds)
		if result.Possible && cycle <= budgetSeconds && float64(result.Cost) <= a.cfg.MaxCapital {
			best = mid
			low = mid + 1
		} else {
			high = mid - 1
		}
	}
	return best
}

// RankFlips analyzes every item at its best feasible quantity under the time
// budget and orders the results: feasible flips first, then by profit per
// hour descending, unknowns last, item ID as the final tie-break. Flips whose
// margin falls short of MinProfitRatio are kept in the output but ranked as
// not possible.
func (a *Analyzer) RankFlips(itemIDs []string, budgetSeconds, ceiling float64) []Analysis {
	results := make([]Analysis, 0, len(itemIDs))
	for _, id := range itemIDs {
		qty := a.MaxQuantityWithin(id, budgetSeconds, ceiling)
		if qty < 1 {
			infeasible := a.Analyze(id, 1)
			infeasible.Possible = false
			infeasible.Plan = nil
			results = append(results, infeasible)
			continue
		}
		result := a.Analyze(id, qty)
		result.Plan = nil // trees for a full-market scan are pure ballast
		if float64(result.Revenue) < float64(result.Cost)*a.cfg.MinProfitRatio {
			result.Possible = false
		}
		results = append(results, result)
	}

	sort.Slice(results, func(i, j int) bool {
		ri, rj := results[i], results[j]
		if ri.Possible != rj.Possible {
			return ri.Possible
		}
		pi, pj := float64(ri.ProfitPerHour), float64(rj.ProfitPerHour)
		iNaN, jNaN := math.IsNaN(pi), math.IsNaN(pj)
		if iNaN != jNaN {
			return jNaN
		}
		if !iNaN && pi != pj {
			return pi > pj
		}
		return ri.ItemID < rj.ItemID
	})
	return results
}
