package resolver

import "math"

const secondsPerHour = 3600

// RawMaterials flattens a plan tree into total demand per directly-acquired
// item: everything that is bought, unpriced, or cycle-terminated. Craft nodes
// contribute nothing themselves; their children already carry quantities
// scaled from the root.
func RawMaterials(root *AcquisitionNode) map[string]float64 {
	out := make(map[string]float64)
	collectRaw(root, out)
	return out
}

func collectRaw(n *AcquisitionNode, out map[string]float64) {
	if n == nil {
		return
	}
	switch n.Strategy {
	case StrategyCraft:
		for _, child := range n.Ingredients {
			collectRaw(child, out)
		}
	case StrategyCycle:
		// An unresolved cycle is counted once, never scaled by the path
		// above it, so a loop cannot inflate the shopping list.
		out[n.ItemID]++
	default:
		out[n.ItemID] += n.Quantity
	}
}

// Bottleneck identifies the raw material expected to take longest to acquire.
type Bottleneck struct {
	ItemID   string
	Quantity float64
	Seconds  float64
}

// FillTimeBottleneck estimates, for each raw material acquired via a resting
// buy order, how long the order takes to fill at the item's hourly instasell
// throughput, and returns the slowest one. Instabought materials fill
// immediately and contribute nothing. A buy-order material without positive
// throughput makes the plan unbounded (+Inf).
func FillTimeBottleneck(raw map[string]float64, oracle PriceOracle) Bottleneck {
	var slowest Bottleneck
	for itemID, qty := range raw {
		if qty <= 0 {
			continue
		}
		quote, ok := oracle.Quote(itemID)
		if !ok || quote.Method != MethodBuyOrder {
			continue
		}
		secs := math.Inf(1)
		if quote.HourlyInstasells > 0 {
			secs = qty / quote.HourlyInstasells * secondsPerHour
		}
		if secs > slowest.Seconds {
			slowest = Bottleneck{ItemID: itemID, Quantity: qty, Seconds: secs}
		}
	}
	return slowest
}

// EstimateFillTime is the scalar view of FillTimeBottleneck.
func EstimateFillTime(raw map[string]float64, oracle PriceOracle) float64 {
	return FillTimeBottleneck(raw, oracle).Seconds
}
