package resolver

// SlotNames are the nine crafting-grid positions of a recipe, row by row.
var SlotNames = [9]string{"A1", "A2", "A3", "B1", "B2", "B3", "C1", "C2", "C3"}

// RecipeSlot is one grid position. An empty Ingredient means the slot is unused.
type RecipeSlot struct {
	Ingredient string
	Quantity   float64
}

// Recipe describes how one output item is crafted from up to nine grid slots.
// Recipe kinds that are not ordinary crafting (forge, katgrade, trade) never
// reach the resolver; filtering them is the recipe graph's job.
type Recipe struct {
	Output      string
	OutputCount float64 // items produced per craft; <= 0 is treated as 1
	Slots       [9]RecipeSlot
}

// Yield returns the number of items one craft produces. A missing or zero
// count in the source data means a single item.
func (r Recipe) Yield() float64 {
	if r.OutputCount <= 0 {
		return 1
	}
	return r.OutputCount
}

// Ingredients merges the filled slots into per-craft totals keyed by
// ingredient, so an ingredient occupying several slots is resolved once.
func (r Recipe) Ingredients() map[string]float64 {
	merged := make(map[string]float64)
	for _, s := range r.Slots {
		if s.Ingredient == "" || s.Quantity <= 0 {
			continue
		}
		merged[s.Ingredient] += s.Quantity
	}
	return merged
}

// SelfReferential reports whether any slot names the recipe's own output.
// Such a recipe can never be costed and is excluded from analysis.
func (r Recipe) SelfReferential() bool {
	for _, s := range r.Slots {
		if s.Ingredient != "" && s.Ingredient == r.Output {
			return true
		}
	}
	return false
}

// Empty reports whether no slot holds an ingredient.
func (r Recipe) Empty() bool {
	for _, s := range r.Slots {
		if s.Ingredient != "" && s.Quantity > 0 {
			return false
		}
	}
	return true
}
