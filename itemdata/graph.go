// Package itemdata loads per-item recipe JSON documents into a recipe graph
// the resolver can query. The documents are loosely typed (optional fields,
// string-packed slot values), so extraction goes through gjson rather than
// rigid struct unmarshalling.
package itemdata

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/tidwall/gjson"

	"craftflip/resolver"
)

// Recipe kinds that are not ordinary crafting and must stay out of cost
// analysis.
var excludedKinds = map[string]bool{
	"forge":    true,
	"katgrade": true,
	"trade":    true,
}

// Graph is an in-memory recipe graph keyed by normalized item ID.
type Graph struct {
	recipes map[string][]resolver.Recipe
}

// NewGraph builds a graph from already-parsed recipes, normalizing the keys.
// Used by callers that source recipes from somewhere other than item files.
func NewGraph(recipes map[string][]resolver.Recipe) *Graph {
	g := &Graph{recipes: make(map[string][]resolver.Recipe, len(recipes))}
	for id, recs := range recipes {
		g.recipes[NormalizeID(id)] = recs
	}
	return g
}

// Recipes implements resolver.RecipeGraph.
func (g *Graph) Recipes(itemID string) []resolver.Recipe {
	return g.recipes[NormalizeID(itemID)]
}

// Len reports how many items have at least one usable recipe.
func (g *Graph) Len() int {
	return len(g.recipes)
}

type parsedFile struct {
	id      string
	recipes []resolver.Recipe
	err     error
	name    string
}

// LoadDir reads every .json file under dir with a small worker pool. Files
// that fail to parse are skipped with a warning; they never abort the load.
func LoadDir(dir string, workers int) (*Graph, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading item directory %q: %w", dir, err)
	}
	if workers < 1 {
		workers = 4
	}

	files := make(chan string)
	results := make(chan parsedFile)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for path := range files {
				data, readErr := os.ReadFile(path)
				if readErr != nil {
					results <- parsedFile{err: readErr, name: path}
					continue
				}
				id, recs, parseErr := parseItemFile(data)
				results <- parsedFile{id: id, recipes: recs, err: parseErr, name: path}
			}
		}()
	}
	go func() {
		for _, e := range entries {
			if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
				continue
			}
			files <- filepath.Join(dir, e.Name())
		}
		close(files)
		wg.Wait()
		close(results)
	}()

	g := &Graph{recipes: make(map[string][]resolver.Recipe)}
	skipped := 0
	for res := range results {
		if res.err != nil {
			skipped++
			log.Printf("WARN: skipping item file %s: %v", res.name, res.err)
			continue
		}
		if len(res.recipes) == 0 {
			continue
		}
		g.recipes[res.id] = append(g.recipes[res.id], res.recipes...)
	}
	if skipped > 0 {
		log.Printf("item data: loaded %d craftable items from %s (%d files skipped)", len(g.recipes), dir, skipped)
	}
	return g, nil
}

// parseItemFile extracts the usable crafting recipes from one item document.
// Documents carry either a "recipes" array or a single "recipe" object.
func parseItemFile(data []byte) (string, []resolver.Recipe, error) {
	if !gjson.ValidBytes(data) {
		return "", nil, fmt.Errorf("invalid JSON")
	}
	root := gjson.ParseBytes(data)
	name := root.Get("internalname").String()
	if name == "" {
		return "", nil, fmt.Errorf("missing internalname")
	}
	id := NormalizeID(name)

	var recipes []resolver.Recipe
	if arr := root.Get("recipes"); arr.IsArray() {
		arr.ForEach(func(_, value gjson.Result) bool {
			if rec, ok := parseRecipe(id, value); ok {
				recipes = append(recipes, rec)
			}
			return true
		})
	} else if obj := root.Get("recipe"); obj.Exists() {
		if rec, ok := parseRecipe(id, obj); ok {
			recipes = append(recipes, rec)
		}
	}
	return id, recipes, nil
}

// parseRecipe converts one recipe document into a resolver.Recipe, rejecting
// excluded kinds and recipes that are empty or reference their own output.
func parseRecipe(output string, doc gjson.Result) (resolver.Recipe, bool) {
	if excludedKinds[doc.Get("type").String()] {
		return resolver.Recipe{}, false
	}
	rec := resolver.Recipe{Output: output, OutputCount: doc.Get("count").Float()}
	for i, slot := range resolver.SlotNames {
		cell := strings.TrimSpace(doc.Get(slot).String())
		if cell == "" {
			continue
		}
		ing, qty := parseSlot(cell)
		if ing == "" {
			continue
		}
		rec.Slots[i] = resolver.RecipeSlot{Ingredient: NormalizeID(ing), Quantity: qty}
	}
	if rec.Empty() || rec.SelfReferential() {
		return resolver.Recipe{}, false
	}
	return rec, true
}

// parseSlot splits an "INGREDIENT:COUNT" cell. A count that fails to parse
// falls back to 1; some dumps carry damage-value suffixes in the count
// position and the engines have always tolerated them this way.
func parseSlot(cell string) (string, float64) {
	parts := strings.SplitN(cell, ":", 2)
	ing := strings.TrimSpace(parts[0])
	qty := 1.0
	if len(parts) == 2 {
		if n, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64); err == nil && n > 0 {
			qty = n
		}
	}
	return ing, qty
}
