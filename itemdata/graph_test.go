package itemdata

import (
	"os"
	"path/filepath"
	"testing"
)

func writeItemFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	writeItemFile(t, dir, "enchanted_bread.json", `{
		"internalname": "ENCHANTED_BREAD",
		"recipe": {"A1": "WHEAT:32", "A2": "WHEAT:28"}
	}`)
	writeItemFile(t, dir, "hyper_catalyst.json", `{
		"internalname": "HYPER_CATALYST",
		"recipes": [
			{"type": "forge", "A1": "GEMSTONE:8"},
			{"A1": "CATALYST:8", "B2": "HYPER_X:1", "count": 2}
		]
	}`)
	writeItemFile(t, dir, "loop.json", `{
		"internalname": "LOOP",
		"recipe": {"A1": "LOOP:1"}
	}`)
	writeItemFile(t, dir, "broken.json", `{not json at all`)
	writeItemFile(t, dir, "readme.txt", `ignored`)

	g, err := LoadDir(dir, 2)
	if err != nil {
		t.Fatalf("LoadDir: %v", err)
	}
	if g.Len() != 2 {
		t.Fatalf("loaded %d items, want 2 (self-referential and broken files dropped)", g.Len())
	}

	bread := g.Recipes("ENCHANTED_BREAD")
	if len(bread) != 1 {
		t.Fatalf("ENCHANTED_BREAD recipes = %d, want 1", len(bread))
	}
	if got := bread[0].Ingredients(); got["WHEAT"] != 60 {
		t.Errorf("WHEAT demand = %v, want 60 (merged slots)", got["WHEAT"])
	}
	if bread[0].Yield() != 1 {
		t.Errorf("missing count should yield 1, got %v", bread[0].Yield())
	}

	cat := g.Recipes("HYPER_CATALYST")
	if len(cat) != 1 {
		t.Fatalf("HYPER_CATALYST recipes = %d, want 1 (forge recipe excluded)", len(cat))
	}
	if cat[0].Yield() != 2 {
		t.Errorf("yield = %v, want 2", cat[0].Yield())
	}
	ings := cat[0].Ingredients()
	if ings["CATALYST"] != 8 || ings["HYPER_X"] != 1 {
		t.Errorf("ingredients = %v", ings)
	}

	if recs := g.Recipes("LOOP"); recs != nil {
		t.Errorf("self-referential recipe survived: %v", recs)
	}
}

func TestLoadDirNormalizesIDs(t *testing.T) {
	dir := t.TempDir()
	writeItemFile(t, dir, "log.json", `{
		"internalname": "log",
		"recipe": {"A1": "WOOD:4"}
	}`)

	g, err := LoadDir(dir, 1)
	if err != nil {
		t.Fatalf("LoadDir: %v", err)
	}
	recs := g.Recipes("LOG")
	if len(recs) != 1 {
		t.Fatalf("lookup via alias failed: %v", recs)
	}
	if recs[0].Output != "OAK_LOG" {
		t.Errorf("output = %q, want normalized OAK_LOG", recs[0].Output)
	}
	if _, ok := recs[0].Ingredients()["OAK_PLANKS"]; !ok {
		t.Errorf("slot ingredient not de-aliased: %v", recs[0].Ingredients())
	}
}

func TestLoadDirMissingDirectory(t *testing.T) {
	if _, err := LoadDir(filepath.Join(t.TempDir(), "nope"), 1); err == nil {
		t.Error("expected error for missing directory")
	}
}

func TestParseSlotLenientCounts(t *testing.T) {
	cases := []struct {
		cell    string
		wantIng string
		wantQty float64
	}{
		{"WHEAT:60", "WHEAT", 60},
		{"WHEAT", "WHEAT", 1},
		{"WHEAT:zero", "WHEAT", 1},
		{"WHEAT:-3", "WHEAT", 1},
		{" DIAMOND : 2 ", "DIAMOND", 2},
	}
	for _, c := range cases {
		ing, qty := parseSlot(c.cell)
		if ing != c.wantIng || qty != c.wantQty {
			t.Errorf("parseSlot(%q) = (%q, %v), want (%q, %v)", c.cell, ing, qty, c.wantIng, c.wantQty)
		}
	}
}
