package itemdata

import (
	"strings"
	"sync"
)

// Legacy Minecraft IDs still present in older item dumps, mapped to the IDs
// the bazaar trades under.
var idAliases map[string]string
var idAliasOnce sync.Once

func initIDAliases() {
	idAliases = map[string]string{
		"LOG":        "OAK_LOG",
		"LOG-1":      "SPRUCE_LOG",
		"LOG-2":      "BIRCH_LOG",
		"LOG-3":      "JUNGLE_LOG",
		"LOG_2":      "ACACIA_LOG",
		"LOG_2-0":    "ACACIA_LOG",
		"LOG_2-1":    "DARK_OAK_LOG",
		"WOOD":       "OAK_PLANKS",
		"WOOD-1":     "SPRUCE_PLANKS",
		"WOOD-2":     "BIRCH_PLANKS",
		"WOOD-3":     "JUNGLE_PLANKS",
		"WOOD-4":     "ACACIA_PLANKS",
		"WOOD-5":     "DARK_OAK_PLANKS",
		"INK_SACK":   "INK_SAC",
		"INK_SACK-4": "LAPIS_LAZULI",
	}
}

// NormalizeID upper-cases, trims and de-aliases an item ID so recipe files,
// metrics and the live API all key the same way.
func NormalizeID(id string) string {
	standard := strings.ToUpper(strings.TrimSpace(id))
	idAliasOnce.Do(initIDAliases)
	if normalized, ok := idAliases[standard]; ok {
		return normalized
	}
	return standard
}
