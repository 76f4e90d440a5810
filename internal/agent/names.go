package agent

import "strings"

// blockNames maps the Spanish names players use for common blocks and items
// to their game identifiers.
var blockNames = map[string]string{
	"piedra":           "stone",
	"roca":             "stone",
	"adoquin":          "cobblestone",
	"roca_profunda":    "deepslate",
	"granito":          "granite",
	"diorita":          "diorite",
	"andesita":         "andesite",
	"tierra":           "dirt",
	"cesped":           "grass_block",
	"hierba":           "grass_block",
	"arena":            "sand",
	"grava":            "gravel",
	"arcilla":          "clay",
	"nieve":            "snow_block",
	"madera":           "oak_log",
	"tronco":           "oak_log",
	"roble":            "oak_log",
	"abedul":           "birch_log",
	"abeto":            "spruce_log",
	"tablones":         "oak_planks",
	"tablas":           "oak_planks",
	"palo":             "stick",
	"palos":            "stick",
	"carbon":           "coal_ore",
	"mineral_carbon":   "coal_ore",
	"mineral_hierro":   "iron_ore",
	"mineral_oro":      "gold_ore",
	"mineral_diamante": "diamond_ore",
	"redstone":         "redstone_ore",
	"obsidiana":        "obsidian",
	"pan":              "bread",
	"manzana":          "apple",
	"zanahoria":        "carrot",
	"patata_asada":     "baked_potato",
	"filete":           "cooked_beef",
	"chuleta":          "cooked_porkchop",
	"antorcha":         "torch",
	"mesa_de_trabajo":  "crafting_table",
	"cofre":            "chest",
	"diamante":         "diamond",
	"hierro":           "iron_ingot",
	"oro":              "gold_ingot",
	"espada":           "iron_sword",
	"pico":             "diamond_pickaxe",
	"hacha":            "diamond_axe",
	"pala":             "diamond_shovel",
	"mechero":          "flint_and_steel",
	"cubo":             "bucket",
	"cubo_de_agua":     "water_bucket",
}

// blockName lowercases name and translates it when it is a known Spanish
// name. Unknown names pass through.
func blockName(name string) string {
	n := strings.ToLower(strings.TrimSpace(name))
	if en, ok := blockNames[n]; ok {
		return en
	}
	return n
}
