// Package catalog derives the set of quota-eligible categories from the
// item and prefab registries. A category key is what a live world object
// reports about itself: the deployed entity's prefab path for deployable
// items, or the prefab name for building blocks.
package catalog

import (
	"strings"

	"advancedentitylimit/internal/registry"
)

// Curved stair variants collapse into the straight variant; counting them
// separately would split one conceptual category across several keys.
var excludedPrefabSubstrings = []string{
	"stairs.spiral",
	"stairs.u",
	"stairs.l",
}

// A few prefabs ship with a sprite whose name does not match the prefab.
var spriteCorrections = map[string]string{
	"assets/prefabs/building core/wall.low/wall.low.png": "assets/prefabs/building core/wall.low/wall.third.png",
}

// Build maps every discovered category key to its display icon identifier.
// Item scan comes first and wins on key collisions; within each scan the
// first occurrence wins.
func Build(reg *registry.Registry) map[string]string {
	out := make(map[string]string)

	for _, item := range reg.Items.Defs {
		if item.Deployable == "" {
			continue
		}
		if _, ok := out[item.Deployable]; ok {
			continue
		}
		out[item.Deployable] = item.ItemID
	}

	for _, p := range reg.Prefabs.Defs {
		if !p.BuildingBlock {
			continue
		}
		if isExcluded(p.PrefabName) {
			continue
		}
		if _, ok := out[p.PrefabName]; ok {
			continue
		}
		out[p.PrefabName] = correctSprite(spriteName(p.PrefabName))
	}

	return out
}

func isExcluded(prefabName string) bool {
	for _, sub := range excludedPrefabSubstrings {
		if strings.Contains(prefabName, sub) {
			return true
		}
	}
	return false
}

func spriteName(prefabName string) string {
	return strings.ReplaceAll(prefabName, ".prefab", ".png")
}

func correctSprite(sprite string) string {
	if fixed, ok := spriteCorrections[sprite]; ok {
		return fixed
	}
	return sprite
}
