// Package registry loads the two catalog sources the limiter derives its
// category set from: the deployable-item registry and the structural-prefab
// registry. Both are JSON documents shipped in the config directory and are
// validated against their schemas before use.
package registry

import (
	"crypto/sha256"
	_ "embed"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed items.schema.json
var itemsSchemaJSON string

//go:embed prefabs.schema.json
var prefabsSchemaJSON string

type Registry struct {
	Items   ItemRegistry
	Prefabs PrefabRegistry
}

type ItemRegistry struct {
	// Defs preserves file order; duplicate resolution is first-wins.
	Defs   []ItemDef
	Digest string
}

type ItemDef struct {
	ItemID string `json:"item_id"`
	Name   string `json:"name,omitempty"`
	// Deployable is the prefab path of the entity this item deploys.
	// Empty for items without a deployable capability.
	Deployable string `json:"deployable,omitempty"`
}

type PrefabRegistry struct {
	Defs   []PrefabDef
	Digest string
}

type PrefabDef struct {
	PrefabName    string `json:"prefab_name"`
	BuildingBlock bool   `json:"building_block"`
}

func Load(configDir string) (*Registry, error) {
	var r Registry
	if err := loadItems(filepath.Join(configDir, "items.json"), &r.Items); err != nil {
		return nil, err
	}
	if err := loadPrefabs(filepath.Join(configDir, "prefabs.json"), &r.Prefabs); err != nil {
		return nil, err
	}
	return &r, nil
}

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func loadItems(path string, out *ItemRegistry) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	out.Digest = sha256Hex(raw)

	if err := validate("items.schema.json", itemsSchemaJSON, raw); err != nil {
		return fmt.Errorf("items.json: %w", err)
	}
	if err := json.Unmarshal(raw, &out.Defs); err != nil {
		return fmt.Errorf("items.json: %w", err)
	}
	for _, d := range out.Defs {
		if d.ItemID == "" {
			return fmt.Errorf("items.json: empty item_id")
		}
	}
	return nil
}

func loadPrefabs(path string, out *PrefabRegistry) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	out.Digest = sha256Hex(raw)

	if err := validate("prefabs.schema.json", prefabsSchemaJSON, raw); err != nil {
		return fmt.Errorf("prefabs.json: %w", err)
	}
	if err := json.Unmarshal(raw, &out.Defs); err != nil {
		return fmt.Errorf("prefabs.json: %w", err)
	}
	for _, d := range out.Defs {
		if d.PrefabName == "" {
			return fmt.Errorf("prefabs.json: empty prefab_name")
		}
	}
	return nil
}

func validate(name, schemaSrc string, raw []byte) error {
	sch, err := jsonschema.CompileString(name, schemaSrc)
	if err != nil {
		return fmt.Errorf("compile %s: %w", name, err)
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return err
	}
	return sch.Validate(doc)
}
