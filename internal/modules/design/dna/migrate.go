package dna

import (
	"math"
)

// Migrate rewrites a raw design context persisted under an older schema
// version into the current key layout. It returns a new map; the input is
// not mutated. Unknown or missing versions are treated as current, since the
// normalizer already absorbs loose typing.
func Migrate(raw map[string]any) map[string]any {
	out := make(map[string]any, len(raw))
	for k, v := range raw {
		out[k] = v
	}
	version := schemaVersionOf(out)
	if version >= 2 {
		return out
	}
	return migrateV1(out)
}

// migrateV1 upgrades schema v1 records: "storeys" became "floor_count",
// "facing" became "entrance", and rooms carried "size" instead of "area".
func migrateV1(raw map[string]any) map[string]any {
	if v, ok := raw["storeys"]; ok {
		if _, exists := raw["floor_count"]; !exists {
			raw["floor_count"] = v
		}
		delete(raw, "storeys")
	}
	if v, ok := raw["facing"]; ok {
		if _, exists := raw["entrance"]; !exists {
			raw["entrance"] = v
		}
		delete(raw, "facing")
	}
	if rooms, ok := raw["rooms"].([]any); ok {
		migrated := make([]any, 0, len(rooms))
		for _, item := range rooms {
			m, ok := item.(map[string]any)
			if !ok {
				migrated = append(migrated, item)
				continue
			}
			room := make(map[string]any, len(m))
			for k, v := range m {
				room[k] = v
			}
			if v, ok := room["size"]; ok {
				if _, exists := room["area"]; !exists {
					room["area"] = v
				}
				delete(room, "size")
			}
			migrated = append(migrated, room)
		}
		raw["rooms"] = migrated
	}
	raw["schema_version"] = 2
	return raw
}

func schemaVersionOf(raw map[string]any) int {
	v, ok := raw["schema_version"]
	if !ok {
		return 2
	}
	switch t := v.(type) {
	case int:
		return t
	case float64:
		if math.IsNaN(t) {
			return 2
		}
		return int(t)
	default:
		if f, ok := coerceFloat(v); ok {
			return int(f)
		}
		return 2
	}
}
