package dna

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/yungbote/archsheet-backend/internal/domain"
)

// SchemaError reports a required field that is absent or uncoercible. It is
// deterministic and never retried.
type SchemaError struct {
	Field string
	Err   error
}

func (e *SchemaError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("dna schema: field %q: %v", e.Field, e.Err)
	}
	return fmt.Sprintf("dna schema: field %q is required", e.Field)
}

func (e *SchemaError) Unwrap() error { return e.Err }

// Hard plausibility ceilings applied during coercion. The validator owns the
// configurable ranges; these only stop absurd inputs from propagating.
const (
	maxDimensionMeters = 1000.0
	maxFloorCount      = 200
)

// Surfaces assigned, in order, to materials given as bare finish strings.
var defaultSurfaces = []string{"facade", "roof", "trim", "window", "door"}

// Normalize coerces a loosely-typed design context into a strict DesignDNA.
// Numbers may arrive as strings, materials as a single string or a list of
// strings or objects, and optional fields may be missing. Pure function: the
// input map is not mutated.
func Normalize(raw map[string]any) (domain.DesignDNA, error) {
	var out domain.DesignDNA
	if raw == nil {
		return out, &SchemaError{Field: "length"}
	}
	raw = Migrate(raw)

	length, ok := coerceFloat(lookup(raw, "length", "len", "footprint_length"))
	if !ok {
		return out, &SchemaError{Field: "length"}
	}
	width, ok := coerceFloat(lookup(raw, "width", "footprint_width"))
	if !ok {
		return out, &SchemaError{Field: "width"}
	}
	floors, ok := coerceInt(lookup(raw, "floor_count", "floors"))
	if !ok {
		return out, &SchemaError{Field: "floor_count"}
	}

	out.Length = clampDim(length)
	out.Width = clampDim(width)
	out.FloorCount = clampFloors(floors)

	if h, ok := coerceFloat(lookup(raw, "height")); ok {
		out.Height = clampDim(h)
	} else {
		// Missing height defaults to a nominal 3m per floor.
		out.Height = 3.0 * float64(out.FloorCount)
	}

	out.Materials = coerceMaterials(lookup(raw, "materials", "material"))
	out.Spaces = coerceSpaces(lookup(raw, "spaces", "program_spaces", "rooms"))

	if s, ok := coerceString(lookup(raw, "style")); ok {
		out.Style = strings.ToLower(s)
	} else {
		out.Style = domain.DefaultStyle
	}
	if e, ok := coerceString(lookup(raw, "entrance", "orientation")); ok {
		out.Entrance = strings.ToUpper(strings.TrimSpace(e))
	} else {
		out.Entrance = domain.DefaultEntrance
	}

	out.SchemaVersion = domain.CurrentSchemaVersion
	return out, nil
}

func lookup(raw map[string]any, keys ...string) any {
	for _, k := range keys {
		if v, ok := raw[k]; ok && v != nil {
			return v
		}
	}
	return nil
}

func coerceFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return 0, false
		}
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case json5Number:
		f, err := t.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// json5Number lets callers hand in encoding/json.Number without this package
// importing it at every call site.
type json5Number interface{ Float64() (float64, error) }

func coerceInt(v any) (int, bool) {
	f, ok := coerceFloat(v)
	if !ok {
		return 0, false
	}
	return int(math.Round(f)), true
}

func coerceString(v any) (string, bool) {
	s, ok := v.(string)
	s = strings.TrimSpace(s)
	if !ok || s == "" {
		return "", false
	}
	return s, true
}

func coerceMaterials(v any) []domain.Material {
	var out []domain.Material
	appendOne := func(item any, idx int) {
		switch t := item.(type) {
		case string:
			finish := strings.ToLower(strings.TrimSpace(t))
			if finish == "" {
				return
			}
			surface := fmt.Sprintf("surface_%d", idx)
			if idx < len(defaultSurfaces) {
				surface = defaultSurfaces[idx]
			}
			out = append(out, domain.Material{Surface: surface, Finish: finish})
		case map[string]any:
			surface, _ := coerceString(lookup(t, "surface", "name"))
			finish, _ := coerceString(lookup(t, "finish", "color", "texture", "value"))
			if surface == "" || finish == "" {
				return
			}
			out = append(out, domain.Material{
				Surface: strings.ToLower(surface),
				Finish:  strings.ToLower(finish),
			})
		}
	}
	switch t := v.(type) {
	case nil:
	case string:
		appendOne(t, 0)
	case []any:
		for i, item := range t {
			appendOne(item, i)
		}
	case []string:
		for i, item := range t {
			appendOne(item, i)
		}
	}
	return out
}

func coerceSpaces(v any) []domain.ProgramSpace {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	var out []domain.ProgramSpace
	for _, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		name, ok := coerceString(lookup(m, "name"))
		if !ok {
			continue
		}
		area, ok := coerceFloat(lookup(m, "area"))
		if !ok || area <= 0 {
			continue
		}
		floor, _ := coerceInt(lookup(m, "floor", "level"))
		out = append(out, domain.ProgramSpace{
			Name:  strings.ToLower(name),
			Area:  area,
			Floor: floor,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Floor != out[j].Floor {
			return out[i].Floor < out[j].Floor
		}
		return out[i].Name < out[j].Name
	})
	return out
}

func clampDim(v float64) float64 {
	if v > maxDimensionMeters {
		return maxDimensionMeters
	}
	return v
}

func clampFloors(v int) int {
	if v > maxFloorCount {
		return maxFloorCount
	}
	return v
}
