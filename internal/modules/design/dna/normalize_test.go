package dna

import (
	"errors"
	"testing"

	"github.com/yungbote/archsheet-backend/internal/domain"
)

func TestNormalizePassthrough(t *testing.T) {
	raw := map[string]any{
		"length":      12.0,
		"width":       8.0,
		"height":      6.4,
		"floor_count": 2,
		"materials":   []any{"brick"},
		"entrance":    "N",
	}
	got, err := Normalize(raw)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if got.Length != 12 || got.Width != 8 || got.Height != 6.4 || got.FloorCount != 2 {
		t.Fatalf("dimensions changed: %+v", got)
	}
	if len(got.Materials) != 1 || got.Materials[0].Finish != "brick" || got.Materials[0].Surface != "facade" {
		t.Fatalf("materials: %+v", got.Materials)
	}
	if got.Entrance != "N" {
		t.Fatalf("entrance: %q", got.Entrance)
	}
	if got.Style != domain.DefaultStyle {
		t.Fatalf("style default: %q", got.Style)
	}
	if got.SchemaVersion != domain.CurrentSchemaVersion {
		t.Fatalf("schema version: %d", got.SchemaVersion)
	}
}

func TestNormalizeCoercesStringsAndAliases(t *testing.T) {
	raw := map[string]any{
		"len":       "12.5",
		"width":     "8",
		"floors":    "3",
		"height":    "9.6",
		"material":  "timber",
		"style":     "Brutalist",
		"entrance":  " se ",
		"rooms":     []any{map[string]any{"name": "Kitchen", "area": "14.5", "floor": 0}},
	}
	got, err := Normalize(raw)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if got.Length != 12.5 || got.Width != 8 || got.FloorCount != 3 || got.Height != 9.6 {
		t.Fatalf("coercion: %+v", got)
	}
	if got.Style != "brutalist" {
		t.Fatalf("style: %q", got.Style)
	}
	if got.Entrance != "SE" {
		t.Fatalf("entrance: %q", got.Entrance)
	}
	if len(got.Spaces) != 1 || got.Spaces[0].Name != "kitchen" || got.Spaces[0].Area != 14.5 {
		t.Fatalf("spaces: %+v", got.Spaces)
	}
}

func TestNormalizeDefaultsHeight(t *testing.T) {
	got, err := Normalize(map[string]any{"length": 10, "width": 10, "floor_count": 2})
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if got.Height != 6.0 {
		t.Fatalf("default height: %v", got.Height)
	}
}

func TestNormalizeRequiredFieldMissing(t *testing.T) {
	cases := []map[string]any{
		nil,
		{"width": 8, "floor_count": 2},
		{"length": 12, "floor_count": 2},
		{"length": 12, "width": 8},
		{"length": "tall", "width": 8, "floor_count": 2},
	}
	for i, raw := range cases {
		_, err := Normalize(raw)
		var se *SchemaError
		if !errors.As(err, &se) {
			t.Fatalf("case %d: want SchemaError, got %v", i, err)
		}
	}
}

func TestNormalizeMaterialObjects(t *testing.T) {
	raw := map[string]any{
		"length": 12, "width": 8, "floor_count": 2,
		"materials": []any{
			map[string]any{"surface": "Roof", "finish": "Slate"},
			map[string]any{"name": "trim", "color": "#FFFFFF"},
		},
	}
	got, err := Normalize(raw)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if len(got.Materials) != 2 {
		t.Fatalf("materials: %+v", got.Materials)
	}
	if got.Materials[0].Surface != "roof" || got.Materials[0].Finish != "slate" {
		t.Fatalf("materials[0]: %+v", got.Materials[0])
	}
	if got.Materials[1].Surface != "trim" || got.Materials[1].Finish != "#ffffff" {
		t.Fatalf("materials[1]: %+v", got.Materials[1])
	}
}

func TestMigrateV1Keys(t *testing.T) {
	raw := map[string]any{
		"schema_version": 1,
		"length":         12, "width": 8,
		"storeys": 2,
		"facing":  "E",
		"rooms":   []any{map[string]any{"name": "study", "size": 9.0}},
	}
	got, err := Normalize(raw)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if got.FloorCount != 2 {
		t.Fatalf("storeys migration: %+v", got)
	}
	if got.Entrance != "E" {
		t.Fatalf("facing migration: %q", got.Entrance)
	}
	if len(got.Spaces) != 1 || got.Spaces[0].Area != 9.0 {
		t.Fatalf("rooms size migration: %+v", got.Spaces)
	}
	if raw["schema_version"] != 1 {
		t.Fatalf("input mutated: %v", raw["schema_version"])
	}
}
