package validate

import (
	"testing"

	"github.com/yungbote/archsheet-backend/internal/domain"
)

func validDNA() domain.DesignDNA {
	return domain.DesignDNA{
		SchemaVersion: domain.CurrentSchemaVersion,
		Length:        12, Width: 8, Height: 6.4, FloorCount: 2,
		Materials: []domain.Material{{Surface: "facade", Finish: "brick"}},
		Style:     "contemporary",
		Entrance:  "N",
	}
}

func TestValidateScenarioA(t *testing.T) {
	res := Validate(validDNA(), DefaultConfig())
	if !res.IsValid {
		t.Fatalf("expected valid, got errors: %+v", res.Errors)
	}
	if len(res.Warnings) != 0 {
		t.Fatalf("unexpected warnings: %+v", res.Warnings)
	}
}

func TestValidateFloorHeightError(t *testing.T) {
	d := validDNA()
	d.Height = 1.5 // 0.75m per floor
	res := Validate(d, DefaultConfig())
	if res.IsValid {
		t.Fatalf("expected invalid")
	}
	found := false
	for _, is := range res.Errors {
		if is.Rule == "floor_height_range" && is.Field == "height" {
			found = true
		}
	}
	if !found {
		t.Fatalf("missing floor_height_range error: %+v", res.Errors)
	}
}

func TestValidateEntranceEnum(t *testing.T) {
	d := validDNA()
	d.Entrance = "NNE"
	res := Validate(d, DefaultConfig())
	if res.IsValid {
		t.Fatalf("expected invalid entrance to be an error")
	}
}

func TestValidateMaterialsRequired(t *testing.T) {
	d := validDNA()
	d.Materials = nil
	res := Validate(d, DefaultConfig())
	if res.IsValid {
		t.Fatalf("expected empty materials to be an error")
	}
}

func TestValidateFinishContrastWarning(t *testing.T) {
	d := validDNA()
	d.Materials = []domain.Material{
		{Surface: "facade", Finish: "#aabbcc"},
		{Surface: "trim", Finish: "#aabbcd"},
	}
	res := Validate(d, DefaultConfig())
	if !res.IsValid {
		t.Fatalf("contrast must be a warning, got errors: %+v", res.Errors)
	}
	if len(res.Warnings) == 0 {
		t.Fatalf("expected finish_contrast warning")
	}
}

func TestValidateProgramAreaWarning(t *testing.T) {
	d := validDNA()
	// Floor area is 192m2; 40m2 of spaces is far outside the 30% budget.
	d.Spaces = []domain.ProgramSpace{{Name: "studio", Area: 40, Floor: 0}}
	res := Validate(d, DefaultConfig())
	if !res.IsValid {
		t.Fatalf("program budget must warn, not error: %+v", res.Errors)
	}
	if len(res.Warnings) == 0 {
		t.Fatalf("expected program_area_budget warning")
	}
}

func TestAutoFixRaisesHeightToMinimum(t *testing.T) {
	cfg := DefaultConfig()
	d := validDNA()
	d.Height = 1.5
	fixed := AutoFix(d, cfg)
	if fixed.Height != cfg.FloorHeightMin*2 {
		t.Fatalf("height: got %v want %v", fixed.Height, cfg.FloorHeightMin*2)
	}
	if d.Height != 1.5 {
		t.Fatalf("input mutated")
	}
	res := Validate(fixed, cfg)
	if !res.IsValid {
		t.Fatalf("fixed record still invalid: %+v", res.Errors)
	}
}

func TestAutoFixClampsFootprintPreservingAspect(t *testing.T) {
	cfg := DefaultConfig()
	d := validDNA()
	d.Length = 120
	d.Width = 80 // 9600m2, above the 2000m2 ceiling
	fixed := AutoFix(d, cfg)
	area := fixed.FootprintArea()
	if area > cfg.FootprintAreaMax*1.01 {
		t.Fatalf("area not clamped: %v", area)
	}
	ratio := fixed.Length / fixed.Width
	if ratio < 1.49 || ratio > 1.51 {
		t.Fatalf("aspect ratio not preserved: %v", ratio)
	}
}

func TestAutoFixDefaultsEntrance(t *testing.T) {
	d := validDNA()
	d.Entrance = ""
	fixed := AutoFix(d, DefaultConfig())
	if fixed.Entrance != domain.DefaultEntrance {
		t.Fatalf("entrance: %q", fixed.Entrance)
	}
}

func TestAutoFixNeverTouchesMaterials(t *testing.T) {
	d := validDNA()
	d.Materials = []domain.Material{{Surface: "facade", Finish: "#000000"}, {Surface: "trim", Finish: "#000000"}}
	fixed := AutoFix(d, DefaultConfig())
	if len(fixed.Materials) != 2 || fixed.Materials[0].Finish != "#000000" {
		t.Fatalf("materials changed: %+v", fixed.Materials)
	}
}
