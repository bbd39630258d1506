package drift

import (
	"testing"

	"github.com/yungbote/archsheet-backend/internal/domain"
)

func baselineDNA() domain.DesignDNA {
	return domain.DesignDNA{
		SchemaVersion: domain.CurrentSchemaVersion,
		Length:        12, Width: 8, Height: 6.4, FloorCount: 2,
		Materials: []domain.Material{
			{Surface: "facade", Finish: "brick"},
			{Surface: "roof", Finish: "tile"},
		},
		Style:    "contemporary",
		Entrance: "N",
		Spaces: []domain.ProgramSpace{
			{Name: "kitchen", Area: 14, Floor: 0},
			{Name: "study", Area: 9, Floor: 1},
		},
	}
}

func TestCompareDNANoChange(t *testing.T) {
	b := baselineDNA()
	deltas := CompareDNA(b, b.Clone(), nil, DefaultConfig())
	if len(deltas) != 0 {
		t.Fatalf("unexpected deltas: %+v", deltas)
	}
}

func TestCompareDNAExpectedRoofChangeExcluded(t *testing.T) {
	b := baselineDNA()
	c := b.Clone()
	c.Materials[1].Finish = "slate"
	deltas := CompareDNA(b, c, []string{"roof"}, DefaultConfig())
	if len(deltas) != 0 {
		t.Fatalf("roof change named in affected regions must be excluded, got %+v", deltas)
	}
}

func TestCompareDNAUnintendedFacadeChange(t *testing.T) {
	b := baselineDNA()
	c := b.Clone()
	c.Materials[1].Finish = "slate"  // requested
	c.Materials[0].Finish = "render" // unintended
	deltas := CompareDNA(b, c, []string{"roof"}, DefaultConfig())
	if len(deltas) != 1 {
		t.Fatalf("want exactly the facade delta, got %+v", deltas)
	}
	if deltas[0].Field != "materials.facade" || deltas[0].After != "render" {
		t.Fatalf("delta: %+v", deltas[0])
	}
}

func TestCompareDNANumericTolerance(t *testing.T) {
	cfg := DefaultConfig()
	b := baselineDNA()

	c := b.Clone()
	c.Length = 12.6 // 5%, inside the 10% tolerance
	if deltas := CompareDNA(b, c, nil, cfg); len(deltas) != 0 {
		t.Fatalf("5%% drift should be tolerated: %+v", deltas)
	}

	c = b.Clone()
	c.Length = 14 // ~17%
	deltas := CompareDNA(b, c, nil, cfg)
	if len(deltas) != 1 || deltas[0].Field != "length" {
		t.Fatalf("want length delta, got %+v", deltas)
	}
}

func TestCompareDNASpaceChangeDoesNotImplicateOtherFields(t *testing.T) {
	b := baselineDNA()
	c := b.Clone()
	c.Spaces[0].Area = 20
	deltas := CompareDNA(b, c, []string{"kitchen"}, DefaultConfig())
	if len(deltas) != 0 {
		t.Fatalf("kitchen change must not implicate unrelated fields: %+v", deltas)
	}
}

func TestCompareDNARemovedAndAddedEntries(t *testing.T) {
	b := baselineDNA()
	c := b.Clone()
	c.Materials = c.Materials[:1] // roof removed
	c.Spaces = append(c.Spaces, domain.ProgramSpace{Name: "atrium", Area: 25, Floor: 0})
	deltas := CompareDNA(b, c, nil, DefaultConfig())
	if len(deltas) != 2 {
		t.Fatalf("want roof removal and atrium addition, got %+v", deltas)
	}
}

func TestCompareDNAStyleAndEntrance(t *testing.T) {
	b := baselineDNA()
	c := b.Clone()
	c.Style = "brutalist"
	c.Entrance = "S"
	deltas := CompareDNA(b, c, nil, DefaultConfig())
	if len(deltas) != 2 {
		t.Fatalf("want style and entrance deltas, got %+v", deltas)
	}
}
