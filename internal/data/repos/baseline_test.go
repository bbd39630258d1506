package repos

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"

	"github.com/yungbote/archsheet-backend/internal/data/repos/testutil"
	"github.com/yungbote/archsheet-backend/internal/domain"
	"github.com/yungbote/archsheet-backend/internal/platform/apierr"
)

func testBaseline(t *testing.T, designID string, version int, seed int64) *domain.SheetBaseline {
	t.Helper()
	dna, err := json.Marshal(domain.DesignDNA{
		SchemaVersion: domain.CurrentSchemaVersion,
		Length:        12,
		Width:         8,
		Height:        6,
		FloorCount:    2,
		Style:         "contemporary",
		Entrance:      "N",
		Materials:     []domain.Material{{Surface: "facade", Finish: "brick"}},
	})
	if err != nil {
		t.Fatalf("marshal dna: %v", err)
	}
	return &domain.SheetBaseline{
		DesignID:           designID,
		Version:            version,
		DNA:                dna,
		Seed:               seed,
		ImageRef:           designID + "/1.png",
		PanelLayoutVersion: 1,
	}
}

func TestBaselineRepoVersioning(t *testing.T) {
	db := testutil.DB(t)
	repo := NewBaselineRepo(db, testutil.Logger(t))
	tx := testutil.Tx(t, db)
	ctx := context.Background()

	designID := "design-" + uuid.NewString()

	next, err := repo.NextVersion(ctx, tx, designID)
	if err != nil {
		t.Fatalf("next version: %v", err)
	}
	if next != 1 {
		t.Fatalf("first version = %d, want 1", next)
	}

	for v := 1; v <= 3; v++ {
		if err := repo.Create(ctx, tx, testBaseline(t, designID, v, 42)); err != nil {
			t.Fatalf("create v%d: %v", v, err)
		}
	}

	latest, err := repo.GetLatest(ctx, tx, designID)
	if err != nil {
		t.Fatalf("get latest: %v", err)
	}
	if latest == nil || latest.Version != 3 {
		t.Fatalf("latest = %+v, want version 3", latest)
	}

	got, err := repo.GetByDesignVersion(ctx, tx, designID, 2)
	if err != nil {
		t.Fatalf("get v2: %v", err)
	}
	if got == nil || got.Version != 2 {
		t.Fatalf("got = %+v, want version 2", got)
	}
	if got.Seed != 42 {
		t.Fatalf("seed = %d, want 42", got.Seed)
	}

	all, err := repo.ListByDesign(ctx, tx, designID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("len(all) = %d, want 3", len(all))
	}
	for i, b := range all {
		if b.Version != i+1 {
			t.Fatalf("versions out of order: %d at index %d", b.Version, i)
		}
	}

	next, err = repo.NextVersion(ctx, tx, designID)
	if err != nil {
		t.Fatalf("next version: %v", err)
	}
	if next != 4 {
		t.Fatalf("next version = %d, want 4", next)
	}

	missing, err := repo.GetLatest(ctx, tx, "design-"+uuid.NewString())
	if err != nil {
		t.Fatalf("get latest missing: %v", err)
	}
	if missing != nil {
		t.Fatalf("expected nil for unknown design, got %+v", missing)
	}
}

func TestBaselineRepoDuplicateVersionConflicts(t *testing.T) {
	db := testutil.DB(t)
	repo := NewBaselineRepo(db, testutil.Logger(t))
	tx := testutil.Tx(t, db)
	ctx := context.Background()

	designID := "design-" + uuid.NewString()
	if err := repo.Create(ctx, tx, testBaseline(t, designID, 1, 7)); err != nil {
		t.Fatalf("create: %v", err)
	}

	err := repo.Create(ctx, tx, testBaseline(t, designID, 1, 7))
	if err == nil {
		t.Fatalf("expected conflict for duplicate (design, version)")
	}
	if !apierr.Is(err, apierr.CodeConflict) {
		t.Fatalf("error code = %q, want %q (err=%v)", apierr.Code(err), apierr.CodeConflict, err)
	}
}

func TestBaselineRepoDeleteByDesign(t *testing.T) {
	db := testutil.DB(t)
	repo := NewBaselineRepo(db, testutil.Logger(t))
	tx := testutil.Tx(t, db)
	ctx := context.Background()

	designID := "design-" + uuid.NewString()
	if err := repo.Create(ctx, tx, testBaseline(t, designID, 1, 7)); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := repo.DeleteByDesign(ctx, tx, designID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	latest, err := repo.GetLatest(ctx, tx, designID)
	if err != nil {
		t.Fatalf("get latest: %v", err)
	}
	if latest != nil {
		t.Fatalf("expected no rows after delete, got %+v", latest)
	}
}
