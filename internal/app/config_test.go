package app

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/yungbote/archsheet-backend/internal/modules/design/drift"
	"github.com/yungbote/archsheet-backend/internal/modules/design/validate"
)

func TestLoadThresholdsOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "thresholds.yaml")
	body := []byte("validation:\n  floor_height_min: 2.0\ndrift:\n  ssim_threshold: 0.9\n  hash_distance_max: 20\n")
	if err := os.WriteFile(path, body, 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	v, d, err := loadThresholds(path, validate.DefaultConfig(), drift.DefaultConfig())
	if err != nil {
		t.Fatalf("loadThresholds: %v", err)
	}
	if v.FloorHeightMin != 2.0 {
		t.Fatalf("FloorHeightMin = %v, want 2.0", v.FloorHeightMin)
	}
	if v.FloorHeightMax != validate.DefaultConfig().FloorHeightMax {
		t.Fatalf("FloorHeightMax should keep its default, got %v", v.FloorHeightMax)
	}
	if d.SSIMThreshold != 0.9 {
		t.Fatalf("SSIMThreshold = %v, want 0.9", d.SSIMThreshold)
	}
	if d.HashDistanceMax != 20 {
		t.Fatalf("HashDistanceMax = %v, want 20", d.HashDistanceMax)
	}
	if d.StructuralTolerance != drift.DefaultConfig().StructuralTolerance {
		t.Fatalf("StructuralTolerance should keep its default, got %v", d.StructuralTolerance)
	}
}

func TestLoadThresholdsMissingFileKeepsDefaults(t *testing.T) {
	v, d, err := loadThresholds(filepath.Join(t.TempDir(), "absent.yaml"), validate.DefaultConfig(), drift.DefaultConfig())
	if err == nil {
		t.Fatal("expected an error for a missing file")
	}
	if v != validate.DefaultConfig() || d != drift.DefaultConfig() {
		t.Fatal("defaults must be returned unchanged on error")
	}
}
