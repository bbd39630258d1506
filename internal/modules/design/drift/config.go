package drift

// Config carries the drift thresholds. The defaults were tuned empirically
// against provider output; every one of them is expected to be overridden
// from the thresholds YAML in real deployments.
type Config struct {
	// Visual axis.
	SSIMThreshold   float64 `yaml:"ssim_threshold"`
	HashDistanceMax int     `yaml:"hash_distance_max"`

	// Structural axis: allowed relative change for numeric DNA fields not
	// named in the modify request.
	StructuralTolerance float64 `yaml:"structural_tolerance"`

	// Advisory edge-alignment metric (tolerant precision/recall/F1 between
	// dilated edge maps). Recorded in the report, never gating on its own.
	EdgeF1Min       float64 `yaml:"edge_f1_min"`
	EdgeTolerancePx int     `yaml:"edge_tolerance_px"`
}

func DefaultConfig() Config {
	return Config{
		SSIMThreshold:       0.92,
		HashDistanceMax:     12,
		StructuralTolerance: 0.10,
		EdgeF1Min:           0.65,
		EdgeTolerancePx:     3,
	}
}
