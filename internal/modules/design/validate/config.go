package validate

// Config carries the tunable validation bounds. Values were chosen
// empirically; treat them as configuration, not constants (loaded from the
// thresholds YAML by the app layer).
type Config struct {
	FloorHeightMin float64 `yaml:"floor_height_min"`
	FloorHeightMax float64 `yaml:"floor_height_max"`

	FootprintAreaMin float64 `yaml:"footprint_area_min"`
	FootprintAreaMax float64 `yaml:"footprint_area_max"`

	// Allowed relative deviation between the summed program-space areas and
	// the total floor area (footprint x floor count).
	ProgramAreaTolerance float64 `yaml:"program_area_tolerance"`

	// Minimum perceptual distance between facade and trim finishes when both
	// parse as hex colors (Euclidean RGB, 0-441).
	MinFinishDistance float64 `yaml:"min_finish_distance"`
}

func DefaultConfig() Config {
	return Config{
		FloorHeightMin:       2.4,
		FloorHeightMax:       5.0,
		FootprintAreaMin:     20,
		FootprintAreaMax:     2000,
		ProgramAreaTolerance: 0.30,
		MinFinishDistance:    40,
	}
}
