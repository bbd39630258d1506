package app

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/yungbote/archsheet-backend/internal/modules/design/drift"
	"github.com/yungbote/archsheet-backend/internal/modules/design/validate"
	"github.com/yungbote/archsheet-backend/internal/platform/envutil"
	"github.com/yungbote/archsheet-backend/internal/platform/logger"
)

type Config struct {
	Port        string
	MetricsAddr string
	Environment string
	Version     string

	Validation validate.Config
	Drift      drift.Config
}

// thresholdsFile mirrors the layout of configs/thresholds.yaml. Absent keys
// keep their defaults.
type thresholdsFile struct {
	Validation validate.Config `yaml:"validation"`
	Drift      drift.Config    `yaml:"drift"`
}

func LoadConfig(log *logger.Logger) Config {
	cfg := Config{
		Port:        envutil.Str("PORT", "8080"),
		MetricsAddr: envutil.Str("METRICS_ADDR", ""),
		Environment: envutil.Str("APP_ENV", "development"),
		Version:     envutil.Str("APP_VERSION", "dev"),
		Validation:  validate.DefaultConfig(),
		Drift:       drift.DefaultConfig(),
	}

	path := envutil.Str("THRESHOLDS_CONFIG_PATH", "configs/thresholds.yaml")
	v, d, err := loadThresholds(path, cfg.Validation, cfg.Drift)
	if err != nil {
		log.Warn("thresholds config not loaded; using defaults", "path", path, "error", err)
		return cfg
	}
	cfg.Validation = v
	cfg.Drift = d
	log.Info("thresholds loaded", "path", path,
		"ssim_threshold", d.SSIMThreshold,
		"hash_distance_max", d.HashDistanceMax,
		"structural_tolerance", d.StructuralTolerance)
	return cfg
}

func loadThresholds(path string, v validate.Config, d drift.Config) (validate.Config, drift.Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return v, d, err
	}
	file := thresholdsFile{Validation: v, Drift: d}
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return v, d, fmt.Errorf("parse %s: %w", path, err)
	}
	return file.Validation, file.Drift, nil
}
