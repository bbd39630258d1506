package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// SheetBaseline is one frozen generation result for a design. Version 1 is
// the baseline proper; later versions are accepted edits. The seed stored in
// version 1 is reused verbatim by every later version of the same design.
type SheetBaseline struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`

	DesignID string `gorm:"column:design_id;not null;index:idx_sheet_baseline_design_version,unique,priority:1" json:"design_id"`
	Version  int    `gorm:"column:version;not null;index:idx_sheet_baseline_design_version,unique,priority:2" json:"version"`

	DNA  datatypes.JSON `gorm:"column:dna;type:jsonb;not null" json:"dna"`
	Seed int64          `gorm:"column:seed;not null" json:"seed"`

	ImageRef           string `gorm:"column:image_ref;not null" json:"image_ref"`
	PanelLayoutVersion int    `gorm:"column:panel_layout_version;not null;default:1" json:"panel_layout_version"`

	DriftReport datatypes.JSON `gorm:"column:drift_report;type:jsonb" json:"drift_report,omitempty"`
	RunMeta     datatypes.JSON `gorm:"column:run_meta;type:jsonb" json:"run_meta,omitempty"`

	CreatedAt time.Time `gorm:"not null;default:now();index" json:"created_at"`
}

func (SheetBaseline) TableName() string { return "sheet_baseline" }

func (b *SheetBaseline) DecodeDNA() (DesignDNA, error) {
	var dna DesignDNA
	err := json.Unmarshal(b.DNA, &dna)
	return dna, err
}

func (b *SheetBaseline) DecodeDriftReport() (*DriftReport, error) {
	if len(b.DriftReport) == 0 {
		return nil, nil
	}
	var rep DriftReport
	if err := json.Unmarshal(b.DriftReport, &rep); err != nil {
		return nil, err
	}
	return &rep, nil
}

// RunMetadata records how a version came to be, for reproducibility audits.
type RunMetadata struct {
	Seed          int64          `json:"seed"`
	SchemaVersion int            `json:"schema_version"`
	GeneratedAt   string         `json:"generated_at"`
	Attempts      int            `json:"attempts"`
	Warnings      []string       `json:"warnings,omitempty"`
	Statistics    map[string]any `json:"statistics,omitempty"`
}
