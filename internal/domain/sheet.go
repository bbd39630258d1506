package domain

// ModifyRequest asks for an edit to an existing design. Delta carries the
// structured field overrides merged into the DNA draft; DeltaDescription is
// the free-form text forwarded to the image provider. AffectedRegions hints
// which surfaces or named spaces are expected to change; fields covered by
// it are excluded from the unintended-drift check. Transient, never
// persisted standalone.
type ModifyRequest struct {
	DesignID         string         `json:"design_id"`
	DeltaDescription string         `json:"delta_description"`
	Delta            map[string]any `json:"delta,omitempty"`
	AffectedRegions  []string       `json:"affected_regions,omitempty"`
}

// SheetResult is the value returned to the UI layer after a workflow reaches
// a terminal state.
type SheetResult struct {
	DesignID     string       `json:"design_id"`
	Version      int          `json:"version"`
	ImageRef     string       `json:"image_ref"`
	DNA          DesignDNA    `json:"dna"`
	QualityScore int          `json:"quality_score"`
	DriftReport  *DriftReport `json:"drift_report,omitempty"`
}
