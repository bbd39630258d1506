package domain

type DriftVerdict string

const (
	DriftPass  DriftVerdict = "pass"
	DriftRetry DriftVerdict = "retry"
	DriftFail  DriftVerdict = "fail"
)

// StructuralDelta records one DNA field that changed without being named in
// the modify request.
type StructuralDelta struct {
	Field  string `json:"field"`
	Before string `json:"before"`
	After  string `json:"after"`
}

// VisualSimilarity carries the image-axis metrics between the baseline render
// and a candidate render. EdgeF1 is an advisory tolerant edge-alignment score
// and does not gate the verdict on its own.
type VisualSimilarity struct {
	SSIM                   float64 `json:"ssim"`
	PerceptualHashDistance int     `json:"perceptual_hash_distance"`
	EdgeF1                 float64 `json:"edge_f1,omitempty"`
	EdgePrecision          float64 `json:"edge_precision,omitempty"`
	EdgeRecall             float64 `json:"edge_recall,omitempty"`
}

// DriftReport is produced fresh on every modify attempt. Only the report of
// the accepted attempt is persisted, alongside the new artifact version.
// Reasons names the thresholds that drove a retry or fail verdict;
// Advisories carries non-gating diagnostics (edge alignment) and may be
// populated even on a pass.
type DriftReport struct {
	StructuralDelta []StructuralDelta `json:"structural_delta"`
	Visual          VisualSimilarity  `json:"visual_similarity"`
	Verdict         DriftVerdict      `json:"verdict"`
	Reasons         []string          `json:"reasons"`
	Advisories      []string          `json:"advisories,omitempty"`
}
