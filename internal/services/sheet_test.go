package services

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/archsheet-backend/internal/domain"
	"github.com/yungbote/archsheet-backend/internal/modules/design/drift"
	"github.com/yungbote/archsheet-backend/internal/modules/design/validate"
	"github.com/yungbote/archsheet-backend/internal/platform/apierr"
	"github.com/yungbote/archsheet-backend/internal/platform/imagesynth"
	"github.com/yungbote/archsheet-backend/internal/platform/logger"
	"github.com/yungbote/archsheet-backend/internal/platform/mediastore"
)

// ---- fakes ----

type memRepo struct {
	mu   sync.Mutex
	rows map[string][]*domain.SheetBaseline
}

func newMemRepo() *memRepo {
	return &memRepo{rows: map[string][]*domain.SheetBaseline{}}
}

func (r *memRepo) Create(_ context.Context, _ *gorm.DB, row *domain.SheetBaseline) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, b := range r.rows[row.DesignID] {
		if b.Version == row.Version {
			return apierr.Conflict(nil)
		}
	}
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	cp := *row
	r.rows[row.DesignID] = append(r.rows[row.DesignID], &cp)
	return nil
}

func (r *memRepo) GetByDesignVersion(_ context.Context, _ *gorm.DB, designID string, version int) (*domain.SheetBaseline, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, b := range r.rows[designID] {
		if b.Version == version {
			cp := *b
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *memRepo) GetLatest(_ context.Context, _ *gorm.DB, designID string) (*domain.SheetBaseline, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rows := r.rows[designID]
	if len(rows) == 0 {
		return nil, nil
	}
	cp := *rows[len(rows)-1]
	return &cp, nil
}

func (r *memRepo) ListByDesign(_ context.Context, _ *gorm.DB, designID string) ([]*domain.SheetBaseline, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*domain.SheetBaseline, 0, len(r.rows[designID]))
	for _, b := range r.rows[designID] {
		cp := *b
		out = append(out, &cp)
	}
	return out, nil
}

func (r *memRepo) NextVersion(_ context.Context, _ *gorm.DB, designID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rows[designID]) + 1, nil
}

func (r *memRepo) DeleteByDesign(_ context.Context, _ *gorm.DB, designID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.rows, designID)
	return nil
}

type memMedia struct {
	mu   sync.Mutex
	blob map[string][]byte
}

func newMemMedia() *memMedia { return &memMedia{blob: map[string][]byte{}} }

func (m *memMedia) Put(_ context.Context, key string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blob[key] = append([]byte(nil), data...)
	return nil
}

func (m *memMedia) Get(_ context.Context, key string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.blob[key]
	if !ok {
		return nil, io.ErrUnexpectedEOF
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *memMedia) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.blob, key)
	return nil
}

func (m *memMedia) PublicURL(key string) string { return "/media/" + key }

func (m *memMedia) has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.blob[key]
	return ok
}

// fakeSynth plays back a scripted sequence of rasters and echoes the request
// seed unless seedSkew is set.
type fakeSynth struct {
	mu       sync.Mutex
	renders  [][]byte
	calls    []imagesynth.Request
	seedSkew int64
}

func (f *fakeSynth) Generate(_ context.Context, req imagesynth.Request) (imagesynth.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, req)
	idx := len(f.calls) - 1
	if idx >= len(f.renders) {
		idx = len(f.renders) - 1
	}
	return imagesynth.Result{
		Image:      f.renders[idx],
		MimeType:   "image/png",
		EchoedSeed: req.Seed + f.seedSkew,
	}, nil
}

func (f *fakeSynth) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeSynth) call(i int) imagesynth.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[i]
}

// ---- image fixtures ----

func sheetPNG(t *testing.T, noisy bool) []byte {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, 256, 256))
	if noisy {
		v := uint8(0)
		for i := range img.Pix {
			v = v*31 + 17
			img.Pix[i] = v
		}
	} else {
		for i := range img.Pix {
			img.Pix[i] = 235
		}
		for y := 64; y < 192; y++ {
			for x := 48; x < 208; x++ {
				img.SetGray(x, y, color.Gray{Y: 90})
			}
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode fixture: %v", err)
	}
	return buf.Bytes()
}

// ---- harness ----

type harness struct {
	svc   SheetService
	repo  *memRepo
	media *memMedia
	synth *fakeSynth
}

func newHarness(t *testing.T, renders ...[]byte) *harness {
	t.Helper()
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	repo := newMemRepo()
	media := newMemMedia()
	synth := &fakeSynth{renders: renders}
	checker := drift.NewChecker(drift.DefaultConfig(), mediastore.NewImageLoader(media), log)
	svc := NewSheetService(log, repo, synth, media, checker, validate.DefaultConfig(), nil)
	return &harness{svc: svc, repo: repo, media: media, synth: synth}
}

func rawDNA() map[string]any {
	return map[string]any{
		"length":      12.0,
		"width":       8.0,
		"height":      6.4,
		"floor_count": 2,
		"style":       "contemporary",
		"entrance":    "N",
		"materials": []any{
			map[string]any{"surface": "facade", "finish": "brick"},
			map[string]any{"surface": "roof", "finish": "tile"},
		},
	}
}

// ---- tests ----

func TestGenerateCommitsBaseline(t *testing.T) {
	h := newHarness(t, sheetPNG(t, false))
	ctx := context.Background()

	res, err := h.svc.Generate(ctx, "design-a", rawDNA())
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if res.Version != 1 {
		t.Fatalf("version = %d, want 1", res.Version)
	}
	if res.QualityScore != 100 {
		t.Fatalf("quality = %d, want 100", res.QualityScore)
	}
	if !h.media.has("design-a/1.png") {
		t.Fatalf("raster not stored")
	}

	row, err := h.repo.GetByDesignVersion(ctx, nil, "design-a", 1)
	if err != nil || row == nil {
		t.Fatalf("baseline row missing: %v", err)
	}
	if row.Seed <= 0 || row.Seed > 1<<31-1 {
		t.Fatalf("seed %d outside provider range", row.Seed)
	}
	stored, err := row.DecodeDNA()
	if err != nil {
		t.Fatalf("decode stored dna: %v", err)
	}
	if stored.Length != 12 || stored.FloorCount != 2 {
		t.Fatalf("stored dna mismatch: %+v", stored)
	}

	// Second generate for the same design conflicts.
	if _, err := h.svc.Generate(ctx, "design-a", rawDNA()); !apierr.Is(err, apierr.CodeConflict) {
		t.Fatalf("want %s, got %v", apierr.CodeConflict, err)
	}
}

func TestGenerateSeedDeterministicAcrossInstances(t *testing.T) {
	h := newHarness(t, sheetPNG(t, false))
	ctx := context.Background()

	if _, err := h.svc.Generate(ctx, "design-a", rawDNA()); err != nil {
		t.Fatalf("generate a: %v", err)
	}
	if _, err := h.svc.Generate(ctx, "design-b", rawDNA()); err != nil {
		t.Fatalf("generate b: %v", err)
	}

	a, _ := h.repo.GetByDesignVersion(ctx, nil, "design-a", 1)
	b, _ := h.repo.GetByDesignVersion(ctx, nil, "design-b", 1)
	if a.Seed != b.Seed {
		t.Fatalf("identical dna derived different seeds: %d vs %d", a.Seed, b.Seed)
	}
}

func TestGenerateSchemaError(t *testing.T) {
	h := newHarness(t, sheetPNG(t, false))
	_, err := h.svc.Generate(context.Background(), "design-a", map[string]any{"width": 8})
	if !apierr.Is(err, apierr.CodeSchema) {
		t.Fatalf("want %s, got %v", apierr.CodeSchema, err)
	}
	if h.synth.callCount() != 0 {
		t.Fatalf("provider must not be called on schema failure")
	}
}

func TestGenerateEchoedSeedMismatch(t *testing.T) {
	h := newHarness(t, sheetPNG(t, false))
	h.synth.seedSkew = 1
	_, err := h.svc.Generate(context.Background(), "design-a", rawDNA())
	if !apierr.Is(err, apierr.CodeGeneration) {
		t.Fatalf("want %s, got %v", apierr.CodeGeneration, err)
	}
}

func TestGenerateCanceledContext(t *testing.T) {
	h := newHarness(t, sheetPNG(t, false))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := h.svc.Generate(ctx, "design-a", rawDNA())
	if !apierr.Is(err, apierr.CodeCanceled) {
		t.Fatalf("want %s, got %v", apierr.CodeCanceled, err)
	}
}

func TestModifyExpectedChangePasses(t *testing.T) {
	base := sheetPNG(t, false)
	h := newHarness(t, base, base)
	ctx := context.Background()

	if _, err := h.svc.Generate(ctx, "design-a", rawDNA()); err != nil {
		t.Fatalf("generate: %v", err)
	}
	v1, _ := h.repo.GetByDesignVersion(ctx, nil, "design-a", 1)

	res, err := h.svc.Modify(ctx, domain.ModifyRequest{
		DesignID:         "design-a",
		DeltaDescription: "change roof material to slate",
		Delta:            map[string]any{"materials": map[string]any{"roof": "slate"}},
		AffectedRegions:  []string{"roof"},
	})
	if err != nil {
		t.Fatalf("modify: %v", err)
	}
	if res.Version != 2 {
		t.Fatalf("version = %d, want 2", res.Version)
	}
	if res.DriftReport == nil || res.DriftReport.Verdict != domain.DriftPass {
		t.Fatalf("want pass verdict, got %+v", res.DriftReport)
	}
	if len(res.DriftReport.StructuralDelta) != 0 {
		t.Fatalf("expected change must not count as drift: %+v", res.DriftReport.StructuralDelta)
	}
	if got, ok := res.DNA.MaterialFor("roof"); !ok || got != "slate" {
		t.Fatalf("roof finish = %q, want slate", got)
	}

	v2, _ := h.repo.GetByDesignVersion(ctx, nil, "design-a", 2)
	if v2.Seed != v1.Seed {
		t.Fatalf("modify must reuse baseline seed: %d vs %d", v2.Seed, v1.Seed)
	}
	if v1b, _ := h.repo.GetByDesignVersion(ctx, nil, "design-a", 1); v1b.ImageRef != v1.ImageRef {
		t.Fatalf("version 1 must stay untouched")
	}
}

func TestModifyUnintendedChangeRejected(t *testing.T) {
	base := sheetPNG(t, false)
	h := newHarness(t, base, base, base)
	ctx := context.Background()

	if _, err := h.svc.Generate(ctx, "design-a", rawDNA()); err != nil {
		t.Fatalf("generate: %v", err)
	}

	// Delta touches the facade but only the roof is declared affected.
	_, err := h.svc.Modify(ctx, domain.ModifyRequest{
		DesignID:         "design-a",
		DeltaDescription: "change roof material to slate",
		Delta: map[string]any{"materials": map[string]any{
			"roof":   "slate",
			"facade": "stucco",
		}},
		AffectedRegions: []string{"roof"},
	})
	if !apierr.Is(err, apierr.CodeDrift) {
		t.Fatalf("want %s, got %v", apierr.CodeDrift, err)
	}

	var apiErr *apierr.Error
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *apierr.Error")
	}
	report, ok := apiErr.Details.(domain.DriftReport)
	if !ok {
		t.Fatalf("details should carry the drift report, got %T", apiErr.Details)
	}
	named := false
	for _, r := range report.Reasons {
		if strings.Contains(r, "materials.facade") {
			named = true
		}
	}
	if !named {
		t.Fatalf("reasons must name the drifted field: %v", report.Reasons)
	}

	// Structural fail is terminal on the first attempt: one generate call
	// for the baseline plus one for the rejected modify.
	if h.synth.callCount() != 2 {
		t.Fatalf("synth calls = %d, want 2", h.synth.callCount())
	}
	if rows, _ := h.repo.ListByDesign(ctx, nil, "design-a"); len(rows) != 1 {
		t.Fatalf("rejected modify must not commit a version")
	}
	if h.media.has("design-a/2.png") {
		t.Fatalf("rejected render should be cleaned up")
	}
}

func TestModifyVisualDriftRetriesOnceThenRejects(t *testing.T) {
	base := sheetPNG(t, false)
	noisy := sheetPNG(t, true)
	h := newHarness(t, base, noisy, noisy)
	ctx := context.Background()

	if _, err := h.svc.Generate(ctx, "design-a", rawDNA()); err != nil {
		t.Fatalf("generate: %v", err)
	}

	_, err := h.svc.Modify(ctx, domain.ModifyRequest{
		DesignID:         "design-a",
		DeltaDescription: "refresh the sheet",
	})
	if !apierr.Is(err, apierr.CodeDrift) {
		t.Fatalf("want %s, got %v", apierr.CodeDrift, err)
	}

	// Baseline render + first modify attempt + exactly one retry.
	if h.synth.callCount() != 3 {
		t.Fatalf("synth calls = %d, want 3", h.synth.callCount())
	}
	if lock := h.synth.call(1).LockInstruction; strings.Contains(lock, "Strictly keep unchanged") {
		t.Fatalf("first attempt should use the plain lock, got %q", lock)
	}
	if lock := h.synth.call(2).LockInstruction; !strings.Contains(lock, "Reuse the exact composition") {
		t.Fatalf("retry must strengthen the lock, got %q", lock)
	}
}

func TestModifyVisualDriftRetryThenPass(t *testing.T) {
	base := sheetPNG(t, false)
	noisy := sheetPNG(t, true)
	h := newHarness(t, base, noisy, base)
	ctx := context.Background()

	if _, err := h.svc.Generate(ctx, "design-a", rawDNA()); err != nil {
		t.Fatalf("generate: %v", err)
	}

	res, err := h.svc.Modify(ctx, domain.ModifyRequest{
		DesignID:         "design-a",
		DeltaDescription: "refresh the sheet",
	})
	if err != nil {
		t.Fatalf("modify: %v", err)
	}
	if res.DriftReport.Verdict != domain.DriftPass {
		t.Fatalf("want pass after retry, got %s", res.DriftReport.Verdict)
	}
	if h.synth.callCount() != 3 {
		t.Fatalf("synth calls = %d, want 3", h.synth.callCount())
	}

	v2, _ := h.repo.GetByDesignVersion(ctx, nil, "design-a", 2)
	if v2 == nil {
		t.Fatalf("retry pass must commit version 2")
	}
	meta := string(v2.RunMeta)
	if !strings.Contains(meta, `"attempts":2`) {
		t.Fatalf("run metadata should record 2 attempts: %s", meta)
	}
}

func TestModifyWithoutBaseline(t *testing.T) {
	h := newHarness(t, sheetPNG(t, false))
	_, err := h.svc.Modify(context.Background(), domain.ModifyRequest{DesignID: "ghost"})
	if !apierr.Is(err, apierr.CodeNotFound) {
		t.Fatalf("want %s, got %v", apierr.CodeNotFound, err)
	}
}

func TestModifyNoOpDeltaPasses(t *testing.T) {
	base := sheetPNG(t, false)
	h := newHarness(t, base, base)
	ctx := context.Background()

	if _, err := h.svc.Generate(ctx, "design-a", rawDNA()); err != nil {
		t.Fatalf("generate: %v", err)
	}
	res, err := h.svc.Modify(ctx, domain.ModifyRequest{
		DesignID:         "design-a",
		DeltaDescription: "no change, regenerate as-is",
	})
	if err != nil {
		t.Fatalf("modify: %v", err)
	}
	if res.DriftReport.Verdict != domain.DriftPass {
		t.Fatalf("no-op delta should pass, got %s", res.DriftReport.Verdict)
	}
	if len(res.DriftReport.StructuralDelta) != 0 {
		t.Fatalf("no-op delta produced structural deltas: %+v", res.DriftReport.StructuralDelta)
	}
}
