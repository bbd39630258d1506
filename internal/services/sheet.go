package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/datatypes"

	"github.com/yungbote/archsheet-backend/internal/data/repos"
	"github.com/yungbote/archsheet-backend/internal/domain"
	"github.com/yungbote/archsheet-backend/internal/modules/design/dna"
	"github.com/yungbote/archsheet-backend/internal/modules/design/drift"
	"github.com/yungbote/archsheet-backend/internal/modules/design/validate"
	"github.com/yungbote/archsheet-backend/internal/observability"
	"github.com/yungbote/archsheet-backend/internal/platform/apierr"
	"github.com/yungbote/archsheet-backend/internal/platform/envutil"
	"github.com/yungbote/archsheet-backend/internal/platform/imagesynth"
	"github.com/yungbote/archsheet-backend/internal/platform/logger"
	"github.com/yungbote/archsheet-backend/internal/platform/mediastore"
)

// Workflow states published to listeners. Committed, RejectedInvalid and
// RejectedDrift are terminal.
const (
	StateNormalizing     = "normalizing"
	StateValidating      = "validating"
	StateSeedDeriving    = "seed_deriving"
	StateGenerating      = "generating"
	StateRetryGenerating = "retry_generating"
	StateDriftChecking   = "drift_checking"
	StateCommitted       = "committed"
	StateRejectedInvalid = "rejected_invalid"
	StateRejectedDrift   = "rejected_drift"
	StateCanceled        = "canceled"
)

// SheetService drives the generate and modify workflows. One workflow runs at
// a time per design; different designs proceed in parallel.
type SheetService interface {
	Generate(ctx context.Context, designID string, raw map[string]any) (*domain.SheetResult, error)
	Modify(ctx context.Context, req domain.ModifyRequest) (*domain.SheetResult, error)
	GetLatest(ctx context.Context, designID string) (*domain.SheetResult, error)
	ListVersions(ctx context.Context, designID string) ([]*domain.SheetBaseline, error)
}

type sheetConfig struct {
	imageWidth         int
	imageHeight        int
	genTimeout         time.Duration
	panelLayoutVersion int
}

type sheetService struct {
	log      *logger.Logger
	repo     repos.BaselineRepo
	synth    imagesynth.Client
	media    mediastore.Store
	checker  *drift.Checker
	vcfg     validate.Config
	notifier Notifier

	cfg      sheetConfig
	seeds    *dna.SeedCache
	locks    *keyMutex
	throttle *throttle
	tracer   trace.Tracer
}

func NewSheetService(
	log *logger.Logger,
	repo repos.BaselineRepo,
	synth imagesynth.Client,
	media mediastore.Store,
	checker *drift.Checker,
	vcfg validate.Config,
	notifier Notifier,
) SheetService {
	if notifier == nil {
		notifier = NopNotifier()
	}
	return &sheetService{
		log:      log.With("service", "SheetService"),
		repo:     repo,
		synth:    synth,
		media:    media,
		checker:  checker,
		vcfg:     vcfg,
		notifier: notifier,
		cfg: sheetConfig{
			imageWidth:         envutil.Int("SHEET_IMAGE_WIDTH", 1024),
			imageHeight:        envutil.Int("SHEET_IMAGE_HEIGHT", 768),
			genTimeout:         time.Duration(envutil.Int("GENERATION_TIMEOUT_SECONDS", 180)) * time.Second,
			panelLayoutVersion: envutil.Int("PANEL_LAYOUT_VERSION", 1),
		},
		seeds:    dna.NewSeedCache(),
		locks:    newKeyMutex(),
		throttle: newThrottle(time.Duration(envutil.Int("IMAGESYNTH_MIN_INTERVAL_MS", 0)) * time.Millisecond),
		tracer:   otel.Tracer("archsheet/services"),
	}
}

// Generate runs the first-time workflow: normalize, validate, derive a seed,
// render once, commit version 1. A design that already has a baseline is a
// conflict; edits go through Modify.
func (s *sheetService) Generate(ctx context.Context, designID string, raw map[string]any) (*domain.SheetResult, error) {
	designID = strings.TrimSpace(designID)
	if designID == "" {
		return nil, apierr.Schema(errors.New("design id required"))
	}

	unlock := s.locks.Lock(designID)
	defer unlock()
	start := time.Now()

	ctx, span := s.tracer.Start(ctx, "SheetService.Generate",
		trace.WithAttributes(attribute.String("design.id", designID)))
	defer span.End()

	existing, err := s.repo.GetLatest(ctx, nil, designID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, apierr.Conflict(fmt.Errorf("baseline already exists for design %s", designID))
	}

	rec, warnings, err := s.normalizeAndValidate(ctx, designID, raw)
	if err != nil {
		return nil, err
	}

	if err := s.checkCancel(ctx, designID); err != nil {
		return nil, err
	}
	s.setState(ctx, designID, StateSeedDeriving, nil)
	seed := s.seeds.Derive(rec)

	if err := s.checkCancel(ctx, designID); err != nil {
		return nil, err
	}
	s.setState(ctx, designID, StateGenerating, map[string]any{"seed": seed})

	imageRef := fmt.Sprintf("%s/1.png", designID)
	if err := s.render(ctx, rec, renderArgs{
		lock:     "",
		seed:     seed,
		imageRef: imageRef,
	}); err != nil {
		return nil, err
	}

	row, err := s.baselineRow(designID, 1, rec, seed, imageRef, nil, s.runMeta(seed, rec, 1, warnings, nil))
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, nil, row); err != nil {
		return nil, err
	}
	s.setState(ctx, designID, StateCommitted, map[string]any{"version": 1})
	observability.Current().ObserveGeneration("generate", StateCommitted, time.Since(start))
	s.log.Info("baseline committed", "design_id", designID, "seed", seed, "image_ref", imageRef)

	return &domain.SheetResult{
		DesignID:     designID,
		Version:      1,
		ImageRef:     s.media.PublicURL(imageRef),
		DNA:          rec,
		QualityScore: qualityScore(warnings, nil),
	}, nil
}

// Modify runs the edit workflow: merge the delta into a draft, normalize and
// validate it, reuse the version-1 seed, render with a preserve instruction,
// then accept or reject based on the drift verdict. One retry with a
// strengthened lock is permitted; the workflow never accepts a drifted
// result.
func (s *sheetService) Modify(ctx context.Context, req domain.ModifyRequest) (*domain.SheetResult, error) {
	designID := strings.TrimSpace(req.DesignID)
	if designID == "" {
		return nil, apierr.Schema(errors.New("design id required"))
	}

	unlock := s.locks.Lock(designID)
	defer unlock()
	start := time.Now()

	ctx, span := s.tracer.Start(ctx, "SheetService.Modify",
		trace.WithAttributes(attribute.String("design.id", designID)))
	defer span.End()

	latest, err := s.repo.GetLatest(ctx, nil, designID)
	if err != nil {
		return nil, err
	}
	if latest == nil {
		return nil, apierr.NotFound(fmt.Errorf("no baseline for design %s", designID))
	}

	baseDNA, err := latest.DecodeDNA()
	if err != nil {
		return nil, fmt.Errorf("decode baseline dna: %w", err)
	}
	seed, err := s.baselineSeed(ctx, designID, latest)
	if err != nil {
		return nil, err
	}

	draft, err := mergeDelta(baseDNA, req.Delta)
	if err != nil {
		return nil, apierr.Schema(err)
	}
	rec, warnings, err := s.normalizeAndValidate(ctx, designID, draft)
	if err != nil {
		return nil, err
	}

	version, err := s.repo.NextVersion(ctx, nil, designID)
	if err != nil {
		return nil, err
	}
	imageRef := fmt.Sprintf("%s/%d.png", designID, version)

	var report domain.DriftReport
	attempts := 0
	strengthened := false
	for {
		attempts++
		if err := s.checkCancel(ctx, designID); err != nil {
			return nil, err
		}
		state := StateGenerating
		if strengthened {
			state = StateRetryGenerating
		}
		s.setState(ctx, designID, state, map[string]any{"seed": seed, "attempt": attempts})

		if err := s.render(ctx, rec, renderArgs{
			lock:     lockInstruction(rec, req, strengthened),
			seed:     seed,
			imageRef: imageRef,
		}); err != nil {
			return nil, err
		}

		if err := s.checkCancel(ctx, designID); err != nil {
			return nil, err
		}
		s.setState(ctx, designID, StateDriftChecking, map[string]any{"attempt": attempts})
		report, err = s.checker.CheckDrift(ctx, latest, drift.Candidate{
			DNA:             rec,
			ImageRef:        imageRef,
			AffectedRegions: req.AffectedRegions,
		})
		if err != nil {
			return nil, err
		}
		observability.Current().ObserveDrift(string(report.Verdict), report.Visual.SSIM, report.Visual.PerceptualHashDistance)

		if report.Verdict == domain.DriftPass {
			break
		}
		if report.Verdict == domain.DriftRetry && attempts == 1 {
			observability.Current().IncGenerationRetry()
			strengthened = true
			continue
		}

		// fail verdict, or a second retry: fail closed.
		s.setState(ctx, designID, StateRejectedDrift, map[string]any{"reasons": report.Reasons})
		if delErr := s.media.Delete(ctx, imageRef); delErr != nil {
			s.log.Warn("failed to remove rejected render", "image_ref", imageRef, "error", delErr)
		}
		observability.Current().ObserveGeneration("modify", StateRejectedDrift, time.Since(start))
		observability.ReportDriftRejection(ctx, s.log, designID, []observability.DriftAlertMetric{
			{Name: "ssim", Status: string(report.Verdict), Value: report.Visual.SSIM, Threshold: s.checker.Config().SSIMThreshold},
			{Name: "hash_distance", Status: string(report.Verdict), Value: float64(report.Visual.PerceptualHashDistance), Threshold: float64(s.checker.Config().HashDistanceMax)},
		}, map[string]any{"attempts": attempts, "reasons": report.Reasons})
		return nil, apierr.Drift(fmt.Errorf("edit rejected after %d attempt(s): drift exceeded thresholds", attempts)).
			WithDetails(report)
	}

	// Pass verdict reached: commit is atomic, no cancellation checks past
	// this point.
	row, err := s.baselineRow(designID, version, rec, seed, imageRef, &report, s.runMeta(seed, rec, attempts, warnings, &report))
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, nil, row); err != nil {
		return nil, err
	}
	s.setState(ctx, designID, StateCommitted, map[string]any{"version": version})
	observability.Current().ObserveGeneration("modify", StateCommitted, time.Since(start))
	s.log.Info("version committed", "design_id", designID, "version", version, "attempts", attempts)

	reportCopy := report
	return &domain.SheetResult{
		DesignID:     designID,
		Version:      version,
		ImageRef:     s.media.PublicURL(imageRef),
		DNA:          rec,
		QualityScore: qualityScore(warnings, &reportCopy),
		DriftReport:  &reportCopy,
	}, nil
}

func (s *sheetService) GetLatest(ctx context.Context, designID string) (*domain.SheetResult, error) {
	latest, err := s.repo.GetLatest(ctx, nil, strings.TrimSpace(designID))
	if err != nil {
		return nil, err
	}
	if latest == nil {
		return nil, apierr.NotFound(fmt.Errorf("no baseline for design %s", designID))
	}
	rec, err := latest.DecodeDNA()
	if err != nil {
		return nil, fmt.Errorf("decode baseline dna: %w", err)
	}
	rep, err := latest.DecodeDriftReport()
	if err != nil {
		return nil, fmt.Errorf("decode drift report: %w", err)
	}
	return &domain.SheetResult{
		DesignID:     latest.DesignID,
		Version:      latest.Version,
		ImageRef:     s.media.PublicURL(latest.ImageRef),
		DNA:          rec,
		QualityScore: qualityScore(nil, rep),
		DriftReport:  rep,
	}, nil
}

func (s *sheetService) ListVersions(ctx context.Context, designID string) ([]*domain.SheetBaseline, error) {
	return s.repo.ListByDesign(ctx, nil, strings.TrimSpace(designID))
}

// ---- workflow helpers ----

func (s *sheetService) normalizeAndValidate(ctx context.Context, designID string, raw map[string]any) (domain.DesignDNA, []string, error) {
	s.setState(ctx, designID, StateNormalizing, nil)
	rec, err := dna.Normalize(raw)
	if err != nil {
		s.setState(ctx, designID, StateRejectedInvalid, map[string]any{"error": err.Error()})
		return rec, nil, apierr.Schema(err)
	}

	s.setState(ctx, designID, StateValidating, nil)
	res := validate.Validate(rec, s.vcfg)
	if !res.IsValid {
		fixed := validate.AutoFix(rec, s.vcfg)
		res = validate.Validate(fixed, s.vcfg)
		if !res.IsValid {
			s.setState(ctx, designID, StateRejectedInvalid, map[string]any{"errors": res.Errors})
			return rec, nil, apierr.Validation(errors.New("design rejected by validation rules")).
				WithDetails(res.Errors)
		}
		rec = fixed
	}

	warnings := make([]string, 0, len(res.Warnings))
	for _, w := range res.Warnings {
		observability.Current().IncValidationIssue(w.Rule, "warning")
		warnings = append(warnings, fmt.Sprintf("%s: %s", w.Rule, w.Message))
	}
	return rec, warnings, nil
}

type renderArgs struct {
	lock     string
	seed     int64
	imageRef string
}

// render throttles, calls the provider with a bounded timeout, verifies the
// echoed seed, and stores the raster under args.imageRef.
func (s *sheetService) render(ctx context.Context, rec domain.DesignDNA, args renderArgs) error {
	if err := s.throttle.Wait(ctx); err != nil {
		return apierr.Canceled(err)
	}

	genCtx, cancel := context.WithTimeout(ctx, s.cfg.genTimeout)
	defer cancel()

	out, err := s.synth.Generate(genCtx, imagesynth.Request{
		Prompt:          buildPrompt(rec),
		NegativePrompt:  negativePrompt(),
		LockInstruction: args.lock,
		Seed:            args.seed,
		Width:           s.cfg.imageWidth,
		Height:          s.cfg.imageHeight,
	})
	if err != nil {
		if ctx.Err() != nil {
			return apierr.Canceled(ctx.Err())
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return apierr.Timeout(err)
		}
		return apierr.Generation(err)
	}
	if out.EchoedSeed != args.seed {
		return apierr.Generation(fmt.Errorf("provider echoed seed %d, want %d", out.EchoedSeed, args.seed))
	}
	if err := s.media.Put(ctx, args.imageRef, out.Image); err != nil {
		return fmt.Errorf("store render %s: %w", args.imageRef, err)
	}
	return nil
}

// baselineSeed returns the seed frozen in version 1. Every later version of
// the design reuses it verbatim.
func (s *sheetService) baselineSeed(ctx context.Context, designID string, latest *domain.SheetBaseline) (int64, error) {
	if latest.Version == 1 {
		return latest.Seed, nil
	}
	v1, err := s.repo.GetByDesignVersion(ctx, nil, designID, 1)
	if err != nil {
		return 0, err
	}
	if v1 == nil {
		return latest.Seed, nil
	}
	return v1.Seed, nil
}

func (s *sheetService) baselineRow(designID string, version int, rec domain.DesignDNA, seed int64, imageRef string, report *domain.DriftReport, meta domain.RunMetadata) (*domain.SheetBaseline, error) {
	dnaJSON, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("serialize dna: %w", err)
	}
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("serialize run metadata: %w", err)
	}
	row := &domain.SheetBaseline{
		DesignID:           designID,
		Version:            version,
		DNA:                datatypes.JSON(dnaJSON),
		Seed:               seed,
		ImageRef:           imageRef,
		PanelLayoutVersion: s.cfg.panelLayoutVersion,
		RunMeta:            datatypes.JSON(metaJSON),
	}
	if report != nil {
		repJSON, err := json.Marshal(report)
		if err != nil {
			return nil, fmt.Errorf("serialize drift report: %w", err)
		}
		row.DriftReport = datatypes.JSON(repJSON)
	}
	return row, nil
}

func (s *sheetService) runMeta(seed int64, rec domain.DesignDNA, attempts int, warnings []string, report *domain.DriftReport) domain.RunMetadata {
	meta := domain.RunMetadata{
		Seed:          seed,
		SchemaVersion: rec.SchemaVersion,
		GeneratedAt:   time.Now().UTC().Format(time.RFC3339),
		Attempts:      attempts,
		Warnings:      warnings,
	}
	if report != nil {
		meta.Statistics = map[string]any{
			"verdict":       string(report.Verdict),
			"ssim":          report.Visual.SSIM,
			"hash_distance": report.Visual.PerceptualHashDistance,
		}
	}
	return meta
}

func (s *sheetService) setState(ctx context.Context, designID, state string, payload map[string]any) {
	trace.SpanFromContext(ctx).AddEvent(state)
	s.log.Debug("workflow state", "design_id", designID, "state", state)
	s.notifier.PublishState(designID, state, payload)
}

func (s *sheetService) checkCancel(ctx context.Context, designID string) error {
	if err := ctx.Err(); err != nil {
		s.setState(ctx, designID, StateCanceled, nil)
		return apierr.Canceled(err)
	}
	return nil
}

// mergeDelta applies structured overrides to a copy of the baseline DNA,
// expressed as the raw map the normalizer accepts. Materials and spaces given
// as maps are merged per surface / per space name; every other key replaces
// the baseline value wholesale.
func mergeDelta(base domain.DesignDNA, delta map[string]any) (map[string]any, error) {
	raw, err := json.Marshal(base)
	if err != nil {
		return nil, fmt.Errorf("serialize baseline dna: %w", err)
	}
	var draft map[string]any
	if err := json.Unmarshal(raw, &draft); err != nil {
		return nil, fmt.Errorf("reshape baseline dna: %w", err)
	}

	for key, val := range delta {
		switch strings.ToLower(strings.TrimSpace(key)) {
		case "materials":
			if bySurface, ok := val.(map[string]any); ok {
				draft["materials"] = mergeMaterials(base.Materials, bySurface)
				continue
			}
			draft["materials"] = val
		case "spaces", "program_spaces", "rooms":
			if byName, ok := val.(map[string]any); ok {
				draft["spaces"] = mergeSpaces(base.Spaces, byName)
				continue
			}
			draft["spaces"] = val
		default:
			draft[key] = val
		}
	}
	return draft, nil
}

func mergeMaterials(base []domain.Material, bySurface map[string]any) []any {
	out := make([]any, 0, len(base)+len(bySurface))
	seen := map[string]bool{}
	for _, m := range base {
		surface := strings.ToLower(m.Surface)
		finish := m.Finish
		if v, ok := bySurface[surface]; ok {
			if s, ok := v.(string); ok {
				finish = s
			}
			seen[surface] = true
		}
		out = append(out, map[string]any{"surface": surface, "finish": finish})
	}
	for surface, v := range bySurface {
		surface = strings.ToLower(strings.TrimSpace(surface))
		if seen[surface] || surface == "" {
			continue
		}
		if s, ok := v.(string); ok {
			out = append(out, map[string]any{"surface": surface, "finish": s})
		}
	}
	return out
}

func mergeSpaces(base []domain.ProgramSpace, byName map[string]any) []any {
	out := make([]any, 0, len(base)+len(byName))
	seen := map[string]bool{}
	for _, sp := range base {
		name := strings.ToLower(sp.Name)
		entry := map[string]any{"name": name, "area": sp.Area, "floor": sp.Floor}
		if v, ok := byName[name]; ok {
			applySpaceOverride(entry, v)
			seen[name] = true
		}
		out = append(out, entry)
	}
	for name, v := range byName {
		name = strings.ToLower(strings.TrimSpace(name))
		if seen[name] || name == "" {
			continue
		}
		entry := map[string]any{"name": name, "floor": 0}
		applySpaceOverride(entry, v)
		out = append(out, entry)
	}
	return out
}

func applySpaceOverride(entry map[string]any, v any) {
	switch val := v.(type) {
	case map[string]any:
		if area, ok := val["area"]; ok {
			entry["area"] = area
		}
		if floor, ok := val["floor"]; ok {
			entry["floor"] = floor
		}
	default:
		// bare number means "set the area"
		entry["area"] = val
	}
}

// qualityScore folds validation warnings and visual drift into the 0-100
// score surfaced to the UI.
func qualityScore(warnings []string, report *domain.DriftReport) int {
	score := 100 - 5*len(warnings)
	if report != nil {
		score -= int((1 - report.Visual.SSIM) * 100)
		score -= report.Visual.PerceptualHashDistance
	}
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	return score
}
