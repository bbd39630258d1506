package repos

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"github.com/yungbote/archsheet-backend/internal/domain"
	"github.com/yungbote/archsheet-backend/internal/platform/apierr"
	"github.com/yungbote/archsheet-backend/internal/platform/logger"
)

// BaselineRepo stores frozen sheet versions. The (design_id, version) pair is
// unique; a duplicate insert surfaces as a baseline_conflict error so callers
// can tell a concurrent commit from a storage failure.
type BaselineRepo interface {
	Create(ctx context.Context, tx *gorm.DB, row *domain.SheetBaseline) error
	GetByDesignVersion(ctx context.Context, tx *gorm.DB, designID string, version int) (*domain.SheetBaseline, error)
	GetLatest(ctx context.Context, tx *gorm.DB, designID string) (*domain.SheetBaseline, error)
	ListByDesign(ctx context.Context, tx *gorm.DB, designID string) ([]*domain.SheetBaseline, error)
	NextVersion(ctx context.Context, tx *gorm.DB, designID string) (int, error)
	DeleteByDesign(ctx context.Context, tx *gorm.DB, designID string) error
}

type baselineRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewBaselineRepo(db *gorm.DB, baseLog *logger.Logger) BaselineRepo {
	return &baselineRepo{db: db, log: baseLog.With("repo", "BaselineRepo")}
}

func (r *baselineRepo) Create(ctx context.Context, tx *gorm.DB, row *domain.SheetBaseline) error {
	t := tx
	if t == nil {
		t = r.db
	}
	if row == nil {
		return nil
	}
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	if err := t.WithContext(ctx).Create(row).Error; err != nil {
		if isUniqueViolation(err) {
			return apierr.Conflict(err).WithDetails(map[string]any{
				"design_id": row.DesignID,
				"version":   row.Version,
			})
		}
		return err
	}
	return nil
}

func (r *baselineRepo) GetByDesignVersion(ctx context.Context, tx *gorm.DB, designID string, version int) (*domain.SheetBaseline, error) {
	t := tx
	if t == nil {
		t = r.db
	}
	if designID == "" || version <= 0 {
		return nil, nil
	}
	var out domain.SheetBaseline
	err := t.WithContext(ctx).
		Where("design_id = ? AND version = ?", designID, version).
		First(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *baselineRepo) GetLatest(ctx context.Context, tx *gorm.DB, designID string) (*domain.SheetBaseline, error) {
	t := tx
	if t == nil {
		t = r.db
	}
	if designID == "" {
		return nil, nil
	}
	var out domain.SheetBaseline
	err := t.WithContext(ctx).
		Where("design_id = ?", designID).
		Order("version DESC").
		First(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *baselineRepo) ListByDesign(ctx context.Context, tx *gorm.DB, designID string) ([]*domain.SheetBaseline, error) {
	t := tx
	if t == nil {
		t = r.db
	}
	var out []*domain.SheetBaseline
	if designID == "" {
		return out, nil
	}
	if err := t.WithContext(ctx).
		Where("design_id = ?", designID).
		Order("version ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *baselineRepo) NextVersion(ctx context.Context, tx *gorm.DB, designID string) (int, error) {
	latest, err := r.GetLatest(ctx, tx, designID)
	if err != nil {
		return 0, err
	}
	if latest == nil {
		return 1, nil
	}
	return latest.Version + 1, nil
}

func (r *baselineRepo) DeleteByDesign(ctx context.Context, tx *gorm.DB, designID string) error {
	t := tx
	if t == nil {
		t = r.db
	}
	if designID == "" {
		return nil
	}
	return t.WithContext(ctx).
		Where("design_id = ?", designID).
		Delete(&domain.SheetBaseline{}).Error
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	// sqlite driver reports constraint failures as plain strings.
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
