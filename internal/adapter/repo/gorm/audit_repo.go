package gormrepo

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"soulforge/internal/adapter/repo/gorm/model"
	"soulforge/internal/app/ports"

	"gorm.io/gorm"
)

type OutcomeAuditRepo struct {
	db *gorm.DB
}

func NewOutcomeAuditRepo(db *gorm.DB) OutcomeAuditRepo {
	return OutcomeAuditRepo{db: db}
}

func (r OutcomeAuditRepo) Save(ctx context.Context, rec ports.OutcomeAuditRecord) error {
	m := model.OutcomeAudit{
		ID:        rec.ID,
		Identity:  rec.Identity,
		ActionID:  rec.ActionID,
		Action:    rec.Action,
		Subtype:   rec.Subtype,
		EntityID:  rec.EntityID,
		Result:    rec.Result,
		Seed:      strconv.FormatUint(rec.Seed, 10),
		Signature: rec.Signature,
		Payload:   string(rec.Payload),
		StartedAt: rec.StartedAt,
		CreatedAt: rec.CreatedAt,
	}
	err := conn(ctx, r.db).Create(&m).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ports.ErrConflict
	}
	return err
}

func (r OutcomeAuditRepo) Get(ctx context.Context, id string) (ports.OutcomeAuditRecord, error) {
	return r.first(ctx, &model.OutcomeAudit{ID: id})
}

func (r OutcomeAuditRepo) GetByAction(ctx context.Context, identity, actionID string) (ports.OutcomeAuditRecord, error) {
	return r.first(ctx, &model.OutcomeAudit{Identity: identity, ActionID: actionID})
}

func (r OutcomeAuditRepo) StatsFor(ctx context.Context, identity, action string, since time.Time) (ports.OutcomeStats, error) {
	var row struct {
		Attempts  int64
		Successes int64
	}
	err := conn(ctx, r.db).
		Model(&model.OutcomeAudit{}).
		Select("COUNT(*) AS attempts, COUNT(*) FILTER (WHERE result = ?) AS successes", "success").
		Where("identity = ? AND action = ? AND created_at >= ?", identity, action, since).
		Scan(&row).Error
	if err != nil {
		return ports.OutcomeStats{}, err
	}
	return ports.OutcomeStats{Attempts: int(row.Attempts), Successes: int(row.Successes)}, nil
}

func (r OutcomeAuditRepo) first(ctx context.Context, where *model.OutcomeAudit) (ports.OutcomeAuditRecord, error) {
	var m model.OutcomeAudit
	err := conn(ctx, r.db).Where(where).First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ports.OutcomeAuditRecord{}, ports.ErrNotFound
		}
		return ports.OutcomeAuditRecord{}, err
	}
	seed, err := strconv.ParseUint(m.Seed, 10, 64)
	if err != nil {
		return ports.OutcomeAuditRecord{}, fmt.Errorf("audit %s: parse seed: %w", m.ID, err)
	}
	return ports.OutcomeAuditRecord{
		ID:        m.ID,
		Identity:  m.Identity,
		ActionID:  m.ActionID,
		Action:    m.Action,
		Subtype:   m.Subtype,
		EntityID:  m.EntityID,
		Result:    m.Result,
		Seed:      seed,
		Signature: m.Signature,
		Payload:   []byte(m.Payload),
		StartedAt: m.StartedAt,
		CreatedAt: m.CreatedAt,
	}, nil
}
