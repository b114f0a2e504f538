package gormrepo

import (
	"context"
	"time"

	"soulforge/internal/adapter/repo/gorm/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type RateHistoryStore struct {
	db *gorm.DB
}

func NewRateHistoryStore(db *gorm.DB) RateHistoryStore {
	return RateHistoryStore{db: db}
}

func (s RateHistoryStore) Append(ctx context.Context, identity, action string, at time.Time) error {
	return conn(ctx, s.db).Create(&model.RateEvent{Identity: identity, Action: action, OccurredAt: at}).Error
}

func (s RateHistoryStore) Since(ctx context.Context, identity, action string, since time.Time) ([]time.Time, error) {
	rows := []model.RateEvent{}
	err := conn(ctx, s.db).
		Where("identity = ? AND action = ? AND occurred_at >= ?", identity, action, since).
		Clauses(clause.OrderBy{
			Columns: []clause.OrderByColumn{{Column: clause.Column{Name: "occurred_at"}}},
		}).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]time.Time, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.OccurredAt)
	}
	return out, nil
}

func (s RateHistoryStore) Prune(ctx context.Context, before time.Time) (int, error) {
	res := conn(ctx, s.db).Where("occurred_at < ?", before).Delete(&model.RateEvent{})
	if res.Error != nil {
		return 0, res.Error
	}
	return int(res.RowsAffected), nil
}
