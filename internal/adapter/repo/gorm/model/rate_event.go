package model

import "time"

const TableNameRateEvent = "rate_events"

// RateEvent mapped from table <rate_events>
type RateEvent struct {
	ID         int64     `gorm:"column:id;primaryKey;autoIncrement:true" json:"id"`
	Identity   string    `gorm:"column:identity;not null" json:"identity"`
	Action     string    `gorm:"column:action;not null" json:"action"`
	OccurredAt time.Time `gorm:"column:occurred_at;not null" json:"occurred_at"`
}

// TableName RateEvent's table name
func (*RateEvent) TableName() string {
	return TableNameRateEvent
}
