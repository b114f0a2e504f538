package model

import "time"

const TableNameOutcomeAudit = "outcome_audits"

// OutcomeAudit mapped from table <outcome_audits>
type OutcomeAudit struct {
	ID        string    `gorm:"column:id;primaryKey" json:"id"`
	Identity  string    `gorm:"column:identity;not null" json:"identity"`
	ActionID  string    `gorm:"column:action_id;not null" json:"action_id"`
	Action    string    `gorm:"column:action;not null" json:"action"`
	Subtype   string    `gorm:"column:subtype;not null" json:"subtype"`
	EntityID  string    `gorm:"column:entity_id;not null" json:"entity_id"`
	Result    string    `gorm:"column:result;not null" json:"result"`
	Seed      string    `gorm:"column:seed;not null" json:"seed"`
	Signature string    `gorm:"column:signature;not null" json:"signature"`
	Payload   string    `gorm:"column:payload;type:jsonb;not null" json:"payload"`
	StartedAt time.Time `gorm:"column:started_at;not null" json:"started_at"`
	CreatedAt time.Time `gorm:"column:created_at;not null" json:"created_at"`
}

// TableName OutcomeAudit's table name
func (*OutcomeAudit) TableName() string {
	return TableNameOutcomeAudit
}
