package ports

type OutcomeMetrics interface {
	RecordOutcome(action, result string)
	RecordFeral(action string)
	RecordAnomaly(action string)
	RecordRejected(reason string)
}
