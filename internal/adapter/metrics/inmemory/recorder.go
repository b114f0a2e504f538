package inmemory

import "sync"

type Snapshot struct {
	OutcomeTotal uint64            `json:"outcome_total"`
	Rejected     uint64            `json:"rejected"`
	Anomalies    uint64            `json:"anomalies"`
	FeralAttacks uint64            `json:"feral_attacks"`
	ByResult     map[string]uint64 `json:"by_result"`
	ByAction     map[string]uint64 `json:"by_action"`
	ByRejection  map[string]uint64 `json:"by_rejection"`
}

type Recorder struct {
	mu          sync.Mutex
	outcomes    uint64
	anomalies   uint64
	ferals      uint64
	byResult    map[string]uint64
	byAction    map[string]uint64
	byRejection map[string]uint64
}

func NewRecorder() *Recorder {
	return &Recorder{
		byResult:    map[string]uint64{},
		byAction:    map[string]uint64{},
		byRejection: map[string]uint64{},
	}
}

func (r *Recorder) RecordOutcome(action, result string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes++
	r.byResult[result]++
	r.byAction[action]++
}

func (r *Recorder) RecordFeral(string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ferals++
}

func (r *Recorder) RecordAnomaly(string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.anomalies++
}

func (r *Recorder) RecordRejected(reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byRejection[reason]++
}

func (r *Recorder) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := Snapshot{
		OutcomeTotal: r.outcomes,
		Anomalies:    r.anomalies,
		FeralAttacks: r.ferals,
		ByResult:     copyCounts(r.byResult),
		ByAction:     copyCounts(r.byAction),
		ByRejection:  copyCounts(r.byRejection),
	}
	for _, v := range r.byRejection {
		out.Rejected += v
	}
	return out
}

func (r *Recorder) SnapshotAny() any {
	return r.Snapshot()
}

func copyCounts(in map[string]uint64) map[string]uint64 {
	out := make(map[string]uint64, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
