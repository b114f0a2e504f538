package memory

import (
	"sync"
	"time"

	"soulforge/internal/app/ports"
)

// Store backs the in-process repositories. Repositories do not lock on their
// own; every access goes through TxManager.RunInTx, which holds mu.
type Store struct {
	mu       sync.RWMutex
	audits   map[string]ports.OutcomeAuditRecord
	byAction map[string]string
	rates    map[string][]time.Time
}

func NewStore() *Store {
	return &Store{
		audits:   make(map[string]ports.OutcomeAuditRecord),
		byAction: make(map[string]string),
		rates:    make(map[string][]time.Time),
	}
}

func actionKey(identity, id string) string {
	return identity + "::" + id
}
