package connect

import (
	"context"
	"fmt"
	"time"
)

// Syncer is the collaborator boundary for resource synchronization. An
// implementation must be idempotent and safe to call repeatedly, and must
// downgrade the connection's status to expired when the remote system
// answers 401 instead of raising an unhandled fault. Actual resource
// fetching lives outside this core.
type Syncer interface {
	Sync(ctx context.Context, patientID, connectionID string) (recordCount int, err error)
}

// StubSyncer fulfils the Syncer contract without fetching anything: it
// touches lastSynced on the owned connection and reports the stored record
// count. Repeated calls are harmless.
type StubSyncer struct {
	repo ConnectionRepository
}

func NewStubSyncer(repo ConnectionRepository) *StubSyncer {
	return &StubSyncer{repo: repo}
}

func (s *StubSyncer) Sync(ctx context.Context, patientID, connectionID string) (int, error) {
	conn, err := s.repo.Get(ctx, patientID, connectionID)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if err := s.repo.UpdateSyncState(ctx, patientID, connectionID, conn.Status, time.Now().UTC(), conn.RecordCount); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return conn.RecordCount, nil
}
