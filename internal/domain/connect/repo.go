package connect

import (
	"context"
	"time"
)

// ConnectionRepository is the durable store of Connection records. Every
// operation is scoped by patient ID; no query path spans patients.
type ConnectionRepository interface {
	Create(ctx context.Context, conn *Connection) error
	ListByPatient(ctx context.Context, patientID string) ([]*Connection, error)
	Get(ctx context.Context, patientID, connectionID string) (*Connection, error)
	// Delete removes the record only when both keys match an existing row.
	// It reports whether a row was actually deleted, so a caller holding a
	// connection ID it does not own deletes nothing.
	Delete(ctx context.Context, patientID, connectionID string) (bool, error)
	// UpdateSyncState is the mutation surface reserved for the sync
	// collaborator: status, lastSynced, and recordCount only.
	UpdateSyncState(ctx context.Context, patientID, connectionID, status string, lastSynced time.Time, recordCount int) error
}
