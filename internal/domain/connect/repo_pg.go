package connect

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type connectionRepoPG struct{ pool *pgxpool.Pool }

func NewConnectionRepoPG(pool *pgxpool.Pool) ConnectionRepository {
	return &connectionRepoPG{pool: pool}
}

const connCols = `connection_id, patient_id, provider, provider_name, org_id,
	fhir_base_url, token_url, access_token, refresh_token, expires_in, scope,
	patient_fhir_id, status, last_synced, created_at, record_count, facility_name`

func scanConnection(row pgx.Row) (*Connection, error) {
	var c Connection
	err := row.Scan(&c.ConnectionID, &c.PatientID, &c.Provider, &c.ProviderName, &c.OrgID,
		&c.FHIRBaseURL, &c.TokenURL, &c.AccessToken, &c.RefreshToken, &c.ExpiresIn, &c.Scope,
		&c.PatientFHIRID, &c.Status, &c.LastSynced, &c.CreatedAt, &c.RecordCount, &c.FacilityName)
	return &c, err
}

func (r *connectionRepoPG) Create(ctx context.Context, conn *Connection) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO fhir_connection (connection_id, patient_id, provider, provider_name, org_id,
			fhir_base_url, token_url, access_token, refresh_token, expires_in, scope,
			patient_fhir_id, status, last_synced, created_at, record_count, facility_name)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)`,
		conn.ConnectionID, conn.PatientID, conn.Provider, conn.ProviderName, conn.OrgID,
		conn.FHIRBaseURL, conn.TokenURL, conn.AccessToken, conn.RefreshToken, conn.ExpiresIn, conn.Scope,
		conn.PatientFHIRID, conn.Status, conn.LastSynced, conn.CreatedAt, conn.RecordCount, conn.FacilityName)
	return err
}

func (r *connectionRepoPG) ListByPatient(ctx context.Context, patientID string) ([]*Connection, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+connCols+` FROM fhir_connection WHERE patient_id = $1 ORDER BY created_at DESC`,
		patientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*Connection
	for rows.Next() {
		c, err := scanConnection(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, c)
	}
	return items, rows.Err()
}

func (r *connectionRepoPG) Get(ctx context.Context, patientID, connectionID string) (*Connection, error) {
	return scanConnection(r.pool.QueryRow(ctx,
		`SELECT `+connCols+` FROM fhir_connection WHERE patient_id = $1 AND connection_id = $2`,
		patientID, connectionID))
}

func (r *connectionRepoPG) Delete(ctx context.Context, patientID, connectionID string) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM fhir_connection WHERE patient_id = $1 AND connection_id = $2`,
		patientID, connectionID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *connectionRepoPG) UpdateSyncState(ctx context.Context, patientID, connectionID, status string, lastSynced time.Time, recordCount int) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE fhir_connection SET status = $3, last_synced = $4, record_count = $5
		WHERE patient_id = $1 AND connection_id = $2`,
		patientID, connectionID, status, lastSynced, recordCount)
	return err
}
