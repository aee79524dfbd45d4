package store

import (
	"database/sql"

	"github.com/obycode/stackflow-sub001/internal/model"
)

// SetDisputeAttempt records the outcome of a dispute submission attempt.
// A failed attempt is retriable, so this is an upsert keyed on
// attempt_id rather than a plain insert: a later call for the same id
// (e.g. after the executor timed out and a subsequent triggering event
// re-evaluates the same closure) overwrites the earlier failed row
// instead of violating the primary key.
func (s *Store) SetDisputeAttempt(d model.DisputeAttempt) error {
	d.CreatedAt = now()

	var disputeTxid, errStr sql.NullString
	if d.DisputeTxid != nil {
		disputeTxid = sql.NullString{String: *d.DisputeTxid, Valid: true}
	}
	if d.Error != nil {
		errStr = sql.NullString{String: *d.Error, Valid: true}
	}

	_, err := s.db.Exec(`
		INSERT INTO dispute_attempts (
			attempt_id, contract_id, pipe_id, for_principal, trigger_txid,
			success, dispute_txid, error, created_at
		) VALUES (?,?,?,?,?,?,?,?,?)
		ON CONFLICT(attempt_id) DO UPDATE SET
			contract_id = excluded.contract_id,
			pipe_id = excluded.pipe_id,
			for_principal = excluded.for_principal,
			trigger_txid = excluded.trigger_txid,
			success = excluded.success,
			dispute_txid = excluded.dispute_txid,
			error = excluded.error,
			created_at = excluded.created_at`,
		d.AttemptID, d.ContractID, d.PipeID, d.ForPrincipal, d.TriggerTxid,
		d.Success, disputeTxid, errStr, d.CreatedAt,
	)
	return err
}

func (s *Store) GetDisputeAttempt(attemptID string) (*model.DisputeAttempt, error) {
	row := s.db.QueryRow(`
		SELECT attempt_id, contract_id, pipe_id, for_principal, trigger_txid,
			success, dispute_txid, error, created_at
		FROM dispute_attempts WHERE attempt_id = ?`, attemptID)
	d, err := scanDisputeAttempt(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return d, err
}

// ListDisputeAttempts returns attempts newest-first, optionally capped at
// limit (limit <= 0 means unbounded).
func (s *Store) ListDisputeAttempts(limit int) ([]model.DisputeAttempt, error) {
	q := `
		SELECT attempt_id, contract_id, pipe_id, for_principal, trigger_txid,
			success, dispute_txid, error, created_at
		FROM dispute_attempts ORDER BY created_at DESC`
	var rows *sql.Rows
	var err error
	if limit > 0 {
		rows, err = s.db.Query(q+" LIMIT ?", limit)
	} else {
		rows, err = s.db.Query(q)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.DisputeAttempt
	for rows.Next() {
		d, err := scanDisputeAttempt(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *d)
	}
	return out, rows.Err()
}

func scanDisputeAttempt(row rowScanner) (*model.DisputeAttempt, error) {
	var d model.DisputeAttempt
	var disputeTxid, errStr sql.NullString

	err := row.Scan(
		&d.AttemptID, &d.ContractID, &d.PipeID, &d.ForPrincipal, &d.TriggerTxid,
		&d.Success, &disputeTxid, &errStr, &d.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if disputeTxid.Valid {
		d.DisputeTxid = &disputeTxid.String
	}
	if errStr.Valid {
		d.Error = &errStr.String
	}
	return &d, nil
}
