package store

import (
	"github.com/obycode/stackflow-sub001/internal/model"
)

// RecordEvent inserts a raw chain event into the bounded ring buffer and
// evicts the oldest rows beyond maxRecentEvents, keeping the event log
// fixed-size rather than letting it grow unbounded.
func (s *Store) RecordEvent(e model.RecordedEvent) error {
	e.RecordedAt = now()

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO recorded_events (contract_id, txid, block_height, event_name, payload, recorded_at)
		VALUES (?,?,?,?,?,?)`,
		e.ContractID, e.Txid, e.BlockHeight, e.EventName, e.Payload, e.RecordedAt)
	if err != nil {
		return err
	}

	if s.maxRecentEvents > 0 {
		_, err = tx.Exec(`
			DELETE FROM recorded_events
			WHERE seq NOT IN (
				SELECT seq FROM recorded_events ORDER BY seq DESC LIMIT ?
			)`, s.maxRecentEvents)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// ListRecordedEvents returns the most recent events, newest first,
// capped at limit (limit <= 0 means unbounded).
func (s *Store) ListRecordedEvents(limit int) ([]model.RecordedEvent, error) {
	q := `SELECT seq, contract_id, txid, block_height, event_name, payload, recorded_at
		FROM recorded_events ORDER BY seq DESC`
	args := []interface{}{}
	if limit > 0 {
		q += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.Query(q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.RecordedEvent
	for rows.Next() {
		var e model.RecordedEvent
		if err := rows.Scan(&e.Seq, &e.ContractID, &e.Txid, &e.BlockHeight,
			&e.EventName, &e.Payload, &e.RecordedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
