package store

import (
	"database/sql"

	"github.com/obycode/stackflow-sub001/internal/model"
)

// SetClosure inserts or replaces the active closure for a pipe.
func (s *Store) SetClosure(c model.Closure) error {
	c.UpdatedAt = now()

	var expiresAt sql.NullInt64
	if c.ExpiresAt != nil {
		expiresAt = sql.NullInt64{Int64: int64(*c.ExpiresAt), Valid: true}
	}
	var nonce sql.NullInt64
	if c.Nonce != nil {
		nonce = sql.NullInt64{Int64: int64(*c.Nonce), Valid: true}
	}

	_, err := s.db.Exec(`
		INSERT INTO closures (
			pipe_id, contract_id, token, principal_low, principal_high,
			closer, expires_at, nonce, event, txid, block_height, updated_at
		) VALUES (?,?,?,?,?,?,?,?,?,?,?,?)
		ON CONFLICT(pipe_id) DO UPDATE SET
			contract_id=excluded.contract_id,
			token=excluded.token,
			principal_low=excluded.principal_low,
			principal_high=excluded.principal_high,
			closer=excluded.closer,
			expires_at=excluded.expires_at,
			nonce=excluded.nonce,
			event=excluded.event,
			txid=excluded.txid,
			block_height=excluded.block_height,
			updated_at=excluded.updated_at
	`,
		c.PipeID, c.ContractID, c.Token, c.PrincipalLow, c.PrincipalHigh,
		c.Closer, expiresAt, nonce, c.Event, c.Txid, c.BlockHeight, c.UpdatedAt,
	)
	return err
}

// DeleteClosure removes the active closure for a pipe, if any.
func (s *Store) DeleteClosure(pipeID string) error {
	_, err := s.db.Exec(`DELETE FROM closures WHERE pipe_id = ?`, pipeID)
	return err
}

func (s *Store) GetClosure(pipeID string) (*model.Closure, error) {
	row := s.db.QueryRow(`
		SELECT pipe_id, contract_id, token, principal_low, principal_high,
			closer, expires_at, nonce, event, txid, block_height, updated_at
		FROM closures WHERE pipe_id = ?`, pipeID)
	c, err := scanClosure(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return c, err
}

// ListClosures returns every active closure sorted by expiry ascending,
// then pipe_id ascending, as required by the GET /closures route.
func (s *Store) ListClosures() ([]model.Closure, error) {
	rows, err := s.db.Query(`
		SELECT pipe_id, contract_id, token, principal_low, principal_high,
			closer, expires_at, nonce, event, txid, block_height, updated_at
		FROM closures
		ORDER BY (expires_at IS NULL) ASC, expires_at ASC, pipe_id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Closure
	for rows.Next() {
		c, err := scanClosure(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

func scanClosure(row rowScanner) (*model.Closure, error) {
	var c model.Closure
	var expiresAt, nonce sql.NullInt64

	err := row.Scan(
		&c.PipeID, &c.ContractID, &c.Token, &c.PrincipalLow, &c.PrincipalHigh,
		&c.Closer, &expiresAt, &nonce, &c.Event, &c.Txid, &c.BlockHeight, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if expiresAt.Valid {
		v := uint64(expiresAt.Int64)
		c.ExpiresAt = &v
	}
	if nonce.Valid {
		v := uint64(nonce.Int64)
		c.Nonce = &v
	}
	return &c, nil
}
