package store

import (
	"database/sql"

	"github.com/obycode/stackflow-sub001/internal/model"
)

// SetObservedPipe upserts the on-chain view of a pipe. The whole row is
// replaced in one statement since ObservedPipe carries no sub-collection
// that would need a separate transaction to stay consistent.
func (s *Store) SetObservedPipe(p model.ObservedPipe) error {
	p.UpdatedAt = now()

	var plAmt, phAmt sql.NullString
	var plUnlock, phUnlock sql.NullInt64
	if p.PendingLow != nil {
		plAmt = sql.NullString{String: p.PendingLow.Amount, Valid: true}
		plUnlock = sql.NullInt64{Int64: int64(p.PendingLow.UnlockBurnHeight), Valid: true}
	}
	if p.PendingHigh != nil {
		phAmt = sql.NullString{String: p.PendingHigh.Amount, Valid: true}
		phUnlock = sql.NullInt64{Int64: int64(p.PendingHigh.UnlockBurnHeight), Valid: true}
	}
	var expiresAt sql.NullInt64
	if p.ExpiresAt != nil {
		expiresAt = sql.NullInt64{Int64: int64(*p.ExpiresAt), Valid: true}
	}

	_, err := s.db.Exec(`
		INSERT INTO observed_pipes (
			contract_id, pipe_id, token, principal_low, principal_high,
			balance_low, balance_high,
			pending_low_amount, pending_low_unlock,
			pending_high_amount, pending_high_unlock,
			expires_at, nonce, closer, event, txid, block_height, updated_at
		) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)
		ON CONFLICT(contract_id, pipe_id) DO UPDATE SET
			token=excluded.token,
			principal_low=excluded.principal_low,
			principal_high=excluded.principal_high,
			balance_low=excluded.balance_low,
			balance_high=excluded.balance_high,
			pending_low_amount=excluded.pending_low_amount,
			pending_low_unlock=excluded.pending_low_unlock,
			pending_high_amount=excluded.pending_high_amount,
			pending_high_unlock=excluded.pending_high_unlock,
			expires_at=excluded.expires_at,
			nonce=excluded.nonce,
			closer=excluded.closer,
			event=excluded.event,
			txid=excluded.txid,
			block_height=excluded.block_height,
			updated_at=excluded.updated_at
	`,
		p.ContractID, p.PipeID, p.Token, p.PrincipalLow, p.PrincipalHigh,
		p.BalanceLow, p.BalanceHigh,
		plAmt, plUnlock, phAmt, phUnlock,
		expiresAt, p.Nonce, p.Closer, p.Event, p.Txid, p.BlockHeight, p.UpdatedAt,
	)
	return err
}

func (s *Store) GetObservedPipe(contractID, pipeID string) (*model.ObservedPipe, error) {
	row := s.db.QueryRow(`
		SELECT contract_id, pipe_id, token, principal_low, principal_high,
			balance_low, balance_high,
			pending_low_amount, pending_low_unlock,
			pending_high_amount, pending_high_unlock,
			expires_at, nonce, closer, event, txid, block_height, updated_at
		FROM observed_pipes WHERE contract_id = ? AND pipe_id = ?`,
		contractID, pipeID)
	p, err := scanObservedPipe(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return p, err
}

func (s *Store) ListObservedPipes() ([]model.ObservedPipe, error) {
	rows, err := s.db.Query(`
		SELECT contract_id, pipe_id, token, principal_low, principal_high,
			balance_low, balance_high,
			pending_low_amount, pending_low_unlock,
			pending_high_amount, pending_high_unlock,
			expires_at, nonce, closer, event, txid, block_height, updated_at
		FROM observed_pipes ORDER BY contract_id, pipe_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.ObservedPipe
	for rows.Next() {
		p, err := scanObservedPipe(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanObservedPipe(row rowScanner) (*model.ObservedPipe, error) {
	var p model.ObservedPipe
	var plAmt, phAmt sql.NullString
	var plUnlock, phUnlock, expiresAt sql.NullInt64

	err := row.Scan(
		&p.ContractID, &p.PipeID, &p.Token, &p.PrincipalLow, &p.PrincipalHigh,
		&p.BalanceLow, &p.BalanceHigh,
		&plAmt, &plUnlock, &phAmt, &phUnlock,
		&expiresAt, &p.Nonce, &p.Closer, &p.Event, &p.Txid, &p.BlockHeight, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if plAmt.Valid {
		p.PendingLow = &model.Pending{Amount: plAmt.String, UnlockBurnHeight: uint64(plUnlock.Int64)}
	}
	if phAmt.Valid {
		p.PendingHigh = &model.Pending{Amount: phAmt.String, UnlockBurnHeight: uint64(phUnlock.Int64)}
	}
	if expiresAt.Valid {
		v := uint64(expiresAt.Int64)
		p.ExpiresAt = &v
	}
	return &p, nil
}
