package store

import (
	"database/sql"

	"github.com/obycode/stackflow-sub001/internal/model"
)

// UpsertSignatureStateIfHigherNonce implements the signature-state
// monotonicity rule: the existing row (if any) is read and compared to
// candidate.Nonce inside the same transaction as the write, so two
// concurrent callers racing on the same
// (contract_id, pipe_id, for_principal) key can never both succeed with
// stored=true for the same nonce — at most one write commits, and the
// loser observes the winner's row and is rejected with nonce-too-low
// (or stored as a replace, if its own nonce is in fact higher).
func (s *Store) UpsertSignatureStateIfHigherNonce(ss model.SignatureState) (stored bool, replaced bool, existing *model.SignatureState, err error) {
	tx, err := s.db.Begin()
	if err != nil {
		return false, false, nil, err
	}
	defer tx.Rollback()

	row := tx.QueryRow(`
		SELECT contract_id, pipe_id, for_principal, with_principal, token,
			action, amount, my_balance, their_balance, my_signature,
			their_signature, nonce, actor, secret, valid_after,
			beneficial_only, updated_at
		FROM signature_states
		WHERE contract_id = ? AND pipe_id = ? AND for_principal = ?`,
		ss.ContractID, ss.PipeID, ss.ForPrincipal)

	existing, scanErr := scanSignatureState(row)
	switch {
	case scanErr == sql.ErrNoRows:
		existing = nil
	case scanErr != nil:
		return false, false, nil, scanErr
	}

	if existing != nil && existing.Nonce >= ss.Nonce {
		return false, false, existing, tx.Commit()
	}

	ss.UpdatedAt = now()
	if err := execSignatureStateUpsert(tx, ss); err != nil {
		return false, false, nil, err
	}
	if err := tx.Commit(); err != nil {
		return false, false, nil, err
	}
	return true, existing != nil, &ss, nil
}

func execSignatureStateUpsert(tx *sql.Tx, ss model.SignatureState) error {
	var secret sql.NullString
	if ss.Secret != nil {
		secret = sql.NullString{String: *ss.Secret, Valid: true}
	}
	var validAfter sql.NullInt64
	if ss.ValidAfter != nil {
		validAfter = sql.NullInt64{Int64: int64(*ss.ValidAfter), Valid: true}
	}

	_, err := tx.Exec(`
		INSERT INTO signature_states (
			contract_id, pipe_id, for_principal, with_principal, token,
			action, amount, my_balance, their_balance, my_signature,
			their_signature, nonce, actor, secret, valid_after,
			beneficial_only, updated_at
		) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)
		ON CONFLICT(contract_id, pipe_id, for_principal) DO UPDATE SET
			with_principal=excluded.with_principal,
			token=excluded.token,
			action=excluded.action,
			amount=excluded.amount,
			my_balance=excluded.my_balance,
			their_balance=excluded.their_balance,
			my_signature=excluded.my_signature,
			their_signature=excluded.their_signature,
			nonce=excluded.nonce,
			actor=excluded.actor,
			secret=excluded.secret,
			valid_after=excluded.valid_after,
			beneficial_only=excluded.beneficial_only,
			updated_at=excluded.updated_at
	`,
		ss.ContractID, ss.PipeID, ss.ForPrincipal, ss.WithPrincipal, ss.Token,
		int(ss.Action), ss.Amount, ss.MyBalance, ss.TheirBalance, ss.MySignature,
		ss.TheirSignature, ss.Nonce, ss.Actor, secret, validAfter,
		ss.BeneficialOnly, ss.UpdatedAt,
	)
	return err
}

func (s *Store) GetSignatureStatesForPipe(contractID, pipeID string) ([]model.SignatureState, error) {
	rows, err := s.db.Query(`
		SELECT contract_id, pipe_id, for_principal, with_principal, token,
			action, amount, my_balance, their_balance, my_signature,
			their_signature, nonce, actor, secret, valid_after,
			beneficial_only, updated_at
		FROM signature_states
		WHERE contract_id = ? AND pipe_id = ?`, contractID, pipeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSignatureStates(rows)
}

// ListSignatureStates returns every signature state, sorted nonce
// descending for the GET /signature-states?limit=N route.
func (s *Store) ListSignatureStates(limit int) ([]model.SignatureState, error) {
	q := `
		SELECT contract_id, pipe_id, for_principal, with_principal, token,
			action, amount, my_balance, their_balance, my_signature,
			their_signature, nonce, actor, secret, valid_after,
			beneficial_only, updated_at
		FROM signature_states
		ORDER BY nonce DESC`
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
	return scanSignatureStates(rows)
}

func scanSignatureStates(rows *sql.Rows) ([]model.SignatureState, error) {
	var out []model.SignatureState
	for rows.Next() {
		ss, err := scanSignatureState(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *ss)
	}
	return out, rows.Err()
}

func scanSignatureState(row rowScanner) (*model.SignatureState, error) {
	var ss model.SignatureState
	var action int
	var secret sql.NullString
	var validAfter sql.NullInt64
	var beneficialOnly int

	err := row.Scan(
		&ss.ContractID, &ss.PipeID, &ss.ForPrincipal, &ss.WithPrincipal, &ss.Token,
		&action, &ss.Amount, &ss.MyBalance, &ss.TheirBalance, &ss.MySignature,
		&ss.TheirSignature, &ss.Nonce, &ss.Actor, &secret, &validAfter,
		&beneficialOnly, &ss.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	ss.Action = model.Action(action)
	if secret.Valid {
		ss.Secret = &secret.String
	}
	if validAfter.Valid {
		v := uint64(validAfter.Int64)
		ss.ValidAfter = &v
	}
	ss.BeneficialOnly = beneficialOnly != 0
	return &ss, nil
}
