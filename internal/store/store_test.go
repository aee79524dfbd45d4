package store

import (
	"path/filepath"
	"testing"

	"github.com/obycode/stackflow-sub001/internal/model"
	"github.com/stretchr/testify/require"
)

func testPipeKey() model.PipeKey {
	return model.PipeKey{
		Token:         "",
		PrincipalLow:  "SP1LOW00000000000000000000000000000000",
		PrincipalHigh: "SP2HIGH0000000000000000000000000000000",
	}
}

func TestRestartDurability(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "watchtower-state.db")

	s, err := Open(path, 10)
	require.NoError(t, err)

	key := testPipeKey()
	observed := model.ObservedPipe{
		ContractID: "SPXX.pipe",
		PipeID:     "deadbeef",
		PipeKey:    key,
		BalanceLow: "100", BalanceHigh: "200",
		Nonce: 4, Event: "fund-pipe", Txid: "0x01", BlockHeight: 10,
	}
	require.NoError(t, s.SetObservedPipe(observed))

	closureNonce := uint64(4)
	closure := model.Closure{
		PipeID: "deadbeef", PipeKey: key,
		Closer: key.PrincipalLow, Nonce: &closureNonce, Event: "force-close",
		Txid: "0x02", BlockHeight: 11,
	}
	require.NoError(t, s.SetClosure(closure))

	ss := model.SignatureState{
		ContractID: "SPXX.pipe", PipeID: "deadbeef",
		ForPrincipal: key.PrincipalLow, WithPrincipal: key.PrincipalHigh,
		Action: model.ActionTransfer, Amount: "0",
		MyBalance: "150", TheirBalance: "150",
		MySignature:    "aa",
		TheirSignature: "bb",
		Nonce:          5, Actor: key.PrincipalLow,
	}
	stored, replaced, _, err := s.UpsertSignatureStateIfHigherNonce(ss)
	require.NoError(t, err)
	require.True(t, stored)
	require.False(t, replaced)

	dTxid := "0xmockdispute"
	require.NoError(t, s.SetDisputeAttempt(model.DisputeAttempt{
		AttemptID: "0x02|" + key.PrincipalLow, ContractID: "SPXX.pipe",
		PipeID: "deadbeef", ForPrincipal: key.PrincipalLow,
		TriggerTxid: "0x02", Success: true, DisputeTxid: &dTxid,
	}))

	require.NoError(t, s.RecordEvent(model.RecordedEvent{
		ContractID: "SPXX.pipe", Txid: "0x02", BlockHeight: 11,
		EventName: "force-close", Payload: "{}",
	}))

	before, err := s.GetSnapshot()
	require.NoError(t, err)
	require.NoError(t, s.Close())

	// Reopen and verify the snapshot survives the restart.
	s2, err := Open(path, 10)
	require.NoError(t, err)
	defer s2.Close()

	after, err := s2.GetSnapshot()
	require.NoError(t, err)

	require.Equal(t, before.ObservedPipes, after.ObservedPipes)
	require.Equal(t, before.Closures, after.Closures)
	require.Equal(t, before.SignatureStates, after.SignatureStates)
	require.Equal(t, before.DisputeAttempts, after.DisputeAttempts)
}

func TestSignatureStateNonceMonotonicity(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(filepath.Join(dir, "db.sqlite"), 10)
	require.NoError(t, err)
	defer s.Close()

	key := testPipeKey()
	base := model.SignatureState{
		ContractID: "SPXX.pipe", PipeID: "deadbeef",
		ForPrincipal: key.PrincipalLow, WithPrincipal: key.PrincipalHigh,
		Action: model.ActionTransfer, Amount: "0",
		MyBalance: "900", TheirBalance: "100",
		MySignature: "aa", TheirSignature: "bb",
		Actor: key.PrincipalLow,
	}

	base.Nonce = 5
	stored, replaced, _, err := s.UpsertSignatureStateIfHigherNonce(base)
	require.NoError(t, err)
	require.True(t, stored)
	require.False(t, replaced)

	// Same nonce again: rejected, existing returned unchanged.
	stored, replaced, existing, err := s.UpsertSignatureStateIfHigherNonce(base)
	require.NoError(t, err)
	require.False(t, stored)
	require.False(t, replaced)
	require.Equal(t, uint64(5), existing.Nonce)

	// Higher nonce: replaces.
	base.Nonce = 6
	stored, replaced, _, err = s.UpsertSignatureStateIfHigherNonce(base)
	require.NoError(t, err)
	require.True(t, stored)
	require.True(t, replaced)

	states, err := s.GetSignatureStatesForPipe("SPXX.pipe", "deadbeef")
	require.NoError(t, err)
	require.Len(t, states, 1)
	require.Equal(t, uint64(6), states[0].Nonce)
}

func TestRecordedEventRingBufferEviction(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(filepath.Join(dir, "db.sqlite"), 3)
	require.NoError(t, err)
	defer s.Close()

	for i := 0; i < 5; i++ {
		require.NoError(t, s.RecordEvent(model.RecordedEvent{
			ContractID: "SPXX.pipe", Txid: "tx", BlockHeight: uint64(i),
			EventName: "transfer", Payload: "{}",
		}))
	}

	events, err := s.ListRecordedEvents(0)
	require.NoError(t, err)
	require.Len(t, events, 3)
	require.Equal(t, uint64(4), events[0].BlockHeight)
	require.Equal(t, uint64(2), events[2].BlockHeight)
}
