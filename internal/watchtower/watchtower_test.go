package watchtower

import (
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/obycode/stackflow-sub001/internal/apierr"
	"github.com/obycode/stackflow-sub001/internal/executor"
	"github.com/obycode/stackflow-sub001/internal/model"
	"github.com/obycode/stackflow-sub001/internal/pipekey"
	"github.com/obycode/stackflow-sub001/internal/store"
	"github.com/obycode/stackflow-sub001/internal/verifier"
	"github.com/stretchr/testify/require"
)

const (
	p1 = "SP1AAAA0000000000000000000000000000AAAA"
	p2 = "SP2BBBB0000000000000000000000000000BBBB"
	p3 = "SP3CCCC0000000000000000000000000000CCCC"
)

func newTestWatchtower(t *testing.T, vfy verifier.Verifier, exec executor.Executor, cfg Config) *Watchtower {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "wt.db"), 100)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return New(st, vfy, exec, cfg)
}

type pipeFields struct {
	Balance1  string `json:"balance-1"`
	Balance2  string `json:"balance-2"`
	ExpiresAt uint64 `json:"expires-at,omitempty"`
	Nonce     uint64 `json:"nonce"`
	Closer    string `json:"closer,omitempty"`
}

func blockPayload(t *testing.T, height uint64, txid, eventName, sender, principal1, principal2 string, pipe *pipeFields) []byte {
	t.Helper()

	rawValue := map[string]interface{}{
		"event":  eventName,
		"sender": sender,
		"pipe-key": map[string]interface{}{
			"principal-1": principal1,
			"principal-2": principal2,
		},
	}
	if pipe != nil {
		rawValue["pipe"] = pipe
	}
	rawValueBytes, err := json.Marshal(rawValue)
	require.NoError(t, err)

	block := map[string]interface{}{
		"block_height": height,
		"events": []map[string]interface{}{
			{
				"txid": txid,
				"contract_event": map[string]interface{}{
					"contract_identifier": "SPCONTRACT.pipe",
					"topic":               "print",
					"raw_value":           json.RawMessage(rawValueBytes),
				},
			},
		},
	}
	out, err := json.Marshal(block)
	require.NoError(t, err)
	return out
}

func TestUnwatchedPipeIsIgnored(t *testing.T) {
	wt := newTestWatchtower(t, verifier.AcceptAll{}, &executor.Mock{}, Config{
		WatchedPrincipals: map[string]bool{p1: true},
	})

	payload := blockPayload(t, 1, "0x01", "force-close", p2, p2, p3, &pipeFields{
		Balance1: "50", Balance2: "75", Nonce: 4,
	})

	result, err := wt.IngestBlock(context.Background(), payload)
	require.NoError(t, err)
	require.Equal(t, 0, result.ObservedEvents)

	closures, err := wt.store.ListClosures()
	require.NoError(t, err)
	require.Empty(t, closures)
}

func TestForceCloseTriggersFinalize(t *testing.T) {
	wt := newTestWatchtower(t, verifier.AcceptAll{}, &executor.Mock{}, Config{})

	fc := blockPayload(t, 10, "0x10", "force-close", p1, p1, p2, &pipeFields{
		Balance1: "50", Balance2: "75", Nonce: 4,
	})
	result, err := wt.IngestBlock(context.Background(), fc)
	require.NoError(t, err)
	require.Equal(t, 1, result.ObservedEvents)

	closures, err := wt.store.ListClosures()
	require.NoError(t, err)
	require.Len(t, closures, 1)

	pipes, err := wt.store.ListObservedPipes()
	require.NoError(t, err)
	require.Len(t, pipes, 1)
	require.Equal(t, "50", pipes[0].BalanceLow)
	require.Equal(t, "75", pipes[0].BalanceHigh)

	fin := blockPayload(t, 11, "0x11", "finalize", p1, p1, p2, &pipeFields{
		Balance1: "50", Balance2: "75", Nonce: 4,
	})
	_, err = wt.IngestBlock(context.Background(), fin)
	require.NoError(t, err)

	closures, err = wt.store.ListClosures()
	require.NoError(t, err)
	require.Empty(t, closures)

	pipes, err = wt.store.ListObservedPipes()
	require.NoError(t, err)
	require.Len(t, pipes, 1)
	require.Equal(t, "0", pipes[0].BalanceLow)
	require.Equal(t, "0", pipes[0].BalanceHigh)
}

func TestBurnBlockSettlesPendingAtUnlockHeight(t *testing.T) {
	wt := newTestWatchtower(t, verifier.AcceptAll{}, &executor.Mock{}, Config{})

	key := model.PipeKey{PrincipalLow: p1, PrincipalHigh: p2}
	require.NoError(t, wt.store.SetObservedPipe(model.ObservedPipe{
		ContractID: "SPCONTRACT.pipe", PipeID: "seed-pipe", PipeKey: key,
		BalanceLow: "0", BalanceHigh: "0",
		PendingLow: &model.Pending{Amount: "4000000", UnlockBurnHeight: 159},
		Nonce:      1, Event: "deposit", Txid: "0x01", BlockHeight: 1,
	}))

	r, err := wt.IngestBurnBlock(158)
	require.NoError(t, err)
	require.Equal(t, 0, r.SettledPipes)

	r, err = wt.IngestBurnBlock(159)
	require.NoError(t, err)
	require.Equal(t, 1, r.SettledPipes)

	p, err := wt.store.GetObservedPipe("SPCONTRACT.pipe", "seed-pipe")
	require.NoError(t, err)
	require.Equal(t, "4000000", p.BalanceLow)
	require.Nil(t, p.PendingLow)
}

func TestSignatureStateRejectsStaleNonceOnResubmit(t *testing.T) {
	wt := newTestWatchtower(t, verifier.AcceptAll{}, &executor.Mock{}, Config{})

	key := model.PipeKey{PrincipalLow: p1, PrincipalHigh: p2}
	require.NoError(t, wt.store.SetObservedPipe(model.ObservedPipe{
		ContractID: "SPCONTRACT.pipe", PipeID: pipekey.ID(key), PipeKey: key,
		BalanceLow: "800", BalanceHigh: "200",
		Nonce: 4, Event: "fund-pipe", Txid: "0x01", BlockHeight: 1,
	}))

	req := SubmitSignatureStateRequest{
		ContractID: "SPCONTRACT.pipe", ForPrincipal: p1, WithPrincipal: p2,
		Action: model.ActionTransfer, Amount: "0",
		MyBalance: "900", TheirBalance: "100",
		MySignature: strings.Repeat("aa", 65), TheirSignature: strings.Repeat("bb", 65),
		Nonce: 5, Actor: p1,
	}
	res, err := wt.SubmitSignatureState(context.Background(), req)
	require.NoError(t, err)
	require.True(t, res.Stored)
	require.False(t, res.Replaced)

	_, err = wt.SubmitSignatureState(context.Background(), req)
	require.Error(t, err)
	apiErr, ok := apierr.As(err)
	require.True(t, ok)
	require.Equal(t, apierr.KindNonceTooLow, apiErr.Kind)
	require.Equal(t, "5", apiErr.Fields["existingNonce"])
}

func TestForceCancelSubmitsDisputeOnce(t *testing.T) {
	mockExec := &executor.Mock{}
	wt := newTestWatchtower(t, verifier.AcceptAll{}, mockExec, Config{
		WatchedPrincipals: map[string]bool{p1: true},
	})

	req := SubmitSignatureStateRequest{
		ContractID: "SPCONTRACT.pipe", ForPrincipal: p1, WithPrincipal: p2,
		Action: model.ActionTransfer, Amount: "0",
		MyBalance: "900", TheirBalance: "100",
		MySignature: strings.Repeat("aa", 65), TheirSignature: strings.Repeat("bb", 65),
		Nonce: 5, Actor: p1,
	}
	res, err := wt.SubmitSignatureState(context.Background(), req)
	require.NoError(t, err)
	require.True(t, res.Stored)

	fcancel := blockPayload(t, 20, "0x20", "force-cancel", p2, p1, p2, &pipeFields{
		Balance1: "500", Balance2: "500", Nonce: 3,
	})
	_, err = wt.IngestBlock(context.Background(), fcancel)
	require.NoError(t, err)

	attempts, err := wt.store.ListDisputeAttempts(0)
	require.NoError(t, err)
	require.Len(t, attempts, 1)
	require.True(t, attempts[0].Success)
	require.NotNil(t, attempts[0].DisputeTxid)
	require.True(t, strings.HasPrefix(*attempts[0].DisputeTxid, "0xmock"))

	// Re-ingesting the same triggering event must not create a second
	// attempt (at-most-once property).
	_, err = wt.IngestBlock(context.Background(), fcancel)
	require.NoError(t, err)
	attempts, err = wt.store.ListDisputeAttempts(0)
	require.NoError(t, err)
	require.Len(t, attempts, 1)
}

func TestRejectAllVerifierFreezesSignatureSubmission(t *testing.T) {
	wt := newTestWatchtower(t, verifier.RejectAll{}, &executor.Mock{}, Config{})

	req := SubmitSignatureStateRequest{
		ContractID: "SPCONTRACT.pipe", ForPrincipal: p1, WithPrincipal: p2,
		Action: model.ActionTransfer, Amount: "0",
		MyBalance: "900", TheirBalance: "100",
		MySignature: strings.Repeat("aa", 65), TheirSignature: strings.Repeat("bb", 65),
		Nonce: 5, Actor: p1,
	}
	_, err := wt.SubmitSignatureState(context.Background(), req)
	require.Error(t, err)
	apiErr, ok := apierr.As(err)
	require.True(t, ok)
	require.Equal(t, apierr.KindSignatureValidation, apiErr.Kind)
	require.Equal(t, 401, apiErr.Status())
}

// Beneficial-only filter property: a candidate that does not strictly
// improve the beneficiary's balance over the closure's claim must never
// produce a DisputeAttempt.
func TestBeneficialOnlyFilterRejectsNonImprovingCandidate(t *testing.T) {
	mockExec := &executor.Mock{}
	wt := newTestWatchtower(t, verifier.AcceptAll{}, mockExec, Config{
		DisputeOnlyBeneficial: true,
	})

	// Candidate's MyBalance (100) does not exceed the closure's recorded
	// balance for p1 (500), so it must not be disputed even though its
	// nonce is higher than the closure's.
	req := SubmitSignatureStateRequest{
		ContractID: "SPCONTRACT.pipe", ForPrincipal: p1, WithPrincipal: p2,
		Action: model.ActionTransfer, Amount: "0",
		MyBalance: "100", TheirBalance: "900",
		MySignature: strings.Repeat("aa", 65), TheirSignature: strings.Repeat("bb", 65),
		Nonce: 5, Actor: p1,
	}
	_, err := wt.SubmitSignatureState(context.Background(), req)
	require.NoError(t, err)

	fclose := blockPayload(t, 30, "0x30", "force-close", p2, p1, p2, &pipeFields{
		Balance1: "500", Balance2: "500", Nonce: 3,
	})
	_, err = wt.IngestBlock(context.Background(), fclose)
	require.NoError(t, err)

	attempts, err := wt.store.ListDisputeAttempts(0)
	require.NoError(t, err)
	require.Empty(t, attempts)
}
