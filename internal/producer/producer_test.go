package producer

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/obycode/stackflow-sub001/internal/apierr"
	"github.com/obycode/stackflow-sub001/internal/executor"
	"github.com/obycode/stackflow-sub001/internal/model"
	"github.com/obycode/stackflow-sub001/internal/pipekey"
	"github.com/obycode/stackflow-sub001/internal/signerbackend"
	"github.com/obycode/stackflow-sub001/internal/sip018"
	"github.com/obycode/stackflow-sub001/internal/store"
	"github.com/obycode/stackflow-sub001/internal/verifier"
	"github.com/obycode/stackflow-sub001/internal/watchtower"
	"github.com/stretchr/testify/require"
)

const (
	operator     = "SP1OPERATOR000000000000000000000000OPER"
	counterparty = "SP2COUNTER0000000000000000000000000CTPY"
)

func newTestProducer(t *testing.T) (*Producer, *watchtower.Watchtower) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "producer.db"), 100)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	wt := watchtower.New(st, verifier.AcceptAll{}, &executor.Mock{}, watchtower.Config{})

	key := pipekey.Canonicalize("", operator, counterparty)
	require.NoError(t, st.SetObservedPipe(model.ObservedPipe{
		ContractID: "SPCONTRACT.pipe", PipeID: pipekey.ID(key), PipeKey: key,
		BalanceLow: "200", BalanceHigh: "100",
		Nonce: 4, Event: "fund-pipe", Txid: "0x01", BlockHeight: 1,
	}))

	signer, err := signerbackend.NewLocalKey(make([]byte, 32))
	require.NoError(t, err)

	p := New(wt, signer, Config{
		OperatorPrincipal: operator,
		Domain:            sip018.Domain{Name: "StackFlow", Version: "0.6.0", ChainID: sip018.ChainID(sip018.Devnet)},
	})
	return p, wt
}

func balanceFor(key model.PipeKey, operatorAmount, counterpartyAmount string) (string, string) {
	if low, _ := pipekey.Side(key, operator); low {
		return operatorAmount, counterpartyAmount
	}
	return counterpartyAmount, operatorAmount
}

func TestSignTransferRejectsOperatorBalanceDecrease(t *testing.T) {
	p, wt := newTestProducer(t)

	req := TransferRequest{
		ContractID:            "SPCONTRACT.pipe",
		CounterpartyPrincipal: counterparty,
		Nonce:                 5,
		MyBalance:             "150",
		TheirBalance:          "150",
		TheirSignature:        strings.Repeat("bb", 65),
		Actor:                 operator,
	}
	_, err := p.SignTransfer(context.Background(), req)
	require.Error(t, err)
	apiErr, ok := apierr.As(err)
	require.True(t, ok)
	require.Equal(t, apierr.KindProducerBalanceDecr, apiErr.Kind)

	states, err := wt.ListSignatureStates(0)
	require.NoError(t, err)
	require.Nil(t, states)
}

func TestSignTransferAcceptsNonDecreasingBalance(t *testing.T) {
	p, _ := newTestProducer(t)

	req := TransferRequest{
		ContractID:            "SPCONTRACT.pipe",
		CounterpartyPrincipal: counterparty,
		Nonce:                 5,
		MyBalance:             "250",
		TheirBalance:          "50",
		TheirSignature:        strings.Repeat("bb", 65),
		Actor:                 operator,
	}
	res, err := p.SignTransfer(context.Background(), req)
	require.NoError(t, err)
	require.True(t, res.Stored)
	require.Len(t, res.State.MySignature, 130)
}

func TestSignTransferRejectsUnknownPipe(t *testing.T) {
	p, _ := newTestProducer(t)

	req := TransferRequest{
		ContractID:            "SPCONTRACT.pipe",
		CounterpartyPrincipal: "SP9UNKNOWN00000000000000000000000000UNK",
		Nonce:                 1,
		MyBalance:             "10",
		TheirBalance:          "10",
		TheirSignature:        strings.Repeat("bb", 65),
		Actor:                 operator,
	}
	_, err := p.SignTransfer(context.Background(), req)
	require.Error(t, err)
	apiErr, ok := apierr.As(err)
	require.True(t, ok)
	require.Equal(t, apierr.KindUnknownPipeState, apiErr.Kind)
}

func TestSignSignatureRequestRejectsTransferAction(t *testing.T) {
	p, _ := newTestProducer(t)

	_, err := p.SignSignatureRequest(context.Background(), SignatureRequestRequest{
		ContractID:            "SPCONTRACT.pipe",
		CounterpartyPrincipal: counterparty,
		Action:                model.ActionTransfer,
		Nonce:                 5,
		MyBalance:             "200",
		TheirBalance:          "100",
		TheirSignature:        strings.Repeat("bb", 65),
		Actor:                 operator,
	})
	require.Error(t, err)
	apiErr, ok := apierr.As(err)
	require.True(t, ok)
	require.Equal(t, apierr.KindBadRequest, apiErr.Kind)
}

func TestSignSignatureRequestSelfWithdrawStillChecksConservation(t *testing.T) {
	p, _ := newTestProducer(t)

	_, err := p.SignSignatureRequest(context.Background(), SignatureRequestRequest{
		ContractID:            "SPCONTRACT.pipe",
		CounterpartyPrincipal: counterparty,
		Action:                model.ActionWithdraw,
		Amount:                "50",
		Nonce:                 5,
		MyBalance:             "150",
		TheirBalance:          "100",
		TheirSignature:        strings.Repeat("bb", 65),
		Actor:                 operator,
	})
	// TheirBalance + MyBalance (100+150=250) must equal baseline's
	// 200+100=300, so this particular body fails the conservation check
	// rather than the decrease guard — which is the point: even a
	// self-withdraw must still balance.
	require.Error(t, err)
	apiErr, ok := apierr.As(err)
	require.True(t, ok)
	require.Equal(t, apierr.KindBadRequest, apiErr.Kind)
}
