package httpapi

import "github.com/obycode/stackflow-sub001/internal/model"

// The view types below give the wire format stable field names
// independent of the internal model's Go field names, and translate
// the Action enum to its string tokens.

var actionNames = map[model.Action]string{
	model.ActionClose:    "close",
	model.ActionTransfer: "transfer",
	model.ActionDeposit:  "deposit",
	model.ActionWithdraw: "withdraw",
}

var actionValues = map[string]model.Action{
	"close":    model.ActionClose,
	"transfer": model.ActionTransfer,
	"deposit":  model.ActionDeposit,
	"withdraw": model.ActionWithdraw,
}

type pendingView struct {
	Amount           string `json:"amount"`
	UnlockBurnHeight uint64 `json:"unlockBurnHeight"`
}

func pendingViewOf(p *model.Pending) *pendingView {
	if p == nil {
		return nil
	}
	return &pendingView{Amount: p.Amount, UnlockBurnHeight: p.UnlockBurnHeight}
}

type observedPipeView struct {
	ContractID    string       `json:"contractId"`
	PipeID        string       `json:"pipeId"`
	Token         string       `json:"token"`
	PrincipalLow  string       `json:"principalLow"`
	PrincipalHigh string       `json:"principalHigh"`
	BalanceLow    string       `json:"balanceLow"`
	BalanceHigh   string       `json:"balanceHigh"`
	PendingLow    *pendingView `json:"pendingLow,omitempty"`
	PendingHigh   *pendingView `json:"pendingHigh,omitempty"`
	ExpiresAt     *uint64      `json:"expiresAt,omitempty"`
	Nonce         uint64       `json:"nonce"`
	Closer        string       `json:"closer,omitempty"`
	Event         string       `json:"event"`
	Txid          string       `json:"txid"`
	BlockHeight   uint64       `json:"blockHeight"`
	UpdatedAt     int64        `json:"updatedAt"`
}

func observedPipeViewOf(p model.ObservedPipe) observedPipeView {
	return observedPipeView{
		ContractID: p.ContractID, PipeID: p.PipeID,
		Token: p.Token, PrincipalLow: p.PrincipalLow, PrincipalHigh: p.PrincipalHigh,
		BalanceLow: p.BalanceLow, BalanceHigh: p.BalanceHigh,
		PendingLow: pendingViewOf(p.PendingLow), PendingHigh: pendingViewOf(p.PendingHigh),
		ExpiresAt: p.ExpiresAt, Nonce: p.Nonce, Closer: p.Closer,
		Event: p.Event, Txid: p.Txid, BlockHeight: p.BlockHeight, UpdatedAt: p.UpdatedAt,
	}
}

type closureView struct {
	PipeID        string  `json:"pipeId"`
	Token         string  `json:"token"`
	PrincipalLow  string  `json:"principalLow"`
	PrincipalHigh string  `json:"principalHigh"`
	Closer        string  `json:"closer"`
	ExpiresAt     *uint64 `json:"expiresAt,omitempty"`
	Nonce         *uint64 `json:"nonce,omitempty"`
	Event         string  `json:"event"`
	Txid          string  `json:"txid"`
	BlockHeight   uint64  `json:"blockHeight"`
	UpdatedAt     int64   `json:"updatedAt"`
}

func closureViewOf(c model.Closure) closureView {
	return closureView{
		PipeID: c.PipeID, Token: c.Token, PrincipalLow: c.PrincipalLow, PrincipalHigh: c.PrincipalHigh,
		Closer: c.Closer, ExpiresAt: c.ExpiresAt, Nonce: c.Nonce,
		Event: c.Event, Txid: c.Txid, BlockHeight: c.BlockHeight, UpdatedAt: c.UpdatedAt,
	}
}

type signatureStateView struct {
	ContractID     string  `json:"contractId"`
	PipeID         string  `json:"pipeId"`
	ForPrincipal   string  `json:"forPrincipal"`
	WithPrincipal  string  `json:"withPrincipal"`
	Token          string  `json:"token"`
	Action         string  `json:"action"`
	Amount         string  `json:"amount"`
	MyBalance      string  `json:"myBalance"`
	TheirBalance   string  `json:"theirBalance"`
	MySignature    string  `json:"mySignature"`
	TheirSignature string  `json:"theirSignature"`
	Nonce          uint64  `json:"nonce"`
	Actor          string  `json:"actor"`
	Secret         *string `json:"secret,omitempty"`
	ValidAfter     *uint64 `json:"validAfter,omitempty"`
	BeneficialOnly bool    `json:"beneficialOnly"`
	UpdatedAt      int64   `json:"updatedAt"`
}

func signatureStateViewOf(ss model.SignatureState) signatureStateView {
	return signatureStateView{
		ContractID: ss.ContractID, PipeID: ss.PipeID,
		ForPrincipal: ss.ForPrincipal, WithPrincipal: ss.WithPrincipal, Token: ss.Token,
		Action: actionNames[ss.Action], Amount: ss.Amount,
		MyBalance: ss.MyBalance, TheirBalance: ss.TheirBalance,
		MySignature: ss.MySignature, TheirSignature: ss.TheirSignature,
		Nonce: ss.Nonce, Actor: ss.Actor, Secret: ss.Secret,
		ValidAfter: ss.ValidAfter, BeneficialOnly: ss.BeneficialOnly, UpdatedAt: ss.UpdatedAt,
	}
}

type disputeAttemptView struct {
	AttemptID    string  `json:"attemptId"`
	ContractID   string  `json:"contractId"`
	PipeID       string  `json:"pipeId"`
	ForPrincipal string  `json:"forPrincipal"`
	TriggerTxid  string  `json:"triggerTxid"`
	Success      bool    `json:"success"`
	DisputeTxid  *string `json:"disputeTxid,omitempty"`
	Error        *string `json:"error,omitempty"`
	CreatedAt    int64   `json:"createdAt"`
}

func disputeAttemptViewOf(d model.DisputeAttempt) disputeAttemptView {
	return disputeAttemptView{
		AttemptID: d.AttemptID, ContractID: d.ContractID, PipeID: d.PipeID,
		ForPrincipal: d.ForPrincipal, TriggerTxid: d.TriggerTxid,
		Success: d.Success, DisputeTxid: d.DisputeTxid, Error: d.Error, CreatedAt: d.CreatedAt,
	}
}

type snapshotView struct {
	Version         int                  `json:"version"`
	UpdatedAt       int64                `json:"updatedAt"`
	ObservedPipes   []observedPipeView   `json:"observedPipes"`
	Closures        []closureView        `json:"closures"`
	SignatureStates []signatureStateView `json:"signatureStates"`
	DisputeAttempts []disputeAttemptView `json:"disputeAttempts"`
}

func snapshotJSON(s model.Snapshot) snapshotView {
	v := snapshotView{Version: s.Version, UpdatedAt: s.UpdatedAt}
	for _, p := range s.ObservedPipes {
		v.ObservedPipes = append(v.ObservedPipes, observedPipeViewOf(p))
	}
	for _, c := range s.Closures {
		v.Closures = append(v.Closures, closureViewOf(c))
	}
	for _, ss := range s.SignatureStates {
		v.SignatureStates = append(v.SignatureStates, signatureStateViewOf(ss))
	}
	for _, d := range s.DisputeAttempts {
		v.DisputeAttempts = append(v.DisputeAttempts, disputeAttemptViewOf(d))
	}
	return v
}
