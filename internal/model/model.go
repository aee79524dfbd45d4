// Package model defines the entities persisted by the state store.
// Arbitrary-precision quantities are carried as decimal strings and
// only lifted into math/big when arithmetic is required.
package model

// Action tags a signed off-chain state.
type Action int

const (
	ActionClose Action = iota
	ActionTransfer
	ActionDeposit
	ActionWithdraw
)

func (a Action) Valid() bool {
	return a >= ActionClose && a <= ActionWithdraw
}

// PipeKey is the canonical, order-independent identity of a pipe.
type PipeKey struct {
	Token         string // empty string means the native token
	PrincipalLow  string
	PrincipalHigh string
}

// Pending describes one side's pending (not-yet-settled) deposit.
type Pending struct {
	Amount           string
	UnlockBurnHeight uint64
}

// ObservedPipe is the on-chain view of a pipe.
type ObservedPipe struct {
	ContractID string
	PipeID     string
	PipeKey

	BalanceLow  string
	BalanceHigh string

	PendingLow  *Pending
	PendingHigh *Pending

	ExpiresAt *uint64
	Nonce     uint64
	Closer    string // empty means unset

	Event       string
	Txid        string
	BlockHeight uint64
	UpdatedAt   int64 // unix seconds
}

// Closure is an active force-close/force-cancel.
type Closure struct {
	PipeID string
	PipeKey

	Closer      string
	ExpiresAt   *uint64
	Nonce       *uint64
	Event       string
	Txid        string
	BlockHeight uint64
	UpdatedAt   int64
}

// SignatureState is an off-chain signed balance update held for one side.
type SignatureState struct {
	ContractID    string
	PipeID        string
	ForPrincipal  string
	WithPrincipal string
	Token         string

	Action         Action
	Amount         string
	MyBalance      string
	TheirBalance   string
	MySignature    string // 65 bytes, hex
	TheirSignature string // 65 bytes, hex
	Nonce          uint64
	Actor          string

	Secret          *string // 32 bytes, hex
	ValidAfter      *uint64
	BeneficialOnly  bool
	UpdatedAt       int64
}

// DisputeAttempt records one submission attempt against a closure.
type DisputeAttempt struct {
	AttemptID    string
	ContractID   string
	PipeID       string
	ForPrincipal string
	TriggerTxid  string
	Success      bool
	DisputeTxid  *string
	Error        *string
	CreatedAt    int64
}

// RecordedEvent is a raw chain event retained in the bounded ring buffer.
type RecordedEvent struct {
	Seq         int64
	ContractID  string
	Txid        string
	BlockHeight uint64
	EventName   string
	Payload     string // raw JSON of the decoded record, for audit/debug
	RecordedAt  int64
}

// Snapshot is a consistent read of every entity collection, returned by
// the store's get_snapshot operation.
type Snapshot struct {
	Version        int
	UpdatedAt      int64
	ObservedPipes  []ObservedPipe
	Closures       []Closure
	SignatureStates []SignatureState
	DisputeAttempts []DisputeAttempt
}
