// Package apierr defines the typed error kinds the watchtower core
// raises and their mapping onto HTTP status codes.
package apierr

import "fmt"

// Kind identifies the category of a core error, independent of its HTTP
// rendering.
type Kind string

const (
	KindBadRequest           Kind = "bad-request"
	KindPrincipalNotWatched  Kind = "principal-not-watched"
	KindProducerBalanceDecr  Kind = "producer-balance-decrease"
	KindSignatureValidation  Kind = "signature-validation"
	KindSignerDisabled       Kind = "signer-disabled"
	KindNonceTooLow          Kind = "nonce-too-low"
	KindUnknownPipeState     Kind = "unknown-pipe-state"
	KindNotFound             Kind = "not-found"
	KindUpstreamTimeout      Kind = "upstream-timeout"
	KindInternal             Kind = "internal"
)

var statusByKind = map[Kind]int{
	KindBadRequest:          400,
	KindPrincipalNotWatched: 403,
	KindProducerBalanceDecr: 403,
	KindSignatureValidation: 401,
	KindSignerDisabled:      503,
	KindNonceTooLow:         409,
	KindUnknownPipeState:    409,
	KindNotFound:            404,
	KindUpstreamTimeout:     504,
	KindInternal:            500,
}

// Error is the single error type that crosses the component boundary into
// the HTTP surface. Every core package returns one of these (or wraps a
// plain error as KindInternal) rather than ad-hoc error strings.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Fields  map[string]string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Status returns the HTTP status code this error should surface as.
func (e *Error) Status() int {
	if s, ok := statusByKind[e.Kind]; ok {
		return s
	}
	return 500
}

func New(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

func (e *Error) WithField(key, value string) *Error {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	e.Fields[key] = value
	return e
}

func BadRequest(format string, args ...interface{}) *Error {
	return New(KindBadRequest, "bad-request", fmt.Sprintf(format, args...))
}

func PrincipalNotWatched(principal string) *Error {
	return New(KindPrincipalNotWatched, "principal-not-watched",
		fmt.Sprintf("principal %s is not in the watched set", principal))
}

func ProducerBalanceDecrease() *Error {
	return New(KindProducerBalanceDecr, "producer-balance-decrease",
		"signing this state would decrease the operator's own balance")
}

func SignatureValidation(reason string) *Error {
	return New(KindSignatureValidation, "signature-validation", reason)
}

func SignerDisabled() *Error {
	return New(KindSignerDisabled, "signer-disabled",
		"no signer backend is configured")
}

func NonceTooLow(existingNonce string) *Error {
	return New(KindNonceTooLow, "nonce-too-low",
		fmt.Sprintf("existing state has nonce %s", existingNonce)).
		WithField("existingNonce", existingNonce)
}

func UnknownPipeState() *Error {
	return New(KindUnknownPipeState, "unknown-pipe-state",
		"no observed pipe state exists for this contract/pipe")
}

func NotFound(what string) *Error {
	return New(KindNotFound, "not-found", fmt.Sprintf("%s not found", what))
}

func UpstreamTimeout(what string) *Error {
	return New(KindUpstreamTimeout, "upstream-timeout",
		fmt.Sprintf("%s timed out", what))
}

func Internal(err error) *Error {
	return New(KindInternal, "internal", err.Error())
}

// As reports whether err is itself an *Error. It is a plain type
// assertion: an *Error wrapped inside another error is not found.
func As(err error) (*Error, bool) {
	e, ok := err.(*Error)
	return e, ok
}
