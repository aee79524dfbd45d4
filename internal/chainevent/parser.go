// Package chainevent decodes an upstream /new_block-style payload into a
// sequence of typed StackflowPrintEvents.
package chainevent

import (
	"encoding/json"
	"fmt"

	"github.com/obycode/stackflow-sub001/internal/model"
	"github.com/obycode/stackflow-sub001/internal/pipekey"
)

// Class classifies an event for the watchtower's state machine, computed
// once here rather than re-derived from the event name repeatedly in
// internal/watchtower.
type Class int

const (
	ClassUnknown Class = iota
	ClassUpdate
	ClassOpenClosure
	ClassTerminal
)

// knownEvents is the vocabulary of event names the watchtower understands.
// Anything else is a forward-compatible unknown and is ignored.
var knownEvents = map[string]Class{
	"fund-pipe":       ClassUpdate,
	"transfer":        ClassUpdate,
	"deposit":         ClassUpdate,
	"withdraw":        ClassUpdate,
	"force-close":     ClassOpenClosure,
	"force-cancel":    ClassOpenClosure,
	"close-pipe":      ClassTerminal,
	"dispute-closure": ClassTerminal,
	"finalize":        ClassTerminal,
}

// DecodedPipe is the on-chain pipe record carried by an event, already
// reoriented to the canonical (low, high) side assignment of its
// PipeKey — balance-1/balance-2 and pending-1/pending-2 in the raw
// Clarity-style tuple are swapped at parse time whenever principal-1 is
// not the lexicographically lower principal, so every downstream
// consumer can read BalanceLow/BalanceHigh directly against
// PipeKey.PrincipalLow/PrincipalHigh without re-deriving the mapping.
type DecodedPipe struct {
	BalanceLow  string
	BalanceHigh string
	PendingLow  *model.Pending
	PendingHigh *model.Pending
	ExpiresAt   *uint64
	Nonce       uint64
	Closer      string // empty if unset
}

// DecodedEvent is one typed, filtered, classified chain event.
type DecodedEvent struct {
	EventName   string
	Class       Class
	Sender      string
	PipeKey     model.PipeKey
	PipeID      string
	Pipe        *DecodedPipe
	Txid        string
	BlockHeight uint64
	ContractID  string
	Raw         json.RawMessage
}

// --- wire format ---

type rawBlockPayload struct {
	BlockHeight uint64     `json:"block_height"`
	Events      []rawEvent `json:"events"`
}

type rawEvent struct {
	Txid          string           `json:"txid"`
	ContractEvent rawContractEvent `json:"contract_event"`
}

type rawContractEvent struct {
	ContractIdentifier string          `json:"contract_identifier"`
	Topic              string          `json:"topic"`
	RawValue           json.RawMessage `json:"raw_value"`
}

type rawValueRecord struct {
	Event   string        `json:"event"`
	Sender  string        `json:"sender"`
	PipeKey rawPipeKey    `json:"pipe-key"`
	Pipe    *rawPipeValue `json:"pipe"`
}

type rawPipeKey struct {
	Token      *string `json:"token"`
	Principal1 string  `json:"principal-1"`
	Principal2 string  `json:"principal-2"`
}

type rawPending struct {
	Amount     string `json:"amount"`
	BurnHeight uint64 `json:"burn-height"`
}

type rawPipeValue struct {
	Balance1  string      `json:"balance-1"`
	Balance2  string      `json:"balance-2"`
	Pending1  *rawPending `json:"pending-1"`
	Pending2  *rawPending `json:"pending-2"`
	ExpiresAt *uint64     `json:"expires-at"`
	Nonce     uint64      `json:"nonce"`
	Closer    *string     `json:"closer"`
}

// Parse decodes a raw /new_block payload and returns every event that
// passes the topic/contract/vocabulary filter, classified and with its
// PipeKey and pipe record already normalised into canonical (low, high)
// form.
func Parse(payload []byte, watchedContracts map[string]bool) ([]DecodedEvent, error) {
	var block rawBlockPayload
	if err := json.Unmarshal(payload, &block); err != nil {
		return nil, fmt.Errorf("unable to decode block payload: %w", err)
	}

	var out []DecodedEvent
	for _, ev := range block.Events {
		if ev.ContractEvent.Topic != "print" {
			continue
		}
		if len(watchedContracts) > 0 && !watchedContracts[ev.ContractEvent.ContractIdentifier] {
			continue
		}

		var rec rawValueRecord
		if err := json.Unmarshal(ev.ContractEvent.RawValue, &rec); err != nil {
			// Malformed print events from unrelated contracts are
			// expected when watchedContracts is the match-all empty
			// set; skip rather than fail the whole block.
			continue
		}

		class, known := knownEvents[rec.Event]
		if !known {
			continue
		}

		token := ""
		if rec.PipeKey.Token != nil {
			token = *rec.PipeKey.Token
		}
		key := pipekey.Canonicalize(token, rec.PipeKey.Principal1, rec.PipeKey.Principal2)

		decoded := DecodedEvent{
			EventName:   rec.Event,
			Class:       class,
			Sender:      rec.Sender,
			PipeKey:     key,
			PipeID:      pipekey.ID(key),
			Txid:        ev.Txid,
			BlockHeight: block.BlockHeight,
			ContractID:  ev.ContractEvent.ContractIdentifier,
			Raw:         ev.ContractEvent.RawValue,
		}

		if rec.Pipe != nil {
			decoded.Pipe = reorientPipe(rec.PipeKey, rec.Pipe)
		}

		out = append(out, decoded)
	}

	return out, nil
}

// reorientPipe swaps balance-1/2 and pending-1/2 to the canonical
// low/high orientation implied by the raw principal-1/principal-2
// ordering, so pipe identity stays independent of input ordering for
// every field derived from the pipe record, not just the key.
func reorientPipe(rawKey rawPipeKey, p *rawPipeValue) *DecodedPipe {
	closer := ""
	if p.Closer != nil {
		closer = *p.Closer
	}

	d := &DecodedPipe{
		ExpiresAt: p.ExpiresAt,
		Nonce:     p.Nonce,
		Closer:    closer,
	}

	if rawKey.Principal1 <= rawKey.Principal2 {
		d.BalanceLow, d.BalanceHigh = p.Balance1, p.Balance2
		d.PendingLow = toPending(p.Pending1)
		d.PendingHigh = toPending(p.Pending2)
	} else {
		d.BalanceLow, d.BalanceHigh = p.Balance2, p.Balance1
		d.PendingLow = toPending(p.Pending2)
		d.PendingHigh = toPending(p.Pending1)
	}
	return d
}

func toPending(p *rawPending) *model.Pending {
	if p == nil {
		return nil
	}
	return &model.Pending{Amount: p.Amount, UnlockBurnHeight: p.BurnHeight}
}
