// Package sip018 computes the SIP-018 domain-separated signing digest:
// SHA256("SIP018" || domain_hash || message_hash), where domain_hash
// and message_hash each hash a canonically encoded typed record.
//
// The on-chain contract consumes Clarity consensus serialization for
// these tuples; this package stands in for that wire format with a
// deterministic, length-prefixed field encoding (the same scheme
// internal/pipekey uses for a PipeKey) rather than a full Clarity value
// codec, since the watchtower only needs the encoding to be stable and
// to match what its own signer and verifier agree on — byte-for-byte
// Clarity compatibility is the on-chain contract's concern, reached
// through the `readonly` verifier's RPC round-trip, not through local
// re-derivation.
package sip018

import (
	"crypto/sha256"
	"encoding/binary"

	"github.com/obycode/stackflow-sub001/internal/model"
)

// Network identifies the Stacks network whose chain-id is mixed into the
// domain hash.
type Network string

const (
	Mainnet Network = "mainnet"
	Testnet Network = "testnet"
	Devnet  Network = "devnet"
	Mocknet Network = "mocknet"
)

// ChainID returns the consensus chain-id for network, defaulting to the
// devnet/testnet value for anything unrecognised.
func ChainID(n Network) uint32 {
	switch n {
	case Mainnet:
		return 0x00000001
	default:
		return 0x80000000
	}
}

// Domain is the { name, version, chain-id } tuple hashed once per
// configured message version/network pair.
type Domain struct {
	Name    string
	Version string
	ChainID uint32
}

// Message is the typed balance-update record signed by both
// participants.
type Message struct {
	Token         string
	PrincipalLow  string
	PrincipalHigh string
	BalanceLow    string
	BalanceHigh   string
	Nonce         uint64
	Action        model.Action
	Actor         string
	HashedSecret  string // hex, empty if absent
	ValidAfter    *uint64
}

func appendLenPrefixed(buf []byte, s string) []byte {
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(s)))
	buf = append(buf, lenBuf[:]...)
	return append(buf, s...)
}

func appendUint64(buf []byte, v uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	return append(buf, b[:]...)
}

func (d Domain) encode() []byte {
	var buf []byte
	buf = appendLenPrefixed(buf, d.Name)
	buf = appendLenPrefixed(buf, d.Version)
	var cid [4]byte
	binary.BigEndian.PutUint32(cid[:], d.ChainID)
	return append(buf, cid[:]...)
}

func (m Message) encode() []byte {
	var buf []byte
	buf = appendLenPrefixed(buf, m.Token)
	buf = appendLenPrefixed(buf, m.PrincipalLow)
	buf = appendLenPrefixed(buf, m.PrincipalHigh)
	buf = appendLenPrefixed(buf, m.BalanceLow)
	buf = appendLenPrefixed(buf, m.BalanceHigh)
	buf = appendUint64(buf, m.Nonce)
	buf = append(buf, byte(m.Action))
	buf = appendLenPrefixed(buf, m.Actor)
	buf = appendLenPrefixed(buf, m.HashedSecret)
	if m.ValidAfter != nil {
		buf = append(buf, 1)
		buf = appendUint64(buf, *m.ValidAfter)
	} else {
		buf = append(buf, 0)
	}
	return buf
}

// DomainHash computes SHA256 of the domain's length-prefixed field
// encoding (see the package comment; not Clarity consensus form).
func DomainHash(d Domain) [32]byte {
	return sha256.Sum256(d.encode())
}

// MessageHash computes SHA256 of the message's length-prefixed field
// encoding (see the package comment; not Clarity consensus form).
func MessageHash(m Message) [32]byte {
	return sha256.Sum256(m.encode())
}

// Digest computes the final SIP-018-style digest to be signed:
// SHA256("SIP018" || domain_hash || message_hash).
func Digest(d Domain, m Message) [32]byte {
	domainHash := DomainHash(d)
	messageHash := MessageHash(m)

	buf := make([]byte, 0, 6+32+32)
	buf = append(buf, "SIP018"...)
	buf = append(buf, domainHash[:]...)
	buf = append(buf, messageHash[:]...)
	return sha256.Sum256(buf)
}
