// Package pipekey canonicalizes a pair of principals (plus optional
// token) into an order-independent PipeKey identity, and derives the
// stable pipe_id hash from it.
package pipekey

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/obycode/stackflow-sub001/internal/model"
)

// Canonicalize sorts p1/p2 by their lexicographic byte order so that
// the resulting PipeKey is identical regardless of input order.
func Canonicalize(token, p1, p2 string) model.PipeKey {
	low, high := p1, p2
	if p2 < p1 {
		low, high = p2, p1
	}
	return model.PipeKey{
		Token:         token,
		PrincipalLow:  low,
		PrincipalHigh: high,
	}
}

// ID computes the stable hex digest identity for a PipeKey: the canonical
// encoding is hashed with SHA-256 and rendered lowercase hex. Because
// Canonicalize already orders the principals, ID(p1, p2) == ID(p2, p1)
// for the same token.
func ID(key model.PipeKey) string {
	enc := encode(key)
	sum := sha256.Sum256(enc)
	return hex.EncodeToString(sum[:])
}

// encode produces the deterministic byte encoding hashed into a pipe_id.
// Fields are length-prefixed so no separator character choice can create
// a collision between differently-split principal strings.
func encode(key model.PipeKey) []byte {
	var buf []byte
	for _, field := range []string{key.Token, key.PrincipalLow, key.PrincipalHigh} {
		buf = appendLenPrefixed(buf, field)
	}
	return buf
}

func appendLenPrefixed(buf []byte, s string) []byte {
	n := len(s)
	buf = append(buf,
		byte(n>>24), byte(n>>16), byte(n>>8), byte(n))
	return append(buf, s...)
}

// Side identifies which canonical slot (low/high) a principal occupies
// within a PipeKey. Returns ok=false if the principal is neither side.
func Side(key model.PipeKey, principal string) (low bool, ok bool) {
	switch principal {
	case key.PrincipalLow:
		return true, true
	case key.PrincipalHigh:
		return false, true
	default:
		return false, false
	}
}

// Other returns the principal on the opposite side of key from principal.
func Other(key model.PipeKey, principal string) (string, bool) {
	switch principal {
	case key.PrincipalLow:
		return key.PrincipalHigh, true
	case key.PrincipalHigh:
		return key.PrincipalLow, true
	default:
		return "", false
	}
}
