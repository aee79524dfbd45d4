package producer

import (
	"errors"
	"math/big"
	"strconv"
)

var errNotInPipe = errors.New("operator principal does not occupy either side of the pipe")

func itoa(v uint64) string {
	return strconv.FormatUint(v, 10)
}

// decimalLess reports whether a < b, treating both as base-10 big
// integers. ok is false if either string fails to parse.
func decimalLess(a, b string) (less bool, ok bool) {
	x, okA := new(big.Int).SetString(a, 10)
	y, okB := new(big.Int).SetString(b, 10)
	if !okA || !okB {
		return false, false
	}
	return x.Cmp(y) < 0, true
}

// decimalSumEquals reports whether a+b == c+d, treating all four as
// base-10 big integers. A parse failure reports false.
func decimalSumEquals(a, b, c, d string) bool {
	av, okA := new(big.Int).SetString(a, 10)
	bv, okB := new(big.Int).SetString(b, 10)
	cv, okC := new(big.Int).SetString(c, 10)
	dv, okD := new(big.Int).SetString(d, 10)
	if !okA || !okB || !okC || !okD {
		return false
	}
	lhs := new(big.Int).Add(av, bv)
	rhs := new(big.Int).Add(cv, dv)
	return lhs.Cmp(rhs) == 0
}
