package opportunity

import (
	"fmt"
	"strconv"
	"strings"
)

// PV sequences are stored as pipe-joined strings ("e2e4|e7e5",
// "31|88|-12"). Empty string round-trips to nil.

// JoinMoves encodes a move sequence for storage.
func JoinMoves(moves []string) string {
	return strings.Join(moves, "|")
}

// SplitMoves decodes a pipe-joined move sequence.
func SplitMoves(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, "|")
}

// JoinEvals encodes an eval sequence for storage.
func JoinEvals(evals []int) string {
	if len(evals) == 0 {
		return ""
	}
	parts := make([]string, len(evals))
	for i, v := range evals {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, "|")
}

// SplitEvals decodes a pipe-joined eval sequence.
func SplitEvals(s string) ([]int, error) {
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, "|")
	evals := make([]int, len(parts))
	for i, p := range parts {
		v, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("eval %d: %w", i, err)
		}
		evals[i] = v
	}
	return evals, nil
}
