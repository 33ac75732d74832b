// Package domain defines core data structures used throughout the swap engine.
package domain

import "fmt"

// Pair swap direction.
type Pair struct {
	// From symbol being sent.
	From string
	// To symbol being received.
	To string
}

// String returns the string representation.
func (p Pair) String() string {
	return fmt.Sprintf("%s_%s", p.From, p.To)
}

// Flip returns the pair with the direction reversed.
func (p Pair) Flip() Pair {
	return Pair{From: p.To, To: p.From}
}
