//go:build debug

package assert

import "fmt"

// Invariant checks an invariant condition and panics if violated in debug builds.
// Invariants represent conditions that must always be true for the system to be correct.
// This includes postconditions (properties that must hold after function execution).
// Use this for internal sanity checks, not for validating external input.
//
// Examples:
//
//	// Structural invariant (always true for valid state)
//	assert.Invariant(docID.String() != "", "docID must never be empty after construction")
//
//	// Postcondition (property established by this function)
//	assert.Invariant(now.Sub(sess.LastAccess()) >= 0, "last-access must not be in the future")
func Invariant(ok bool, msg string) {
	if !ok {
		panic(fmt.Sprintf("INVARIANT VIOLATION: %s", msg))
	}
}
