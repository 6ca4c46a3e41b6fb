package types

import "strings"

// Address identifies an account on the external token ledger: offering
// owners, recipients, subscribers and the engine's own spender identity.
// The empty Address is the null identity.
type Address string

// IsZero reports whether a is the null identity.
func (a Address) IsZero() bool { return strings.TrimSpace(string(a)) == "" }

// String returns the raw identity.
func (a Address) String() string { return string(a) }
