package recur

import "github.com/xraph/recur/types"

// Re-export common types for convenience so users don't have to import types package.

// Address is re-exported from types package.
type Address = types.Address

// Amount is re-exported from types package.
type Amount = types.Amount

// Entity is re-exported from types package.
type Entity = types.Entity

// Re-export Amount constructors
var (
	Tokens = types.Tokens
	Micro  = types.Micro
	Sum    = types.Sum
)

// Unit is one whole token in micro-units.
const Unit = types.Unit

// Re-export Entity constructor
var NewEntity = types.NewEntity
