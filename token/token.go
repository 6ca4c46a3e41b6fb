// Package token defines the external token ledger recur debits from.
//
// recur never moves funds itself: it reads balances and allowances and asks
// the ledger to transfer on a subscriber's behalf, using the spending
// authorization the subscriber granted to recur's spender identity.
package token

import (
	"context"
	"errors"

	"github.com/xraph/recur/types"
)

// Errors a Ledger implementation returns from TransferFrom.
var (
	ErrInsufficientBalance   = errors.New("token: insufficient balance")
	ErrInsufficientAllowance = errors.New("token: insufficient allowance")
	ErrInvalidTransfer       = errors.New("token: invalid transfer")
)

// Ledger is the capability set recur consumes.
type Ledger interface {
	// BalanceOf returns the spendable balance of owner.
	BalanceOf(ctx context.Context, owner types.Address) (types.Amount, error)
	// Allowance returns how much spender may move from owner.
	Allowance(ctx context.Context, owner, spender types.Address) (types.Amount, error)
	// TransferFrom moves amount from from to to using spender's allowance.
	// It must fail without partial effect if amount exceeds either the
	// balance of from or the allowance granted to spender.
	TransferFrom(ctx context.Context, spender, from, to types.Address, amount types.Amount) error
}
