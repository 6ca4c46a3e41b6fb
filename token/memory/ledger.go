// Package memory provides an in-process token ledger for tests and local
// development.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/xraph/recur/token"
	"github.com/xraph/recur/types"
)

// Compile-time interface check.
var _ token.Ledger = (*Ledger)(nil)

// TransferHook runs inside TransferFrom before any balance moves. Tests use
// it to simulate callouts that re-enter the caller. A non-nil error aborts
// the transfer.
type TransferHook func(ctx context.Context, spender, from, to types.Address, amount types.Amount) error

// Ledger is a map-backed token ledger.
type Ledger struct {
	mu         sync.Mutex
	balances   map[types.Address]types.Amount
	allowances map[types.Address]map[types.Address]types.Amount
	hook       TransferHook
	transfers  int
}

// New creates an empty ledger.
func New() *Ledger {
	return &Ledger{
		balances:   make(map[types.Address]types.Amount),
		allowances: make(map[types.Address]map[types.Address]types.Amount),
	}
}

// Mint credits amount to owner.
func (l *Ledger) Mint(owner types.Address, amount types.Amount) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balances[owner] += amount
}

// SetBalance overwrites owner's balance.
func (l *Ledger) SetBalance(owner types.Address, amount types.Amount) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balances[owner] = amount
}

// Approve sets how much spender may move from owner.
func (l *Ledger) Approve(owner, spender types.Address, amount types.Amount) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.allowances[owner] == nil {
		l.allowances[owner] = make(map[types.Address]types.Amount)
	}
	l.allowances[owner][spender] = amount
}

// OnTransfer installs a hook that runs at the start of every TransferFrom.
func (l *Ledger) OnTransfer(hook TransferHook) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.hook = hook
}

// Transfers returns the number of successful transfers.
func (l *Ledger) Transfers() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.transfers
}

func (l *Ledger) BalanceOf(_ context.Context, owner types.Address) (types.Amount, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balances[owner], nil
}

func (l *Ledger) Allowance(_ context.Context, owner, spender types.Address) (types.Amount, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.allowances[owner][spender], nil
}

func (l *Ledger) TransferFrom(ctx context.Context, spender, from, to types.Address, amount types.Amount) error {
	l.mu.Lock()
	hook := l.hook
	l.mu.Unlock()

	// The hook runs unlocked so it may call back into the ledger.
	if hook != nil {
		if err := hook(ctx, spender, from, to, amount); err != nil {
			return err
		}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if from.IsZero() || to.IsZero() {
		return fmt.Errorf("%w: null address", token.ErrInvalidTransfer)
	}
	if allowed := l.allowances[from][spender]; allowed < amount {
		return fmt.Errorf("%w: %s allowed, %s requested", token.ErrInsufficientAllowance, allowed, amount)
	}
	if bal := l.balances[from]; bal < amount {
		return fmt.Errorf("%w: %s available, %s requested", token.ErrInsufficientBalance, bal, amount)
	}

	l.balances[from] -= amount
	l.balances[to] += amount
	l.allowances[from][spender] -= amount
	l.transfers++
	return nil
}
