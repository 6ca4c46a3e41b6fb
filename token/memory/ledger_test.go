package memory_test

import (
	"context"
	"errors"
	"testing"

	"github.com/xraph/recur/token"
	"github.com/xraph/recur/token/memory"
	"github.com/xraph/recur/types"
)

const (
	alice   types.Address = "alice"
	bob     types.Address = "bob"
	spender types.Address = "recur"
)

func TestTransferFrom(t *testing.T) {
	tests := []struct {
		name      string
		balance   types.Amount
		allowance types.Amount
		amount    types.Amount
		wantErr   error
	}{
		{"ok", types.Tokens(5), types.Tokens(5), types.Tokens(1), nil},
		{"exact", types.Tokens(1), types.Tokens(1), types.Tokens(1), nil},
		{"no allowance", types.Tokens(5), 0, types.Tokens(1), token.ErrInsufficientAllowance},
		{"no balance", 0, types.Tokens(5), types.Tokens(1), token.ErrInsufficientBalance},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			l := memory.New()
			l.Mint(alice, tt.balance)
			l.Approve(alice, spender, tt.allowance)

			err := l.TransferFrom(ctx, spender, alice, bob, tt.amount)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err: got %v, want %v", err, tt.wantErr)
			}

			gotAlice, _ := l.BalanceOf(ctx, alice)
			gotBob, _ := l.BalanceOf(ctx, bob)
			gotAllowance, _ := l.Allowance(ctx, alice, spender)

			if tt.wantErr != nil {
				if gotAlice != tt.balance || gotBob != 0 || gotAllowance != tt.allowance {
					t.Errorf("failed transfer had effects: alice=%s bob=%s allowance=%s", gotAlice, gotBob, gotAllowance)
				}
				return
			}
			if gotAlice != tt.balance-tt.amount {
				t.Errorf("alice: got %s, want %s", gotAlice, tt.balance-tt.amount)
			}
			if gotBob != tt.amount {
				t.Errorf("bob: got %s, want %s", gotBob, tt.amount)
			}
			if gotAllowance != tt.allowance-tt.amount {
				t.Errorf("allowance: got %s, want %s", gotAllowance, tt.allowance-tt.amount)
			}
		})
	}
}

func TestTransferHookAborts(t *testing.T) {
	ctx := context.Background()
	l := memory.New()
	l.Mint(alice, types.Tokens(1))
	l.Approve(alice, spender, types.Tokens(1))

	boom := errors.New("boom")
	l.OnTransfer(func(context.Context, types.Address, types.Address, types.Address, types.Amount) error {
		return boom
	})

	if err := l.TransferFrom(ctx, spender, alice, bob, types.Tokens(1)); !errors.Is(err, boom) {
		t.Fatalf("expected hook error, got %v", err)
	}
	if l.Transfers() != 0 {
		t.Errorf("expected no transfers, got %d", l.Transfers())
	}
}
