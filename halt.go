package recur

import (
	"sync/atomic"

	"github.com/xraph/recur/types"
)

// Halter reports whether the emergency halt is engaged. While it is, every
// state-mutating operation fails with ErrHalted. Queries keep working.
type Halter interface {
	Halted() bool
}

// HaltSwitch is a Halter toggled only by its administrator.
type HaltSwitch struct {
	admin  types.Address
	halted atomic.Bool
}

// NewHaltSwitch creates a released switch owned by admin.
func NewHaltSwitch(admin types.Address) *HaltSwitch {
	return &HaltSwitch{admin: admin}
}

// Halted implements Halter.
func (h *HaltSwitch) Halted() bool { return h.halted.Load() }

// Engage halts the engine.
func (h *HaltSwitch) Engage(caller types.Address) error {
	if caller != h.admin || caller.IsZero() {
		return &CallerError{Op: "engage_halt", Caller: caller}
	}
	h.halted.Store(true)
	return nil
}

// Release resumes the engine.
func (h *HaltSwitch) Release(caller types.Address) error {
	if caller != h.admin || caller.IsZero() {
		return &CallerError{Op: "release_halt", Caller: caller}
	}
	h.halted.Store(false)
	return nil
}

type neverHalted struct{}

func (neverHalted) Halted() bool { return false }
