package recur

import (
	"github.com/xraph/recur/offering"
	"github.com/xraph/recur/types"
)

// CanTrigger reports whether caller may charge subscriber on o. The
// allow-set is the offering owner, the offering recipient and the
// subscriber itself.
func CanTrigger(caller types.Address, o *offering.Offering, subscriber types.Address) bool {
	if caller.IsZero() || o == nil {
		return false
	}
	return caller == o.Owner || caller == o.Recipient || caller == subscriber
}

// CanAdminister reports whether caller may pause, unpause or cancel o.
func CanAdminister(caller types.Address, o *offering.Offering) bool {
	return o != nil && !caller.IsZero() && caller == o.Owner
}
