package charge

import (
	"github.com/xraph/recur/offering"
	"github.com/xraph/recur/types"
)

// ListOpts filters charge history. Zero values match everything. Results
// are ordered by ChargedAt, newest first.
type ListOpts struct {
	OfferingID offering.ID
	Subscriber types.Address
	Limit      int
	Offset     int
}
