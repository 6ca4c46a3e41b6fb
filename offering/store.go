package offering

import "github.com/xraph/recur/types"

// ListOpts filters offering listings. Results are ordered by ID.
type ListOpts struct {
	Owner      types.Address
	ActiveOnly bool
	Limit      int
	Offset     int
}
