package offering

import (
	"fmt"
	"strconv"
	"time"

	"github.com/xraph/recur/types"
)

// ID is a sequential offering identifier. The first offering is 1; zero is
// never allocated.
type ID uint64

// String returns the decimal form of the id.
func (i ID) String() string { return strconv.FormatUint(uint64(i), 10) }

// ParseID parses the decimal form of an offering id.
func ParseID(s string) (ID, error) {
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil || n == 0 {
		return 0, fmt.Errorf("offering: invalid id %q", s)
	}
	return ID(n), nil
}

// Creation bounds.
const (
	MaxServiceIDLength           = 100
	MinPeriodSeconds       int64 = 60
	MaxPeriodSeconds       int64 = 31_536_000
	MaxAmountPerPeriod           = types.Amount(1_000_000) * types.Unit
	MinAmountPerPeriod           = types.Amount(1)
)

// Offering is a recurring-service listing. Owner, Recipient,
// AmountPerPeriod and PeriodSeconds never change after creation.
type Offering struct {
	types.Entity
	ID                  ID            `json:"id"`
	ServiceID           string        `json:"service_id"`
	Owner               types.Address `json:"owner"`
	Recipient           types.Address `json:"recipient"`
	AmountPerPeriod     types.Amount  `json:"amount_per_period"`
	PeriodSeconds       int64         `json:"period_seconds"`
	Active              bool          `json:"active"`
	SubscriberCount     uint64        `json:"subscriber_count"`
	LifetimeSubscribers uint64        `json:"lifetime_subscribers"`
}

// Period returns the billing period as a duration.
func (o *Offering) Period() time.Duration {
	return time.Duration(o.PeriodSeconds) * time.Second
}

// Params are the caller-supplied fields of a new offering.
type Params struct {
	ServiceID       string        `json:"service_id"`
	Recipient       types.Address `json:"recipient"`
	AmountPerPeriod types.Amount  `json:"amount_per_period"`
	PeriodSeconds   int64         `json:"period_seconds"`
}
