package charge

import (
	"time"

	"github.com/xraph/recur/id"
	"github.com/xraph/recur/offering"
	"github.com/xraph/recur/types"
)

// Charge is the receipt of one successful debit.
type Charge struct {
	ID         id.ChargeID   `json:"id"`
	OfferingID offering.ID   `json:"offering_id"`
	Subscriber types.Address `json:"subscriber"`
	Recipient  types.Address `json:"recipient"`
	Amount     types.Amount  `json:"amount"`
	// Sequence is the subscription's ChargeCount after this charge.
	Sequence  uint64     `json:"sequence"`
	DueAt     time.Time  `json:"due_at"`
	ChargedAt time.Time  `json:"charged_at"`
	BatchID   id.BatchID `json:"batch_id,omitempty"`
}

// Late returns how far past its due time the charge ran.
func (c *Charge) Late() time.Duration {
	if c.ChargedAt.Before(c.DueAt) {
		return 0
	}
	return c.ChargedAt.Sub(c.DueAt)
}

// Failure records one subscriber that ChargeAll could not charge.
type Failure struct {
	Subscriber types.Address `json:"subscriber"`
	Reason     error         `json:"-"`
}

// BatchResult is the outcome of one ChargeAll run.
type BatchResult struct {
	ID          id.BatchID  `json:"id"`
	OfferingID  offering.ID `json:"offering_id"`
	Succeeded   int         `json:"succeeded"`
	Failed      int         `json:"failed"`
	Skipped     int         `json:"skipped"`
	Charges     []*Charge   `json:"charges"`
	Failures    []Failure   `json:"-"`
	StartedAt   time.Time   `json:"started_at"`
	CompletedAt time.Time   `json:"completed_at"`
}

// Collected sums the amounts of all successful charges.
func (r *BatchResult) Collected() types.Amount {
	var total types.Amount
	for _, c := range r.Charges {
		total += c.Amount
	}
	return total
}
