package subscription

// ListOpts pages subscription listings. Records are never deleted, so the
// per-offering and per-subscriber listings double as membership indexes.
type ListOpts struct {
	ActiveOnly bool
	Limit      int
	Offset     int
}
