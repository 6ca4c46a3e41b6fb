package recur

import "github.com/xraph/recur/id"

// ID is the TypeID identifier used for charge receipts, events and batches.
type ID = id.ID

// Prefix identifies the entity type encoded in a TypeID.
type Prefix = id.Prefix
