package replay

import "errors"

var (
	// ErrInvalidOrdering is returned when the journal has gaps, duplicates or
	// out-of-order sequence numbers.
	ErrInvalidOrdering = errors.New("events are not in sequence order")

	// ErrForeignEvent is returned when an event belongs to another sale.
	ErrForeignEvent = errors.New("event belongs to another sale")

	// ErrUnknownKind is returned for events the ledger cannot fold.
	ErrUnknownKind = errors.New("unknown event kind")
)
