package domain

// EventKind identifies a ledger event.
type EventKind string

const (
	EventContribution         EventKind = "CONTRIBUTION"
	EventPoolBuilt            EventKind = "POOL_BUILT"
	EventClaim                EventKind = "CLAIM"
	EventOwnershipTransferred EventKind = "OWNERSHIP_TRANSFERRED"
	EventDustSwept            EventKind = "DUST_SWEPT"
)

// String returns the string representation of EventKind.
func (k EventKind) String() string {
	return string(k)
}

// IsValid checks if the kind is a valid value.
func (k EventKind) IsValid() bool {
	switch k {
	case EventContribution, EventPoolBuilt, EventClaim, EventOwnershipTransferred, EventDustSwept:
		return true
	}
	return false
}

// LedgerEvent is a committed state transition of a sale.
// Corresponds to ledger_events table in PostgreSQL.
//
// Field usage per kind:
//
//	CONTRIBUTION           Account=user, Counterparty=referrer, Amount=contribution
//	POOL_BUILT             Account=owner, Counterparty=distribution target, Amount=lpTotalAmount, Secondary=distributed
//	CLAIM                  Account=user, Amount=lpAmount
//	OWNERSHIP_TRANSFERRED  Account=new owner, Counterparty=previous owner
//	DUST_SWEPT             Account=recipient, Amount=swept
type LedgerEvent struct {
	EventID      string    `json:"event_id"` // deterministic hash
	SaleID       string    `json:"sale_id"`  // vault address
	Seq          uint64    `json:"seq"`      // 1-based, gapless per sale
	Kind         EventKind `json:"kind"`
	Account      string    `json:"account,omitempty"`
	Counterparty string    `json:"counterparty,omitempty"`
	Amount       uint64    `json:"amount"`
	Secondary    uint64    `json:"secondary,omitempty"`
	Timestamp    int64     `json:"timestamp"`            // clock time (unix seconds)
	CreatedAt    int64     `json:"created_at,omitempty"` // record creation timestamp (ms)
}
