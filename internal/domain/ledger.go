package domain

// PoolState is the lifecycle of the distributable pool.
type PoolState string

const (
	PoolPending  PoolState = "PENDING"  // not built yet
	PoolBuilding PoolState = "BUILDING" // flag flipped, exchange call in flight
	PoolBuilt    PoolState = "BUILT"    // lpTotalAmount frozen
)

// LedgerSnapshot is a point-in-time copy of the global ledger.
type LedgerSnapshot struct {
	SaleID        string         `json:"sale_id"`
	Owner         string         `json:"owner"`
	TotalRaised   uint64         `json:"total_raised"`
	Pool          PoolState      `json:"pool"`
	LPTotalAmount uint64         `json:"lp_total_amount"`
	Distributed   uint64         `json:"distributed"`
	ClaimedTotal  uint64         `json:"claimed_total"`
	SweptTotal    uint64         `json:"swept_total"`
	LastSeq       uint64         `json:"last_seq"`
	Participants  []*Participant `json:"participants"` // ordered by address
}

// LPBuilt reports whether the pool transitioned past pending.
func (s *LedgerSnapshot) LPBuilt() bool {
	return s.Pool == PoolBuilt
}

// Participant returns the record for addr, or nil.
func (s *LedgerSnapshot) Participant(addr string) *Participant {
	for _, p := range s.Participants {
		if p.Address == addr {
			return p
		}
	}
	return nil
}
