package domain

// Participant is the per-identity contribution record.
// Created lazily on first contribution, never deleted.
type Participant struct {
	Address    string // participant identity
	Allocation uint64 // cumulative contribution
	HasClaimed bool   // true once the pro-rata payout was made
	Referrer   string // recorded on first contribution only; empty if none
}

// UserInfo is the read view returned by getUserInfo.
type UserInfo struct {
	Allocation uint64 `json:"allocation"`
	HasClaimed bool   `json:"has_claimed"`
	Referrer   string `json:"referrer,omitempty"`
}

// Info returns the read view of the participant.
func (p *Participant) Info() UserInfo {
	if p == nil {
		return UserInfo{}
	}
	return UserInfo{
		Allocation: p.Allocation,
		HasClaimed: p.HasClaimed,
		Referrer:   p.Referrer,
	}
}
