package api

import "solana-presale/internal/domain"

// BuyRequest is the body of POST /buy. A zero amount is rejected by the sale.
type BuyRequest struct {
	Caller   string `json:"caller" binding:"required,base58addr"`
	Referrer string `json:"referrer" binding:"omitempty,base58addr"`
	Amount   uint64 `json:"amount"`
}

// CallerRequest is the body of POST /claim and POST /build-lp.
type CallerRequest struct {
	Caller string `json:"caller" binding:"required,base58addr"`
}

// TransferOwnershipRequest is the body of POST /transfer-ownership.
type TransferOwnershipRequest struct {
	Caller   string `json:"caller" binding:"required,base58addr"`
	NewOwner string `json:"new_owner" binding:"required"`
}

// SweepDustRequest is the body of POST /sweep-dust.
type SweepDustRequest struct {
	Caller    string `json:"caller" binding:"required,base58addr"`
	Recipient string `json:"recipient" binding:"required"`
}

// EventsQuery filters GET /events.
type EventsQuery struct {
	Kind    string `form:"kind" binding:"omitempty,oneof=CONTRIBUTION POOL_BUILT CLAIM OWNERSHIP_TRANSFERRED DUST_SWEPT"`
	Account string `form:"account" binding:"omitempty,base58addr"`
	After   uint64 `form:"after"`
	Limit   int    `form:"limit" binding:"omitempty,min=1,max=1000"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string `json:"status"`
	Uptime string `json:"uptime"`
}

// StatusResponse is the body of GET /status.
type StatusResponse struct {
	SaleID             string           `json:"sale_id"`
	Owner              string           `json:"owner"`
	Phase              domain.Phase     `json:"phase"`
	HasStarted         bool             `json:"has_started"`
	HasEnded           bool             `json:"has_ended"`
	RemainingTime      int64            `json:"remaining_time"`
	StartTime          int64            `json:"start_time"`
	EndTime            int64            `json:"end_time"`
	ContributionAsset  string           `json:"contribution_asset"`
	SettlementAsset    string           `json:"settlement_asset"`
	DistributionTarget string           `json:"distribution_target"`
	TotalRaised        uint64           `json:"total_raised"`
	Participants       int              `json:"participants"`
	Pool               domain.PoolState `json:"pool"`
	LPBuilt            bool             `json:"lp_built"`
	LPTotalAmount      uint64           `json:"lp_total_amount"`
	Distributed        uint64           `json:"distributed"`
	ClaimedTotal       uint64           `json:"claimed_total"`
	Dust               uint64           `json:"dust"`
	LastSeq            uint64           `json:"last_seq"`
	JournalBacklog     int              `json:"journal_backlog"`
}

// VerifyResponse is the body of GET /verify.
type VerifyResponse struct {
	SaleID         string           `json:"sale_id"`
	Match          bool             `json:"match"`
	LiveSeq        uint64           `json:"live_seq"`
	ReplayedSeq    uint64           `json:"replayed_seq"`
	JournalBacklog int              `json:"journal_backlog"`
	Violations     []ViolationBody  `json:"violations,omitempty"`
	Divergences    []DivergenceBody `json:"divergences,omitempty"`
}

// ViolationBody is a broken ledger invariant.
type ViolationBody struct {
	Invariant string `json:"invariant"`
	Detail    string `json:"detail"`
}

// DivergenceBody is a field where the live ledger and the replay disagree.
type DivergenceBody struct {
	Field    string      `json:"field"`
	Live     interface{} `json:"live"`
	Replayed interface{} `json:"replayed"`
}

// UserResponse is the body of GET /users/:address.
type UserResponse struct {
	Address string `json:"address"`
	domain.UserInfo
	Share       domain.Share `json:"share"`
	SharePct    float64      `json:"share_pct"`
	Entitlement uint64       `json:"entitlement"`
}

// AmountResponse is returned by claim and sweep.
type AmountResponse struct {
	Amount uint64 `json:"amount"`
}

// BuildLPResponse is returned by build-lp.
type BuildLPResponse struct {
	LPAmount    uint64 `json:"lp_amount"`
	Distributed uint64 `json:"distributed"`
}

// EventsResponse is the body of GET /events.
type EventsResponse struct {
	Events []*domain.LedgerEvent `json:"events"`
}
