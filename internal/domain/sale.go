package domain

// SaleConfig holds the immutable parameters of a presale.
// Set once at construction and never mutated afterwards.
type SaleConfig struct {
	ContributionAsset  string // asset accepted by buy (base58)
	SettlementAsset    string // asset paid out by claim (base58)
	Exchange           string // external exchange integration (base58)
	DistributionTarget string // receives a share of the pool on build (base58)
	StartTime          int64  // unix seconds, inclusive
	EndTime            int64  // unix seconds, exclusive
	DistributionBps    uint32 // share of the pool routed to DistributionTarget (basis points)
}

// MaxBps is the basis-point denominator.
const MaxBps = 10_000

// Duration returns the length of the contribution window in seconds.
func (c SaleConfig) Duration() int64 {
	return c.EndTime - c.StartTime
}

// PhaseAt derives the phase at unix time now: the window is [StartTime, EndTime).
func (c SaleConfig) PhaseAt(now int64) Phase {
	switch {
	case now >= c.EndTime:
		return PhaseEnded
	case now >= c.StartTime:
		return PhaseActive
	default:
		return PhaseNotStarted
	}
}
