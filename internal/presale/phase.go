package presale

import "solana-presale/internal/domain"

// Phase predicates are recomputed from the clock on every call; nothing is stored.

func (p *Presale) hasStartedAt(now int64) bool { return now >= p.cfg.StartTime }
func (p *Presale) hasEndedAt(now int64) bool   { return now >= p.cfg.EndTime }
func (p *Presale) isActiveAt(now int64) bool   { return p.hasStartedAt(now) && !p.hasEndedAt(now) }

// HasStarted reports now >= start.
func (p *Presale) HasStarted() bool {
	return p.hasStartedAt(p.clock.Now())
}

// HasEnded reports now >= end.
func (p *Presale) HasEnded() bool {
	return p.hasEndedAt(p.clock.Now())
}

// IsActive reports start <= now < end.
func (p *Presale) IsActive() bool {
	return p.isActiveAt(p.clock.Now())
}

// Phase returns the current phase.
func (p *Presale) Phase() domain.Phase {
	return p.cfg.PhaseAt(p.clock.Now())
}

// RemainingTime returns end-now until the sale ends, then 0.
// Measured against end only, so before start it exceeds the window length.
func (p *Presale) RemainingTime() int64 {
	now := p.clock.Now()
	if p.hasEndedAt(now) {
		return 0
	}
	return p.cfg.EndTime - now
}
