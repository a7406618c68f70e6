package domain

// Phase is the sale phase derived from the clock.
type Phase string

const (
	PhaseNotStarted Phase = "NOT_STARTED"
	PhaseActive     Phase = "ACTIVE"
	PhaseEnded      Phase = "ENDED"
)

// String returns the string representation of Phase.
func (p Phase) String() string {
	return string(p)
}

// IsValid checks if the phase is a valid value.
func (p Phase) IsValid() bool {
	return p == PhaseNotStarted || p == PhaseActive || p == PhaseEnded
}
