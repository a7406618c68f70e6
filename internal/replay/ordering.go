package replay

import (
	"fmt"
	"sort"

	"solana-presale/internal/domain"
)

// SortEvents orders events by seq ASC.
func SortEvents(events []*domain.LedgerEvent) {
	sort.Slice(events, func(i, j int) bool {
		return events[i].Seq < events[j].Seq
	})
}

// CheckSequence verifies that sorted events are numbered 1..n without gaps
// or duplicates.
func CheckSequence(events []*domain.LedgerEvent) error {
	for i, e := range events {
		want := uint64(i + 1)
		if e.Seq != want {
			return fmt.Errorf("%w: position %d has seq %d, want %d", ErrInvalidOrdering, i, e.Seq, want)
		}
	}
	return nil
}
