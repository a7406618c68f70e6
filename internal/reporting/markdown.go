package reporting

import (
	"fmt"
	"strings"
	"time"
)

// RenderMarkdown renders report as Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder
	s := r.Sale

	// Header
	sb.WriteString("# Presale Settlement Report\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))
	sb.WriteString(fmt.Sprintf("Sale: `%s` | Phase: %s | Pool: %s\n\n", s.SaleID, s.Phase, s.Pool))

	// Summary
	sb.WriteString("## Summary\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Owner | %s |\n", s.Owner))
	sb.WriteString(fmt.Sprintf("| Window Start | %d |\n", s.StartTime))
	sb.WriteString(fmt.Sprintf("| Window End | %d |\n", s.EndTime))
	sb.WriteString(fmt.Sprintf("| Total Raised | %d |\n", s.TotalRaised))
	sb.WriteString(fmt.Sprintf("| Participants | %d |\n", s.Participants))
	sb.WriteString(fmt.Sprintf("| LP Total | %d |\n", s.LPTotalAmount))
	sb.WriteString(fmt.Sprintf("| Distributed | %d |\n", s.Distributed))
	sb.WriteString(fmt.Sprintf("| Claimed | %d (%d/%d participants) |\n", s.ClaimedTotal, s.Claimed, s.Participants))
	sb.WriteString(fmt.Sprintf("| Swept | %d |\n", s.SweptTotal))
	sb.WriteString(fmt.Sprintf("| Dust | %d |\n", s.Dust))
	sb.WriteString(fmt.Sprintf("| Journal Seq | %d |\n", s.LastSeq))
	sb.WriteString("\n")

	// Integrity
	sb.WriteString("## Integrity\n\n")
	if len(r.IntegrityErrors) > 0 {
		for _, err := range r.IntegrityErrors {
			sb.WriteString(fmt.Sprintf("- %s\n", err))
		}
	} else {
		sb.WriteString("All ledger invariants hold.\n")
	}
	sb.WriteString("\n")

	// Participants
	sb.WriteString("## Participants\n\n")
	if len(r.Participants) > 0 {
		sb.WriteString("| Address | Allocation | Share% | Entitlement | Claimed | Referrer |\n")
		sb.WriteString("|---------|------------|--------|-------------|---------|----------|\n")
		for _, p := range r.Participants {
			claimed := "no"
			if p.HasClaimed {
				claimed = "yes"
			}
			referrer := p.Referrer
			if referrer == "" {
				referrer = "-"
			}
			sb.WriteString(fmt.Sprintf("| %s | %d | %.4f | %d | %s | %s |\n",
				p.Address, p.Allocation, p.SharePct, p.Entitlement, claimed, referrer))
		}
	} else {
		sb.WriteString("No contributions.\n")
	}
	sb.WriteString("\n")

	// Raise series
	sb.WriteString("## Hourly Raise\n\n")
	if len(r.RaiseSeries) > 0 {
		sb.WriteString("| Hour Start | Raised | Contributions | Buyers | Cumulative |\n")
		sb.WriteString("|------------|--------|---------------|--------|------------|\n")
		for _, p := range r.RaiseSeries {
			sb.WriteString(fmt.Sprintf("| %s | %d | %d | %d | %d |\n",
				time.Unix(p.TimestampSec, 0).UTC().Format(time.RFC3339),
				p.Raised, p.ContributionCount, p.UniqueBuyers, p.CumulativeRaised))
		}
	} else {
		sb.WriteString("No raise data available.\n")
	}
	sb.WriteString("\n")

	return sb.String()
}
