package reporting

import (
	"fmt"
	"strings"
)

// RenderCSV renders participant rows as CSV string.
func RenderCSV(rows []ParticipantRow) string {
	var sb strings.Builder

	// Header
	sb.WriteString("address,allocation,share_pct,entitlement,has_claimed,referrer\n")

	// Rows
	for _, r := range rows {
		sb.WriteString(fmt.Sprintf("%s,%d,%.6f,%d,%t,%s\n",
			r.Address,
			r.Allocation,
			r.SharePct,
			r.Entitlement,
			r.HasClaimed,
			r.Referrer,
		))
	}

	return sb.String()
}
