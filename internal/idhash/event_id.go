package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"solana-presale/internal/domain"
)

// ComputeEventID computes a deterministic event_id using SHA256.
// Formula: SHA256(sale_id|seq|kind|account|amount)
// Returns hex-encoded hash (64 characters).
func ComputeEventID(
	saleID string,
	seq uint64,
	kind domain.EventKind,
	account string,
	amount uint64,
) string {
	data := fmt.Sprintf("%s|%d|%s|%s|%d",
		saleID,
		seq,
		string(kind),
		account,
		amount,
	)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
