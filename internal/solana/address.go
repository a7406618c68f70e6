package solana

import (
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

// PublicKeyLength is the byte length of a Solana public key.
const PublicKeyLength = 32

// ZeroAddress is the all-zero public key (system program).
// Used as "no referrer".
const ZeroAddress = "11111111111111111111111111111111"

// pdaMarker is appended to PDA seeds before hashing.
const pdaMarker = "ProgramDerivedAddress"

// maxSeedLength is the per-seed byte limit for PDA derivation.
const maxSeedLength = 32

var (
	// ErrInvalidAddress is returned for strings that are not base58 32-byte keys.
	ErrInvalidAddress = errors.New("invalid address")

	// ErrNoViableBump is returned when no bump produces an off-curve point.
	ErrNoViableBump = errors.New("unable to find a viable program address bump seed")

	// ErrSeedTooLong is returned when a seed exceeds maxSeedLength.
	ErrSeedTooLong = errors.New("seed exceeds 32 bytes")
)

// DecodeAddress decodes a base58 public key.
func DecodeAddress(addr string) ([]byte, error) {
	if addr == "" {
		return nil, ErrInvalidAddress
	}
	b, err := base58.Decode(addr)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidAddress, addr)
	}
	if len(b) != PublicKeyLength {
		return nil, fmt.Errorf("%w: %s decodes to %d bytes", ErrInvalidAddress, addr, len(b))
	}
	return b, nil
}

// ValidateAddress checks that addr is a base58 32-byte public key.
func ValidateAddress(addr string) error {
	_, err := DecodeAddress(addr)
	return err
}

// IsZeroAddress reports whether addr is empty or the all-zero key.
func IsZeroAddress(addr string) bool {
	return addr == "" || addr == ZeroAddress
}

// FindProgramAddress derives a Program Derived Address using the Solana algorithm.
// Bumps are tried from 255 downwards until the hash is off the ed25519 curve.
func FindProgramAddress(seeds [][]byte, programID string) (string, uint8, error) {
	programBytes, err := DecodeAddress(programID)
	if err != nil {
		return "", 0, err
	}
	for _, seed := range seeds {
		if len(seed) > maxSeedLength {
			return "", 0, ErrSeedTooLong
		}
	}

	for bump := 255; bump >= 0; bump-- {
		data := make([]byte, 0, 64+len(programBytes)+len(pdaMarker))
		for _, seed := range seeds {
			data = append(data, seed...)
		}
		data = append(data, byte(bump))
		data = append(data, programBytes...)
		data = append(data, []byte(pdaMarker)...)

		hash := sha256.Sum256(data)
		if !isOnCurve(hash[:]) {
			return base58.Encode(hash[:]), uint8(bump), nil
		}
	}

	return "", 0, ErrNoViableBump
}

// VaultSeeds returns the PDA seeds of a presale escrow vault.
// Seeds: ["presale", contribution_asset, start_le8, end_le8]
func VaultSeeds(contributionAsset string, startTime, endTime int64) ([][]byte, error) {
	asset, err := DecodeAddress(contributionAsset)
	if err != nil {
		return nil, err
	}
	start := make([]byte, 8)
	binary.LittleEndian.PutUint64(start, uint64(startTime))
	end := make([]byte, 8)
	binary.LittleEndian.PutUint64(end, uint64(endTime))

	return [][]byte{[]byte("presale"), asset, start, end}, nil
}

func isOnCurve(point []byte) bool {
	if len(point) != PublicKeyLength {
		return false
	}
	_, err := new(edwards25519.Point).SetBytes(point)
	return err == nil
}
