package presale

import "github.com/holiman/uint256"

// mulDiv returns floor(a*b/d) with a 256-bit intermediate product.
// d == 0 yields 0.
func mulDiv(a, b, d uint64) (uint64, error) {
	if d == 0 {
		return 0, nil
	}
	res, overflow := new(uint256.Int).MulDivOverflow(
		uint256.NewInt(a),
		uint256.NewInt(b),
		uint256.NewInt(d),
	)
	if overflow || !res.IsUint64() {
		return 0, ErrOverflow
	}
	return res.Uint64(), nil
}

// addChecked returns a+b or ErrOverflow.
func addChecked(a, b uint64) (uint64, error) {
	sum := a + b
	if sum < a {
		return 0, ErrOverflow
	}
	return sum, nil
}

// ProRata returns floor(allocation*lpTotal/totalRaised), the claim amount of
// a participant. totalRaised == 0 yields 0.
func ProRata(allocation, lpTotal, totalRaised uint64) (uint64, error) {
	return mulDiv(allocation, lpTotal, totalRaised)
}

// Dust returns the part of a built pool no participant can ever claim:
// lpTotal minus the floor entitlement of every allocation minus what was
// already swept, floored at zero.
func Dust(allocations []uint64, lpTotal, totalRaised, swept uint64) (uint64, error) {
	var reserved uint64
	for _, allocation := range allocations {
		amount, err := mulDiv(allocation, lpTotal, totalRaised)
		if err != nil {
			return 0, err
		}
		if reserved, err = addChecked(reserved, amount); err != nil {
			return 0, err
		}
	}
	reserved, err := addChecked(reserved, swept)
	if err != nil || reserved >= lpTotal {
		return 0, err
	}
	return lpTotal - reserved, nil
}
