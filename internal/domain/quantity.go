package domain

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// MaxQuantity bounds a single quantity accepted from a caller.
const MaxQuantity = 9999

// ParseQuantity parses a caller-supplied quantity. Only whole numbers are
// accepted ("2" and "2.0" are fine, "1.5" is not). Zero and negative values
// pass through so that an update can remove a line; adding rejects them.
func ParseQuantity(s string) (int, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("quantity %q is not a number", s)
	}
	if !d.IsInteger() {
		return 0, fmt.Errorf("quantity %s must be a whole number", d.String())
	}
	if d.Abs().GreaterThan(decimal.NewFromInt(MaxQuantity)) {
		return 0, fmt.Errorf("quantity %s exceeds %d", d.String(), MaxQuantity)
	}
	return int(d.IntPart()), nil
}
