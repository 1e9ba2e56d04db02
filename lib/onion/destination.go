package onion

import (
	"fmt"
	"strconv"
	"strings"
)

// EncodeDestination renders addr as exactly width decimal digits, left padded with zeros.
func EncodeDestination(addr Address, width int) (string, error) {
	digits := strconv.FormatUint(uint64(addr), 10)
	if len(digits) > width {
		return "", fmt.Errorf("%w: %s has %d digits, field holds %d", ErrDestinationOverflow, digits, len(digits), width)
	}
	return strings.Repeat("0", width-len(digits)) + digits, nil
}

// DecodeDestination parses a field produced by EncodeDestination.
func DecodeDestination(field string, width int) (Address, error) {
	if len(field) != width {
		return 0, fmt.Errorf("%w: length %d, want %d", ErrMalformedDestination, len(field), width)
	}
	for i := 0; i < len(field); i++ {
		if field[i] < '0' || field[i] > '9' {
			return 0, fmt.Errorf("%w: non-digit at offset %d", ErrMalformedDestination, i)
		}
	}
	v, err := strconv.ParseUint(field, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrMalformedDestination, err)
	}
	return Address(v), nil
}
