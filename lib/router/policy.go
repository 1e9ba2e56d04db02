package router

import (
	"errors"
	"fmt"

	"github.com/go-i2p/go-onion/lib/config"
	"github.com/go-i2p/go-onion/lib/onion"
)

// ErrImplausibleDestination is returned when a peeled destination falls
// outside every address range of the network.
var ErrImplausibleDestination = errors.New("implausible destination")

// AddressRange covers Count consecutive addresses starting at First.
type AddressRange struct {
	First onion.Address
	Count int
}

// Contains reports whether addr lies in the range.
func (r AddressRange) Contains(addr onion.Address) bool {
	return addr >= r.First && uint64(addr-r.First) < uint64(r.Count)
}

func (r AddressRange) String() string {
	if r.Count <= 0 {
		return fmt.Sprintf("[%s, empty)", r.First)
	}
	return fmt.Sprintf("[%s, %s]", r.First, r.First+onion.Address(r.Count-1))
}

// NetworkRanges returns the relay and user port ranges of a network.
func NetworkRanges(n config.NetworkDefaults) []AddressRange {
	return []AddressRange{
		{First: onion.Address(n.RelayBasePort), Count: n.RelayCount},
		{First: onion.Address(n.UserBasePort), Count: n.UserCount},
	}
}

// checkDestination accepts addr when ranges is empty or any range contains it.
func checkDestination(addr onion.Address, ranges []AddressRange) error {
	if len(ranges) == 0 {
		return nil
	}
	for _, r := range ranges {
		if r.Contains(addr) {
			return nil
		}
	}
	return fmt.Errorf("%w: %s is outside %v", ErrImplausibleDestination, addr, ranges)
}
