package subnet

import (
	"fmt"
	"iter"
	"math/bits"
	"net/netip"

	"go4.org/netipx"
)

const (
	// MinHostBits is the number of host bits every subnet keeps.
	MinHostBits = 1

	// MaxPrefixLen is the longest prefix the planner hands out. A /32 has a
	// single address and cannot hold anything.
	MaxPrefixLen = 32 - MinHostBits
)

// NearestPowerOfTwo returns the smallest power of two that is >= n.
// It returns 1 for n <= 1.
func NearestPowerOfTwo(n int) int {
	if n <= 1 {
		return 1
	}
	return 1 << bits.Len(uint(n-1))
}

// PrefixLength returns the prefix length that splits parent into enough equal
// subnets for one public and one private subnet per zone.
//
// The demand of 2*zoneCount is rounded up to a power of two, target, and the
// result is parent.Bits() + log2(target).
func PrefixLength(parent netip.Prefix, zoneCount int) (int, error) {
	if err := checkNetwork(parent); err != nil {
		return 0, err
	}
	if zoneCount < 1 {
		return 0, fmt.Errorf("%w: zone count %d", ErrNoZones, zoneCount)
	}

	// Counts past the parent's capacity are rejected before 2*zoneCount can
	// overflow. log2(NearestPowerOfTwo(2z)) is 1 + bits.Len(z-1).
	if zoneCount > 1<<max(MaxPrefixLen-parent.Bits(), 0) {
		return 0, tooSmall(parent, zoneCount, parent.Bits()+1+bits.Len(uint(zoneCount-1)))
	}

	target := NearestPowerOfTwo(2 * zoneCount)
	prefix := parent.Bits() + bits.TrailingZeros(uint(target))
	if prefix > MaxPrefixLen {
		return 0, tooSmall(parent, zoneCount, prefix)
	}
	return prefix, nil
}

func tooSmall(parent netip.Prefix, zoneCount, prefix int) *NetworkTooSmallError {
	return &NetworkTooSmallError{
		Network: parent,
		Zones:   zoneCount,
		Prefix:  prefix,
	}
}

// Children yields the subnets of parent with the given prefix length in
// increasing address order. The sequence is empty if prefixLen is shorter than
// the parent's or longer than the address.
func Children(parent netip.Prefix, prefixLen int) iter.Seq[netip.Prefix] {
	return func(yield func(netip.Prefix) bool) {
		if !parent.IsValid() || prefixLen < parent.Bits() || prefixLen > parent.Addr().BitLen() {
			return
		}
		parent = parent.Masked()
		for addr := parent.Addr(); addr.IsValid() && parent.Contains(addr); {
			child := netip.PrefixFrom(addr, prefixLen)
			if !yield(child) {
				return
			}
			// Next of the last address in 255.255.255.255/n is the zero Addr.
			addr = netipx.PrefixLastIP(child).Next()
		}
	}
}
