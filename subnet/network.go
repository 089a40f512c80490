// Package subnet sizes and allocates per-zone subnet pairs inside a VPC network.
//
// The planner rounds the demand of two subnets per availability zone up to the
// next power of two and splits the parent network into that many equal
// children:
//
//	10.0.0.0/16, 3 zones → 6 subnets → 8 → /19
//
// Children are handed out in increasing address order, public first, one pair
// per zone in the order the zones were listed.
package subnet

import (
	"errors"
	"fmt"
	"net/netip"
	"strings"
)

var (
	// ErrInvalidNetwork is returned for CIDR blocks that are malformed, not
	// IPv4, or have host bits set.
	ErrInvalidNetwork = errors.New("invalid network")

	// ErrNoZones is returned when there is nothing to allocate subnets for.
	ErrNoZones = errors.New("no availability zones")

	// ErrInvalidZone is returned for empty zone identifiers.
	ErrInvalidZone = errors.New("invalid availability zone")

	// ErrDuplicateZone is returned when a zone appears twice in the zone list.
	ErrDuplicateZone = errors.New("duplicate availability zone")

	// ErrNetworkTooSmall matches every *NetworkTooSmallError.
	ErrNetworkTooSmall = errors.New("network too small")

	// ErrSubnetsExhausted means the child sequence ran out during allocation.
	// PrefixLength rules this out, so seeing it indicates a bug.
	ErrSubnetsExhausted = errors.New("subnets exhausted")
)

// NetworkTooSmallError reports a parent network that cannot be split into two
// subnets per zone without going past MaxPrefixLen.
type NetworkTooSmallError struct {
	Network netip.Prefix
	Zones   int
	// Prefix is the prefix length the zones would have needed.
	Prefix int
}

func (e *NetworkTooSmallError) Error() string {
	return fmt.Sprintf("network %s too small for %d zones: needs /%d subnets, longest allowed prefix is /%d",
		e.Network, e.Zones, e.Prefix, MaxPrefixLen)
}

// Is lets errors.Is(err, ErrNetworkTooSmall) match.
func (e *NetworkTooSmallError) Is(target error) bool {
	return target == ErrNetworkTooSmall
}

// ParseNetwork parses an IPv4 CIDR block such as "10.0.0.0/16".
// The address must be the network address of the block.
func ParseNetwork(s string) (netip.Prefix, error) {
	p, err := netip.ParsePrefix(strings.TrimSpace(s))
	if err != nil {
		return netip.Prefix{}, fmt.Errorf("%w: %v", ErrInvalidNetwork, err)
	}
	if err := checkNetwork(p); err != nil {
		return netip.Prefix{}, err
	}
	return p, nil
}

func checkNetwork(p netip.Prefix) error {
	if !p.IsValid() {
		return fmt.Errorf("%w: %s", ErrInvalidNetwork, p)
	}
	if !p.Addr().Is4() {
		return fmt.Errorf("%w: %s is not an IPv4 block", ErrInvalidNetwork, p)
	}
	if masked := p.Masked(); masked != p {
		return fmt.Errorf("%w: %s has host bits set, network address is %s", ErrInvalidNetwork, p, masked)
	}
	return nil
}
