package subnet

import (
	"fmt"
	"iter"
	"net/netip"
	"slices"

	"go4.org/netipx"
)

// Assignment is the subnet pair carved out for one availability zone.
type Assignment struct {
	Zone    string
	Public  netip.Prefix
	Private netip.Prefix
}

// Plan maps availability zones to their public and private subnets.
// Assignments keep the order the zones were given in.
//
// A Plan is not modified after Allocate returns it.
type Plan struct {
	Network     netip.Prefix
	PrefixLen   int
	Assignments []Assignment
}

// Allocate computes the subnet prefix length for zones and hands out one
// public and one private subnet per zone, walking parent's children in
// increasing address order.
func Allocate(parent netip.Prefix, zones []string) (*Plan, error) {
	if err := checkZones(zones); err != nil {
		return nil, err
	}
	prefixLen, err := PrefixLength(parent, len(zones))
	if err != nil {
		return nil, err
	}
	return allocate(parent, zones, prefixLen)
}

func allocate(parent netip.Prefix, zones []string, prefixLen int) (*Plan, error) {
	next, stop := iter.Pull(Children(parent, prefixLen))
	defer stop()

	plan := &Plan{
		Network:     parent,
		PrefixLen:   prefixLen,
		Assignments: make([]Assignment, 0, len(zones)),
	}
	for _, zone := range zones {
		public, ok := next()
		if !ok {
			return nil, fmt.Errorf("%w: no public subnet left for %s in %s", ErrSubnetsExhausted, zone, parent)
		}
		private, ok := next()
		if !ok {
			return nil, fmt.Errorf("%w: no private subnet left for %s in %s", ErrSubnetsExhausted, zone, parent)
		}
		plan.Assignments = append(plan.Assignments, Assignment{
			Zone:    zone,
			Public:  public,
			Private: private,
		})
	}
	return plan, nil
}

func checkZones(zones []string) error {
	if len(zones) == 0 {
		return ErrNoZones
	}
	seen := make(map[string]struct{}, len(zones))
	for i, zone := range zones {
		if zone == "" {
			return fmt.Errorf("%w: empty identifier at position %d", ErrInvalidZone, i)
		}
		if _, ok := seen[zone]; ok {
			return fmt.Errorf("%w: %s", ErrDuplicateZone, zone)
		}
		seen[zone] = struct{}{}
	}
	return nil
}

// Zones returns the planned zones in order.
func (p *Plan) Zones() []string {
	zones := make([]string, len(p.Assignments))
	for i, a := range p.Assignments {
		zones[i] = a.Zone
	}
	return zones
}

// Lookup returns the assignment for zone.
func (p *Plan) Lookup(zone string) (Assignment, bool) {
	for _, a := range p.Assignments {
		if a.Zone == zone {
			return a, true
		}
	}
	return Assignment{}, false
}

// Subnets returns every assigned subnet in allocation order.
func (p *Plan) Subnets() []netip.Prefix {
	subnets := make([]netip.Prefix, 0, 2*len(p.Assignments))
	for _, a := range p.Assignments {
		subnets = append(subnets, a.Public, a.Private)
	}
	return subnets
}

// Capacity is the number of subnets of PrefixLen that fit in Network.
func (p *Plan) Capacity() int {
	return 1 << (p.PrefixLen - p.Network.Bits())
}

// Free returns the parts of Network that no zone was given, as the smallest
// set of covering prefixes.
func (p *Plan) Free() ([]netip.Prefix, error) {
	var b netipx.IPSetBuilder
	b.AddPrefix(p.Network)
	for _, s := range p.Subnets() {
		b.RemovePrefix(s)
	}
	set, err := b.IPSet()
	if err != nil {
		return nil, fmt.Errorf("computing free space in %s: %w", p.Network, err)
	}
	return set.Prefixes(), nil
}

// Validate checks that every subnet has PrefixLen, lies inside Network, and
// overlaps no other subnet.
func (p *Plan) Validate() error {
	subnets := p.Subnets()
	for _, s := range subnets {
		if s.Bits() != p.PrefixLen {
			return fmt.Errorf("subnet %s: prefix length %d, plan uses %d", s, s.Bits(), p.PrefixLen)
		}
		if s.Bits() < p.Network.Bits() || !p.Network.Contains(s.Addr()) {
			return fmt.Errorf("subnet %s is outside %s", s, p.Network)
		}
	}

	slices.SortFunc(subnets, func(a, b netip.Prefix) int {
		return a.Addr().Compare(b.Addr())
	})
	for i := 1; i < len(subnets); i++ {
		prev, cur := subnets[i-1], subnets[i]
		if !netipx.PrefixLastIP(prev).Less(cur.Addr()) {
			return fmt.Errorf("subnet %s overlaps %s", prev, cur)
		}
	}
	return nil
}
