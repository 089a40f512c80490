package subnet

import (
	"context"
	"fmt"
	"net/netip"
	"slices"

	log "github.com/cantara/bragi/sbragi"
)

// ZoneLister lists the availability zones of a region in a stable order.
type ZoneLister interface {
	ListZones(ctx context.Context) ([]string, error)
}

// StaticZones is a ZoneLister over a fixed list of zones.
type StaticZones []string

// ListZones returns a copy of z.
func (z StaticZones) ListZones(context.Context) ([]string, error) {
	if len(z) == 0 {
		return nil, ErrNoZones
	}
	return slices.Clone(z), nil
}

// Session plans the subnets of one VPC network.
//
// The zone list is fetched from the lister at most once, and the prefix length
// and plan are computed once and reused by later calls. A Session is not safe
// for concurrent use; independent sessions share nothing.
type Session struct {
	network netip.Prefix
	lister  ZoneLister

	zones     []string
	prefixLen int
	plan      *Plan
}

// NewSession returns a planning session for network that gets its zones from
// lister.
func NewSession(network netip.Prefix, lister ZoneLister) *Session {
	return &Session{
		network: network,
		lister:  lister,
	}
}

// Network returns the parent network of the session.
func (s *Session) Network() netip.Prefix {
	return s.network
}

// Zones returns the session's availability zones, listing them on first use.
func (s *Session) Zones(ctx context.Context) ([]string, error) {
	if s.zones != nil {
		return slices.Clone(s.zones), nil
	}
	if s.lister == nil {
		return nil, fmt.Errorf("%w: no zone lister configured", ErrNoZones)
	}

	log.Trace("listing availability zones", "network", s.network.String())
	zones, err := s.lister.ListZones(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing availability zones: %w", err)
	}
	if err := checkZones(zones); err != nil {
		return nil, err
	}
	log.Debug("got availability zones", "count", len(zones), "zones", zones)

	s.zones = slices.Clone(zones)
	return slices.Clone(s.zones), nil
}

// PrefixLength returns the subnet prefix length for the session's network and
// zone count. It is computed once per session.
func (s *Session) PrefixLength(ctx context.Context) (int, error) {
	if s.prefixLen != 0 {
		return s.prefixLen, nil
	}
	zones, err := s.Zones(ctx)
	if err != nil {
		return 0, err
	}
	prefixLen, err := PrefixLength(s.network, len(zones))
	if err != nil {
		return 0, err
	}
	log.Trace("calculated subnet prefix length", "network", s.network.String(), "zones", len(zones), "prefix", prefixLen)

	s.prefixLen = prefixLen
	return prefixLen, nil
}

// Allocate returns the session's subnet plan. Every call returns the same
// plan.
func (s *Session) Allocate(ctx context.Context) (*Plan, error) {
	if s.plan != nil {
		return s.plan, nil
	}
	prefixLen, err := s.PrefixLength(ctx)
	if err != nil {
		return nil, err
	}
	plan, err := allocate(s.network, s.zones, prefixLen)
	if err != nil {
		return nil, err
	}
	if err := plan.Validate(); err != nil {
		return nil, fmt.Errorf("allocated plan is inconsistent: %w", err)
	}

	s.plan = plan
	return plan, nil
}
