// Package stack turns a subnet plan into a CloudFormation VPC template.
//
// The template holds one VPC with an internet gateway and a shared public
// route table. Each zone gets a public subnet, a NAT gateway with its elastic
// IP, and a private subnet whose route table sends 0.0.0.0/0 through the NAT.
package stack

import (
	"errors"
	"fmt"
	"sort"

	log "github.com/cantara/bragi/sbragi"

	homosphere "github.com/allyunion/homosphere"
	"github.com/allyunion/homosphere/internal/serialize"
	"github.com/allyunion/homosphere/internal/template"
	"github.com/allyunion/homosphere/intrinsics"
	"github.com/allyunion/homosphere/resources/ec2"
	"github.com/allyunion/homosphere/subnet"
)

// Logical IDs of the resources shared by all zones.
const (
	VPCName                  = "VPC"
	InternetGatewayName      = "InternetGateway"
	GatewayAttachmentName    = "VPCGatewayAttachment"
	PublicRouteTableName     = "PublicRouteTable"
	PublicDefaultRouteName   = "PublicDefaultRoute"
	PublicSubnetsOutputName  = "PublicSubnets"
	PrivateSubnetsOutputName = "PrivateSubnets"
)

// AnyIPv4 is the destination of the default routes.
const AnyIPv4 = "0.0.0.0/0"

var (
	// ErrInvalidPlan is returned for a nil plan or one that fails validation.
	ErrInvalidPlan = errors.New("invalid plan")
	// ErrReservedTag is returned when a user tag key is empty or "Name".
	ErrReservedTag = errors.New("reserved tag key")
)

// Options control naming, exports, tagging and NAT layout.
type Options struct {
	// Name prefixes the Name tag of every resource. Empty means the stack name
	// resolved at deploy time.
	Name string
	// Description overrides the generated template description.
	Description string
	// ExportPrefix replaces the stack name in output export names.
	ExportPrefix string
	// Tags are applied to every taggable resource, in sorted key order.
	Tags map[string]string
	// SingleNatGateway builds one NAT gateway in the first zone and routes
	// every private subnet through it.
	SingleNatGateway bool
}

// Logical ID prefixes of the per-zone resources. The zone suffix is appended.
const (
	PublicSubnetPrefix      = "PublicSubnet"
	PrivateSubnetPrefix     = "PrivateSubnet"
	NatEipPrefix            = "NatEip"
	NatGatewayPrefix        = "NatGateway"
	PrivateRouteTablePrefix = "PrivateRouteTable"
	PrivateRoutePrefix      = "PrivateDefaultRoute"
	associationSuffix       = "RouteTableAssociation"
)

// ZoneSuffix converts a zone name into a logical ID suffix.
// e.g., "us-east-1a" -> "UsEast1a"
func ZoneSuffix(zone string) string {
	return serialize.ToPascalCase(zone)
}

type stack struct {
	opts     Options
	b        *template.Builder
	userTags []intrinsics.Tag
	public   []string
	private  []string
}

// Build assembles the VPC template for plan.
func Build(plan *subnet.Plan, opts Options) (*homosphere.Template, error) {
	if plan == nil {
		return nil, fmt.Errorf("%w: nil", ErrInvalidPlan)
	}
	if err := plan.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPlan, err)
	}
	userTags, err := sortedTags(opts.Tags)
	if err != nil {
		return nil, err
	}

	description := opts.Description
	if description == "" {
		description = fmt.Sprintf("VPC %s with public and private /%d subnets in %d availability zones",
			plan.Network, plan.PrefixLen, len(plan.Assignments))
	}

	s := &stack{
		opts:     opts,
		b:        template.NewBuilder(description),
		userTags: userTags,
	}

	if err := s.addNetwork(plan); err != nil {
		return nil, err
	}

	var natZone string
	for i, a := range plan.Assignments {
		suffix := ZoneSuffix(a.Zone)
		if suffix == "" {
			return nil, fmt.Errorf("%w: %q has no alphanumeric characters", subnet.ErrInvalidZone, a.Zone)
		}
		if err := s.addPublic(a, suffix); err != nil {
			return nil, err
		}
		if i == 0 || !opts.SingleNatGateway {
			natZone = suffix
			if err := s.addNat(a.Zone, suffix); err != nil {
				return nil, err
			}
		}
		if err := s.addPrivate(a, suffix, NatGatewayPrefix+natZone); err != nil {
			return nil, err
		}
	}

	if err := s.addOutputs(); err != nil {
		return nil, err
	}

	log.Debug("stack assembled", "network", plan.Network.String(), "zones", len(plan.Assignments),
		"resources", s.b.Len(), "single_nat", opts.SingleNatGateway)
	return s.b.Build()
}

// sortedTags converts user tags to Tag values in key order. The Name key is
// reserved for the generated per-resource names.
func sortedTags(tags map[string]string) ([]intrinsics.Tag, error) {
	keys := make([]string, 0, len(tags))
	for k := range tags {
		if k == "" {
			return nil, fmt.Errorf("%w: empty key", ErrReservedTag)
		}
		if k == "Name" {
			return nil, fmt.Errorf("%w: %s", ErrReservedTag, k)
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	result := make([]intrinsics.Tag, 0, len(keys))
	for _, k := range keys {
		result = append(result, intrinsics.Tag{Key: k, Value: tags[k]})
	}
	return result, nil
}

// tags returns the Name tag for the resource followed by the user tags.
func (s *stack) tags(name string) []intrinsics.Tag {
	var value any = intrinsics.Sub{String: "${AWS::StackName}-" + name}
	if s.opts.Name != "" {
		value = s.opts.Name + "-" + name
	}
	result := make([]intrinsics.Tag, 0, len(s.userTags)+1)
	result = append(result, intrinsics.Tag{Key: "Name", Value: value})
	return append(result, s.userTags...)
}

func ref(name string) intrinsics.Ref {
	return intrinsics.Ref{LogicalName: name}
}

// require reports ErrMissingDependency unless every named resource was added.
func (s *stack) require(name string, deps ...string) error {
	for _, dep := range deps {
		if !s.b.Has(dep) {
			return fmt.Errorf("%w: %s needs %s", template.ErrMissingDependency, name, dep)
		}
	}
	return nil
}

func (s *stack) addNetwork(plan *subnet.Plan) error {
	steps := []struct {
		name      string
		res       homosphere.Resource
		dependsOn []string
	}{
		{VPCName, ec2.VPC{
			CidrBlock:          plan.Network.String(),
			EnableDnsHostnames: true,
			EnableDnsSupport:   true,
			Tags:               s.tags("vpc"),
		}, nil},
		{InternetGatewayName, ec2.InternetGateway{
			Tags: s.tags("igw"),
		}, nil},
		{GatewayAttachmentName, ec2.VPCGatewayAttachment{
			VpcId:             ref(VPCName),
			InternetGatewayId: ref(InternetGatewayName),
		}, nil},
		{PublicRouteTableName, ec2.RouteTable{
			VpcId: ref(VPCName),
			Tags:  s.tags("public-rt"),
		}, nil},
		{PublicDefaultRouteName, ec2.Route{
			RouteTableId:         ref(PublicRouteTableName),
			DestinationCidrBlock: AnyIPv4,
			GatewayId:            ref(InternetGatewayName),
		}, []string{GatewayAttachmentName}},
	}

	for _, step := range steps {
		if err := s.b.Add(step.name, step.res, step.dependsOn...); err != nil {
			return err
		}
	}
	return nil
}

func (s *stack) addPublic(a subnet.Assignment, suffix string) error {
	name := PublicSubnetPrefix + suffix
	err := s.b.Add(name, ec2.Subnet{
		VpcId:               ref(VPCName),
		CidrBlock:           a.Public.String(),
		AvailabilityZone:    a.Zone,
		MapPublicIpOnLaunch: true,
		Tags:                s.tags("public-" + a.Zone),
	})
	if err != nil {
		return err
	}
	s.public = append(s.public, name)
	if err := s.output(name, "Public subnet in "+a.Zone, ref(name)); err != nil {
		return err
	}

	return s.b.Add(name+associationSuffix, ec2.SubnetRouteTableAssociation{
		SubnetId:     ref(name),
		RouteTableId: ref(PublicRouteTableName),
	})
}

func (s *stack) addNat(zone, suffix string) error {
	public := PublicSubnetPrefix + suffix
	if err := s.require(NatGatewayPrefix+suffix, public, GatewayAttachmentName); err != nil {
		return err
	}

	eip := NatEipPrefix + suffix
	err := s.b.Add(eip, ec2.EIP{
		Domain: "vpc",
		Tags:   s.tags("nat-eip-" + zone),
	}, GatewayAttachmentName)
	if err != nil {
		return err
	}

	return s.b.Add(NatGatewayPrefix+suffix, ec2.NatGateway{
		AllocationId: homosphere.AttrRef{Resource: eip, Attribute: "AllocationId"},
		SubnetId:     ref(public),
		Tags:         s.tags("nat-" + zone),
	})
}

// addPrivate builds the private subnet of a zone and routes it through nat.
// The zone's public subnet and the NAT gateway must already exist.
func (s *stack) addPrivate(a subnet.Assignment, suffix, nat string) error {
	name := PrivateSubnetPrefix + suffix
	if err := s.require(name, PublicSubnetPrefix+suffix, nat); err != nil {
		return err
	}

	err := s.b.Add(name, ec2.Subnet{
		VpcId:            ref(VPCName),
		CidrBlock:        a.Private.String(),
		AvailabilityZone: a.Zone,
		Tags:             s.tags("private-" + a.Zone),
	})
	if err != nil {
		return err
	}
	s.private = append(s.private, name)
	if err := s.output(name, "Private subnet in "+a.Zone, ref(name)); err != nil {
		return err
	}

	table := PrivateRouteTablePrefix + suffix
	if err := s.b.Add(table, ec2.RouteTable{
		VpcId: ref(VPCName),
		Tags:  s.tags("private-rt-" + a.Zone),
	}); err != nil {
		return err
	}
	if err := s.b.Add(PrivateRoutePrefix+suffix, ec2.Route{
		RouteTableId:         ref(table),
		DestinationCidrBlock: AnyIPv4,
		NatGatewayId:         ref(nat),
	}); err != nil {
		return err
	}
	return s.b.Add(name+associationSuffix, ec2.SubnetRouteTableAssociation{
		SubnetId:     ref(name),
		RouteTableId: ref(table),
	})
}

func (s *stack) exportName(output string) any {
	if s.opts.ExportPrefix != "" {
		return s.opts.ExportPrefix + "-" + output
	}
	return intrinsics.ExportName(output)
}

func (s *stack) output(name, description string, value any) error {
	return s.b.AddOutput(name, homosphere.Output{
		Description: description,
		Value:       value,
		Export:      &homosphere.Export{Name: s.exportName(name)},
	})
}

func joinRefs(names []string) intrinsics.Join {
	values := make([]any, len(names))
	for i, name := range names {
		values[i] = ref(name)
	}
	return intrinsics.Join{Delimiter: ",", Values: values}
}

func (s *stack) addOutputs() error {
	if err := s.output("VpcId", "VPC ID", ref(VPCName)); err != nil {
		return err
	}
	if err := s.output("VpcCidr", "VPC CIDR block",
		homosphere.AttrRef{Resource: VPCName, Attribute: "CidrBlock"}); err != nil {
		return err
	}
	if err := s.output(PublicSubnetsOutputName, "Comma-separated public subnet IDs", joinRefs(s.public)); err != nil {
		return err
	}
	return s.output(PrivateSubnetsOutputName, "Comma-separated private subnet IDs", joinRefs(s.private))
}
