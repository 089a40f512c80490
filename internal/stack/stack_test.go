package stack

import (
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/allyunion/homosphere/internal/template"
	"github.com/allyunion/homosphere/subnet"
)

var threeZones = []string{"us-east-1a", "us-east-1b", "us-east-1c"}

func mustPlan(t *testing.T, cidr string, zones []string) *subnet.Plan {
	t.Helper()
	plan, err := subnet.Allocate(netip.MustParsePrefix(cidr), zones)
	require.NoError(t, err)
	return plan
}

func refMap(name string) map[string]any {
	return map[string]any{"Ref": name}
}

func TestBuild_Resources(t *testing.T) {
	tmpl, err := Build(mustPlan(t, "10.0.0.0/16", threeZones), Options{Name: "prod"})
	require.NoError(t, err)

	// 5 shared resources plus 8 per zone.
	assert.Len(t, tmpl.Resources, 5+8*3)
	assert.Equal(t, "2010-09-09", tmpl.AWSTemplateFormatVersion)
	assert.Contains(t, tmpl.Description, "10.0.0.0/16")

	vpc := tmpl.Resources[VPCName]
	assert.Equal(t, "AWS::EC2::VPC", vpc.Type)
	assert.Equal(t, "10.0.0.0/16", vpc.Properties["CidrBlock"])
	assert.Equal(t, true, vpc.Properties["EnableDnsSupport"])
	assert.Equal(t, true, vpc.Properties["EnableDnsHostnames"])

	for _, name := range []string{
		InternetGatewayName, GatewayAttachmentName, PublicRouteTableName, PublicDefaultRouteName,
		"PublicSubnetUsEast1a", "PublicSubnetUsEast1aRouteTableAssociation",
		"NatEipUsEast1a", "NatGatewayUsEast1a",
		"PrivateSubnetUsEast1a", "PrivateRouteTableUsEast1a", "PrivateDefaultRouteUsEast1a",
		"PrivateSubnetUsEast1aRouteTableAssociation",
		"PublicSubnetUsEast1c", "PrivateSubnetUsEast1c", "NatGatewayUsEast1c",
	} {
		assert.Contains(t, tmpl.Resources, name)
	}
}

func TestBuild_SubnetCidrs(t *testing.T) {
	tmpl, err := Build(mustPlan(t, "10.0.0.0/16", threeZones), Options{})
	require.NoError(t, err)

	tests := []struct {
		name string
		cidr string
		zone string
	}{
		{"PublicSubnetUsEast1a", "10.0.0.0/19", "us-east-1a"},
		{"PrivateSubnetUsEast1a", "10.0.32.0/19", "us-east-1a"},
		{"PublicSubnetUsEast1b", "10.0.64.0/19", "us-east-1b"},
		{"PrivateSubnetUsEast1b", "10.0.96.0/19", "us-east-1b"},
		{"PublicSubnetUsEast1c", "10.0.128.0/19", "us-east-1c"},
		{"PrivateSubnetUsEast1c", "10.0.160.0/19", "us-east-1c"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := tmpl.Resources[tt.name]
			assert.Equal(t, "AWS::EC2::Subnet", res.Type)
			assert.Equal(t, tt.cidr, res.Properties["CidrBlock"])
			assert.Equal(t, tt.zone, res.Properties["AvailabilityZone"])
			assert.Equal(t, refMap(VPCName), res.Properties["VpcId"])
		})
	}

	assert.Equal(t, true, tmpl.Resources["PublicSubnetUsEast1a"].Properties["MapPublicIpOnLaunch"])
	assert.NotContains(t, tmpl.Resources["PrivateSubnetUsEast1a"].Properties, "MapPublicIpOnLaunch")
}

func TestBuild_Routing(t *testing.T) {
	tmpl, err := Build(mustPlan(t, "10.0.0.0/16", threeZones), Options{})
	require.NoError(t, err)

	public := tmpl.Resources[PublicDefaultRouteName]
	assert.Equal(t, AnyIPv4, public.Properties["DestinationCidrBlock"])
	assert.Equal(t, refMap(InternetGatewayName), public.Properties["GatewayId"])
	assert.Equal(t, []string{GatewayAttachmentName}, public.DependsOn)

	eip := tmpl.Resources["NatEipUsEast1b"]
	assert.Equal(t, "vpc", eip.Properties["Domain"])
	assert.Equal(t, []string{GatewayAttachmentName}, eip.DependsOn)

	nat := tmpl.Resources["NatGatewayUsEast1b"]
	assert.Equal(t, map[string]any{"Fn::GetAtt": []any{"NatEipUsEast1b", "AllocationId"}}, nat.Properties["AllocationId"])
	assert.Equal(t, []string{"NatEipUsEast1b"}, template.AttributeDependencies(nat))
	assert.Equal(t, refMap("PublicSubnetUsEast1b"), nat.Properties["SubnetId"])

	route := tmpl.Resources["PrivateDefaultRouteUsEast1b"]
	assert.Equal(t, refMap("PrivateRouteTableUsEast1b"), route.Properties["RouteTableId"])
	assert.Equal(t, refMap("NatGatewayUsEast1b"), route.Properties["NatGatewayId"])
	assert.NotContains(t, route.Properties, "GatewayId")

	assoc := tmpl.Resources["PublicSubnetUsEast1bRouteTableAssociation"]
	assert.Equal(t, refMap("PublicSubnetUsEast1b"), assoc.Properties["SubnetId"])
	assert.Equal(t, refMap(PublicRouteTableName), assoc.Properties["RouteTableId"])
}

func TestBuild_SingleNatGateway(t *testing.T) {
	tmpl, err := Build(mustPlan(t, "10.0.0.0/16", threeZones), Options{SingleNatGateway: true})
	require.NoError(t, err)

	assert.Len(t, tmpl.Resources, 5+8*3-2*2)
	assert.Contains(t, tmpl.Resources, "NatGatewayUsEast1a")
	assert.NotContains(t, tmpl.Resources, "NatGatewayUsEast1b")
	assert.NotContains(t, tmpl.Resources, "NatEipUsEast1c")

	for _, zone := range []string{"UsEast1a", "UsEast1b", "UsEast1c"} {
		route := tmpl.Resources[PrivateRoutePrefix+zone]
		assert.Equal(t, refMap("NatGatewayUsEast1a"), route.Properties["NatGatewayId"], zone)
	}
}

func TestBuild_Outputs(t *testing.T) {
	tmpl, err := Build(mustPlan(t, "10.0.0.0/16", threeZones), Options{})
	require.NoError(t, err)

	// VpcId, VpcCidr, one per subnet, two joined lists.
	assert.Len(t, tmpl.Outputs, 2+2*3+2)

	vpcID := tmpl.Outputs["VpcId"]
	assert.Equal(t, refMap(VPCName), vpcID.Value)
	require.NotNil(t, vpcID.Export)
	assert.Equal(t, map[string]any{
		"Fn::Join": []any{"-", []any{refMap("AWS::StackName"), "VpcId"}},
	}, vpcID.Export.Name)

	assert.Equal(t,
		map[string]any{"Fn::GetAtt": []any{VPCName, "CidrBlock"}},
		tmpl.Outputs["VpcCidr"].Value)
	assert.Equal(t, []string{VPCName}, template.AttributeDependencies(tmpl.Outputs["VpcCidr"]))

	assert.Equal(t, refMap("PrivateSubnetUsEast1b"), tmpl.Outputs["PrivateSubnetUsEast1b"].Value)
	assert.Equal(t, "Private subnet in us-east-1b", tmpl.Outputs["PrivateSubnetUsEast1b"].Description)

	assert.Equal(t, map[string]any{
		"Fn::Join": []any{",", []any{
			refMap("PublicSubnetUsEast1a"), refMap("PublicSubnetUsEast1b"), refMap("PublicSubnetUsEast1c"),
		}},
	}, tmpl.Outputs[PublicSubnetsOutputName].Value)
}

func TestBuild_ExportPrefix(t *testing.T) {
	tmpl, err := Build(mustPlan(t, "10.0.0.0/16", threeZones), Options{ExportPrefix: "shared-net"})
	require.NoError(t, err)

	assert.Equal(t, "shared-net-VpcId", tmpl.Outputs["VpcId"].Export.Name)
	assert.Equal(t, "shared-net-PrivateSubnets", tmpl.Outputs[PrivateSubnetsOutputName].Export.Name)
}

func TestBuild_Tags(t *testing.T) {
	opts := Options{
		Name: "prod",
		Tags: map[string]string{"Team": "platform", "CostCenter": "42"},
	}
	tmpl, err := Build(mustPlan(t, "10.0.0.0/16", []string{"us-east-1a"}), opts)
	require.NoError(t, err)

	tags := tmpl.Resources[VPCName].Properties["Tags"].([]any)
	require.Len(t, tags, 3)
	assert.Equal(t, map[string]any{"Key": "Name", "Value": "prod-vpc"}, tags[0])
	assert.Equal(t, map[string]any{"Key": "CostCenter", "Value": "42"}, tags[1])
	assert.Equal(t, map[string]any{"Key": "Team", "Value": "platform"}, tags[2])

	natTags := tmpl.Resources["NatGatewayUsEast1a"].Properties["Tags"].([]any)
	assert.Equal(t, map[string]any{"Key": "Name", "Value": "prod-nat-us-east-1a"}, natTags[0])

	// Untaggable resources carry no tags.
	assert.NotContains(t, tmpl.Resources[PublicDefaultRouteName].Properties, "Tags")
}

func TestBuild_NameTagDefaultsToStackName(t *testing.T) {
	tmpl, err := Build(mustPlan(t, "10.0.0.0/16", []string{"us-east-1a"}), Options{})
	require.NoError(t, err)

	tags := tmpl.Resources[InternetGatewayName].Properties["Tags"].([]any)
	require.Len(t, tags, 1)
	assert.Equal(t, map[string]any{
		"Key":   "Name",
		"Value": map[string]any{"Fn::Sub": "${AWS::StackName}-igw"},
	}, tags[0])
}

func TestBuild_ReservedTag(t *testing.T) {
	plan := mustPlan(t, "10.0.0.0/16", []string{"us-east-1a"})

	_, err := Build(plan, Options{Tags: map[string]string{"Name": "mine"}})
	assert.ErrorIs(t, err, ErrReservedTag)

	_, err = Build(plan, Options{Tags: map[string]string{"": "x"}})
	assert.ErrorIs(t, err, ErrReservedTag)
}

func TestBuild_InvalidPlan(t *testing.T) {
	_, err := Build(nil, Options{})
	assert.ErrorIs(t, err, ErrInvalidPlan)

	_, err = Build(&subnet.Plan{}, Options{})
	assert.ErrorIs(t, err, ErrInvalidPlan)
}

func TestBuild_ZoneSuffixCollision(t *testing.T) {
	plan := mustPlan(t, "10.0.0.0/16", []string{"us-east-1a", "us_east_1a"})

	_, err := Build(plan, Options{})
	assert.ErrorIs(t, err, template.ErrDuplicateResource)
}

func TestBuild_ZoneWithoutSuffix(t *testing.T) {
	plan := mustPlan(t, "10.0.0.0/16", []string{"--"})

	_, err := Build(plan, Options{})
	assert.ErrorIs(t, err, subnet.ErrInvalidZone)
}

func TestBuild_Deterministic(t *testing.T) {
	plan := mustPlan(t, "172.16.0.0/12", threeZones)

	first, err := Build(plan, Options{Tags: map[string]string{"a": "1", "b": "2"}})
	require.NoError(t, err)
	second, err := Build(plan, Options{Tags: map[string]string{"b": "2", "a": "1"}})
	require.NoError(t, err)

	a, err := template.ToJSON(first)
	require.NoError(t, err)
	b, err := template.ToJSON(second)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}

func TestAddPrivate_RequiresPublicSubnetAndNat(t *testing.T) {
	a := subnet.Assignment{
		Zone:    "us-east-1a",
		Public:  netip.MustParsePrefix("10.0.0.0/17"),
		Private: netip.MustParsePrefix("10.0.128.0/17"),
	}

	s := &stack{b: template.NewBuilder("")}
	require.NoError(t, s.addNetwork(mustPlan(t, "10.0.0.0/16", []string{"us-east-1a"})))

	err := s.addPrivate(a, "UsEast1a", "NatGatewayUsEast1a")
	require.Error(t, err)
	assert.ErrorIs(t, err, template.ErrMissingDependency)
	assert.Contains(t, err.Error(), "PublicSubnetUsEast1a")

	require.NoError(t, s.addPublic(a, "UsEast1a"))
	err = s.addPrivate(a, "UsEast1a", "NatGatewayUsEast1a")
	assert.ErrorIs(t, err, template.ErrMissingDependency)
	assert.Contains(t, err.Error(), "NatGatewayUsEast1a")
	assert.False(t, s.b.Has("PrivateSubnetUsEast1a"))

	require.NoError(t, s.addNat(a.Zone, "UsEast1a"))
	require.NoError(t, s.addPrivate(a, "UsEast1a", "NatGatewayUsEast1a"))
	assert.True(t, s.b.Has("PrivateSubnetUsEast1a"))
}

func TestAddOutputs_Duplicate(t *testing.T) {
	s := &stack{b: template.NewBuilder("")}
	require.NoError(t, s.output("VpcId", "", "x"))

	err := s.addOutputs()
	assert.ErrorIs(t, err, template.ErrDuplicateOutput)
}

func TestZoneSuffix(t *testing.T) {
	assert.Equal(t, "UsEast1a", ZoneSuffix("us-east-1a"))
	assert.Equal(t, "EuCentral2b", ZoneSuffix("eu-central-2b"))
	assert.Equal(t, "", ZoneSuffix("-"))
}

func TestBuild_ResourceTypes(t *testing.T) {
	tmpl, err := Build(mustPlan(t, "10.0.0.0/16", []string{"us-east-1a"}), Options{})
	require.NoError(t, err)

	counts := map[string]int{}
	for _, res := range tmpl.Resources {
		counts[res.Type]++
	}
	assert.Equal(t, map[string]int{
		"AWS::EC2::VPC":                         1,
		"AWS::EC2::InternetGateway":             1,
		"AWS::EC2::VPCGatewayAttachment":        1,
		"AWS::EC2::RouteTable":                  2,
		"AWS::EC2::Route":                       2,
		"AWS::EC2::Subnet":                      2,
		"AWS::EC2::SubnetRouteTableAssociation": 2,
		"AWS::EC2::EIP":                         1,
		"AWS::EC2::NatGateway":                  1,
	}, counts)
}
