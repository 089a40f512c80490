// Package ec2 provides the AWS::EC2 resource types needed for a VPC stack.
//
// Only the properties the stack sets are modelled. Values typed as any accept
// literals or intrinsic functions such as intrinsics.Ref.
package ec2

import (
	"github.com/allyunion/homosphere/intrinsics"
)

// VPC represents AWS::EC2::VPC.
type VPC struct {
	CidrBlock          any              `json:"CidrBlock,omitempty"`
	EnableDnsHostnames bool             `json:"EnableDnsHostnames,omitempty"`
	EnableDnsSupport   bool             `json:"EnableDnsSupport,omitempty"`
	InstanceTenancy    string           `json:"InstanceTenancy,omitempty"`
	Tags               []intrinsics.Tag `json:"Tags,omitempty"`
}

// ResourceType returns the CloudFormation resource type.
func (VPC) ResourceType() string { return "AWS::EC2::VPC" }

// InternetGateway represents AWS::EC2::InternetGateway.
type InternetGateway struct {
	Tags []intrinsics.Tag `json:"Tags,omitempty"`
}

// ResourceType returns the CloudFormation resource type.
func (InternetGateway) ResourceType() string { return "AWS::EC2::InternetGateway" }

// VPCGatewayAttachment represents AWS::EC2::VPCGatewayAttachment.
type VPCGatewayAttachment struct {
	VpcId             any `json:"VpcId,omitempty"`
	InternetGatewayId any `json:"InternetGatewayId,omitempty"`
	VpnGatewayId      any `json:"VpnGatewayId,omitempty"`
}

// ResourceType returns the CloudFormation resource type.
func (VPCGatewayAttachment) ResourceType() string { return "AWS::EC2::VPCGatewayAttachment" }

// Subnet represents AWS::EC2::Subnet.
type Subnet struct {
	VpcId               any              `json:"VpcId,omitempty"`
	CidrBlock           any              `json:"CidrBlock,omitempty"`
	AvailabilityZone    any              `json:"AvailabilityZone,omitempty"`
	MapPublicIpOnLaunch bool             `json:"MapPublicIpOnLaunch,omitempty"`
	Tags                []intrinsics.Tag `json:"Tags,omitempty"`
}

// ResourceType returns the CloudFormation resource type.
func (Subnet) ResourceType() string { return "AWS::EC2::Subnet" }

// RouteTable represents AWS::EC2::RouteTable.
type RouteTable struct {
	VpcId any              `json:"VpcId,omitempty"`
	Tags  []intrinsics.Tag `json:"Tags,omitempty"`
}

// ResourceType returns the CloudFormation resource type.
func (RouteTable) ResourceType() string { return "AWS::EC2::RouteTable" }

// Route represents AWS::EC2::Route.
// Set exactly one of GatewayId and NatGatewayId.
type Route struct {
	RouteTableId         any `json:"RouteTableId,omitempty"`
	DestinationCidrBlock any `json:"DestinationCidrBlock,omitempty"`
	GatewayId            any `json:"GatewayId,omitempty"`
	NatGatewayId         any `json:"NatGatewayId,omitempty"`
}

// ResourceType returns the CloudFormation resource type.
func (Route) ResourceType() string { return "AWS::EC2::Route" }

// SubnetRouteTableAssociation represents AWS::EC2::SubnetRouteTableAssociation.
type SubnetRouteTableAssociation struct {
	SubnetId     any `json:"SubnetId,omitempty"`
	RouteTableId any `json:"RouteTableId,omitempty"`
}

// ResourceType returns the CloudFormation resource type.
func (SubnetRouteTableAssociation) ResourceType() string {
	return "AWS::EC2::SubnetRouteTableAssociation"
}

// EIP represents AWS::EC2::EIP.
type EIP struct {
	Domain string           `json:"Domain,omitempty"`
	Tags   []intrinsics.Tag `json:"Tags,omitempty"`
}

// ResourceType returns the CloudFormation resource type.
func (EIP) ResourceType() string { return "AWS::EC2::EIP" }

// NatGateway represents AWS::EC2::NatGateway.
type NatGateway struct {
	AllocationId     any              `json:"AllocationId,omitempty"`
	SubnetId         any              `json:"SubnetId,omitempty"`
	ConnectivityType string           `json:"ConnectivityType,omitempty"`
	Tags             []intrinsics.Tag `json:"Tags,omitempty"`
}

// ResourceType returns the CloudFormation resource type.
func (NatGateway) ResourceType() string { return "AWS::EC2::NatGateway" }
