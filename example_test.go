package homosphere_test

import (
	"fmt"
	"log"
	"net/netip"

	"github.com/allyunion/homosphere/internal/stack"
	"github.com/allyunion/homosphere/internal/template"
	"github.com/allyunion/homosphere/intrinsics"
	"github.com/allyunion/homosphere/resources/ec2"
	"github.com/allyunion/homosphere/subnet"
)

// Three zones in a /16 need six subnets, which round up to eight /19s.
func Example() {
	plan, err := subnet.Allocate(netip.MustParsePrefix("10.0.0.0/16"),
		[]string{"us-east-1a", "us-east-1b", "us-east-1c"})
	if err != nil {
		log.Fatal(err)
	}
	for _, a := range plan.Assignments {
		fmt.Println(a.Zone, a.Public, a.Private)
	}

	tmpl, err := stack.Build(plan, stack.Options{Name: "prod"})
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(len(tmpl.Resources), "resources")
	fmt.Println(tmpl.Resources["PrivateDefaultRouteUsEast1b"].Properties["NatGatewayId"])
	// Output:
	// us-east-1a 10.0.0.0/19 10.0.32.0/19
	// us-east-1b 10.0.64.0/19 10.0.96.0/19
	// us-east-1c 10.0.128.0/19 10.0.160.0/19
	// 29 resources
	// map[Ref:NatGatewayUsEast1b]
}

// A single NAT gateway in the first zone serves every private subnet.
func Example_singleNatGateway() {
	plan, err := subnet.Allocate(netip.MustParsePrefix("10.0.0.0/16"),
		[]string{"eu-west-1a", "eu-west-1b"})
	if err != nil {
		log.Fatal(err)
	}

	tmpl, err := stack.Build(plan, stack.Options{SingleNatGateway: true})
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(tmpl.Resources["PrivateDefaultRouteEuWest1b"].Properties["NatGatewayId"])
	_, ok := tmpl.Resources["NatGatewayEuWest1b"]
	fmt.Println(ok)
	// Output:
	// map[Ref:NatGatewayEuWest1a]
	// false
}

// Resources can also be assembled by hand. References between them become
// template dependencies.
func Example_customLayout() {
	b := template.NewBuilder("Hand-written VPC")

	vpc := ec2.VPC{
		CidrBlock:          "10.20.0.0/16",
		EnableDnsHostnames: true,
		EnableDnsSupport:   true,
		Tags: []intrinsics.Tag{
			{Key: "Name", Value: intrinsics.Sub{String: "${AWS::StackName}-vpc"}},
		},
	}
	igw := ec2.InternetGateway{}
	attach := ec2.VPCGatewayAttachment{
		VpcId:             intrinsics.Ref{LogicalName: "VPC"},
		InternetGatewayId: intrinsics.Ref{LogicalName: "InternetGateway"},
	}

	if err := b.Add("VPC", vpc); err != nil {
		log.Fatal(err)
	}
	if err := b.Add("InternetGateway", igw); err != nil {
		log.Fatal(err)
	}
	if err := b.Add("VPCGatewayAttachment", attach); err != nil {
		log.Fatal(err)
	}

	tmpl, err := b.Build()
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(template.Dependencies(tmpl.Resources["VPCGatewayAttachment"]))
	// Output:
	// [InternetGateway VPC]
}
